package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendChunks(t *testing.T) {
	var lock sync.Mutex
	var batches []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var messages []Message
		if err := json.NewDecoder(r.Body).Decode(&messages); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, m := range messages {
			assert.Equal(t, "title", m.Title)
			assert.Equal(t, "body", m.Body)
			assert.Equal(t, "default", m.Sound)
		}
		lock.Lock()
		batches = append(batches, len(messages))
		lock.Unlock()
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	var tokens []string
	for i := 0; i < 250; i++ {
		tokens = append(tokens, fmt.Sprintf("ExponentPushToken[%d]", i))
	}
	expo := New(func(...interface{}) {}).WithURL(server.URL)
	require.NoError(t, expo.Send(context.Background(), tokens, "title", "body"))
	assert.Equal(t, []int{100, 100, 50}, batches)
}

func TestSendFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	tokens := make([]string, 150)
	for i := range tokens {
		tokens[i] = "t"
	}
	expo := New(func(...interface{}) {}).WithURL(server.URL)
	err := expo.Send(context.Background(), tokens, "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, 1, calls)
}

func TestParseStatic(t *testing.T) {
	tokens, err := ParseStatic(" a, ,b ,").PushTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tokens)
	assert.Empty(t, ParseStatic(""))
}
