package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURL = "https://exp.host/--/api/v2/push/send"
	// ChunkSize is the maximum number of messages per request.
	ChunkSize = 100
)

// Recipients lists the push tokens a broadcast is delivered to.
type Recipients interface {
	PushTokens(ctx context.Context) ([]string, error)
}

// Static is a fixed list of push tokens.
type Static []string

// ParseStatic builds a static list from comma separated tokens.
func ParseStatic(list string) Static {
	var s Static
	for _, t := range strings.Split(list, ",") {
		if t = strings.TrimSpace(t); t != "" {
			s = append(s, t)
		}
	}
	return s
}

func (s Static) PushTokens(context.Context) ([]string, error) {
	return s, nil
}

type Message struct {
	To    string            `json:"to"`
	Sound string            `json:"sound,omitempty"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Expo sends notifications through the Expo push service.
type Expo struct {
	url    string
	client *http.Client
	log    func(v ...interface{})
}

func New(log func(v ...interface{})) *Expo {
	return &Expo{
		url:    DefaultURL,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    log,
	}
}

func (e *Expo) WithURL(u string) *Expo {
	e.url = u
	return e
}

// Send delivers title and body to every token, in chunks. It stops at the
// first failed chunk.
func (e *Expo) Send(ctx context.Context, tokens []string, title, body string) error {
	messages := make([]Message, 0, len(tokens))
	for _, t := range tokens {
		messages = append(messages, Message{
			To:    t,
			Sound: "default",
			Title: title,
			Body:  body,
		})
	}
	for i := 0; i < len(messages); i += ChunkSize {
		end := i + ChunkSize
		if end > len(messages) {
			end = len(messages)
		}
		if err := e.post(ctx, messages[i:end]); err != nil {
			return fmt.Errorf("push: couldn't send batch %d: %w", i/ChunkSize+1, err)
		}
		e.log(fmt.Sprintf("push: batch %d sent (%d messages)", i/ChunkSize+1, end-i))
	}
	return nil
}

func (e *Expo) post(ctx context.Context, messages []Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
