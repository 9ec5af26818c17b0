package bolt

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "signals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndList(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a, err := s.Create(ctx, &signal.Signal{User: "u1", Instrument: "XAUUSD", Direction: signal.Buy, EntryPrice: "100", TakeProfit: "110", StopLoss: "90"}, &signal.Attachment{Name: "chart.png", Data: []byte("png")})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, signal.Pending, a.Status)
	assert.Equal(t, "chart.png", a.ChartImage)
	assert.False(t, a.CreatedAt.IsZero())

	b, err := s.Create(ctx, &signal.Signal{User: "u1", Instrument: "EURUSD", Direction: signal.Sell, EntryPrice: "1.08"}, nil)
	require.NoError(t, err)

	won, err := s.Create(ctx, &signal.Signal{User: "u1", Instrument: "EURUSD", Direction: signal.Sell, Status: signal.Won}, nil)
	require.NoError(t, err)

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, a.ID, pending[0].ID)
	assert.Equal(t, b.ID, pending[1].ID)
	assert.Equal(t, "110", pending[0].TakeProfit)

	got, err := s.Get(won.ID)
	require.NoError(t, err)
	assert.Equal(t, signal.Won, got.Status)

	chart, err := s.Chart(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), chart)
	_, err = s.Chart(b.ID)
	assert.ErrorIs(t, err, signal.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a, err := s.Create(ctx, &signal.Signal{Instrument: "XAUUSD", Direction: signal.Buy}, nil)
	require.NoError(t, err)

	require.NoError(t, s.UpdateStatus(ctx, a.ID, signal.Pending, signal.Lost, "89"))

	err = s.UpdateStatus(ctx, a.ID, signal.Pending, signal.Won, "111")
	assert.ErrorIs(t, err, signal.ErrStatusConflict)

	got, err := s.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, signal.Lost, got.Status)
	assert.Equal(t, "89", got.ResolvedPrice)

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = s.UpdateStatus(ctx, "nope", signal.Pending, signal.Won, "1")
	assert.ErrorIs(t, err, signal.ErrNotFound)
}

func TestConcurrentUpdate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a, err := s.Create(ctx, &signal.Signal{Instrument: "XAUUSD", Direction: signal.Buy}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var lock sync.Mutex
	var applied int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.UpdateStatus(ctx, a.ID, signal.Pending, signal.Won, "111"); err == nil {
				lock.Lock()
				applied++
				lock.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, applied)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "signals.db")
	s, err := New(path)
	require.NoError(t, err)
	a, err := s.Create(ctx, &signal.Signal{Instrument: "XAUUSD", Direction: signal.Buy}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()
	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)
}
