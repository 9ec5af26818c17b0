package inmem

import (
	"context"
	"errors"
	"testing"

	"github.com/igolaizola/sigtrack/pkg/signal"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	a, err := s.Create(ctx, &signal.Signal{Instrument: "XAUUSD", Direction: signal.Buy, TakeProfit: "110", StopLoss: "90"}, &signal.Attachment{Name: "chart.png", Data: []byte{1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == "" || a.Status != signal.Pending || a.ChartImage != "chart.png" {
		t.Fatalf("wrong created signal: %+v", a)
	}
	b, err := s.Create(ctx, &signal.Signal{Instrument: "EURUSD", Direction: signal.Sell}, nil)
	if err != nil {
		t.Fatal(err)
	}

	pending, err := s.ListPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("want 2 pending, got %d", len(pending))
	}

	if err := s.UpdateStatus(ctx, a.ID, signal.Pending, signal.Won, "111"); err != nil {
		t.Fatal(err)
	}
	err = s.UpdateStatus(ctx, a.ID, signal.Pending, signal.Lost, "89")
	if !errors.Is(err, signal.ErrStatusConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
	got, _ := s.Get(a.ID)
	if got.Status != signal.Won || got.ResolvedPrice != "111" || got.ResolvedAt.IsZero() {
		t.Errorf("wrong resolved signal: %+v", got)
	}
	if err := s.UpdateStatus(ctx, "missing", signal.Pending, signal.Won, "1"); !errors.Is(err, signal.ErrNotFound) {
		t.Errorf("want not found, got %v", err)
	}

	pending, _ = s.ListPending(ctx)
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Errorf("wrong pending signals: %v", pending)
	}
	if c, ok := s.Chart(a.ID); !ok || len(c.Data) != 2 {
		t.Errorf("chart not stored")
	}
}
