package telegram

import (
	"context"
	"strings"
	"testing"

	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func TestAnnounce(t *testing.T) {
	tests := []struct {
		status signal.Status
		want   string
	}{
		{status: signal.Won, want: "✅ XAUUSD BUY take profit hit at `2361.2`\nentry 2345.5 · tp 2360 · sl 2330\nby u1"},
		{status: signal.Lost, want: "❌ XAUUSD BUY stop loss hit at `2361.2`\nentry 2345.5 · tp 2360 · sl 2330\nby u1"},
	}
	for _, tt := range tests {
		got := Announce(signal.Resolution{
			Signal: signal.Signal{
				User:       "u1",
				Instrument: "XAUUSD",
				Direction:  signal.Buy,
				EntryPrice: "2345.5",
				TakeProfit: "2360",
				StopLoss:   "2330",
			},
			Status: tt.status,
			Price:  decimal.RequireFromString("2361.2"),
		})
		if got != tt.want {
			t.Errorf("want %q, got %q", tt.want, got)
		}
	}
}

func TestPublishQueue(t *testing.T) {
	b := newBot(zerolog.Nop())
	b.Print("cycle", 1, "done")
	if msg := <-b.messages; msg != "cycle 1 done" {
		t.Errorf("wrong message: %q", msg)
	}

	r := signal.Resolution{Signal: signal.Signal{ID: "1"}, Status: signal.Won}
	for i := 0; i < cap(b.messages); i++ {
		if err := b.Publish(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Publish(context.Background(), r); err == nil {
		t.Fatal("expected error when queue is full")
	}
	if msg := <-b.messages; !strings.HasPrefix(msg, "✅") {
		t.Errorf("wrong message: %q", msg)
	}
}
