package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMux(t *testing.T) {
	mux := NewMux("finnhub", time.Second)
	mux.Handle("finnhub", SourceFunc(func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a deadline on the price call")
		}
		switch symbol {
		case "OANDA:XAU_USD":
			return decimal.NewFromFloat(2345.6), nil
		case "OANDA:EUR_USD":
			return decimal.Zero, nil
		}
		return decimal.Zero, errors.New("unknown symbol")
	}))
	mux.Handle("binance", SourceFunc(func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		return decimal.NewFromInt(60000), nil
	}))

	tests := []struct {
		name     string
		provider string
		symbol   string
		want     decimal.Decimal
		noData   bool
		wantErr  bool
	}{
		{name: "default provider", symbol: "OANDA:XAU_USD", want: decimal.NewFromFloat(2345.6)},
		{name: "named provider", provider: "binance", symbol: "BTCUSDT", want: decimal.NewFromInt(60000)},
		{name: "zero price", symbol: "OANDA:EUR_USD", noData: true, wantErr: true},
		{name: "unknown provider", provider: "oanda", symbol: "XAU_USD", noData: true, wantErr: true},
		{name: "source error", symbol: "FOO", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := mux.Price(context.Background(), tt.provider, tt.symbol)
			if err != nil {
				if !tt.wantErr {
					t.Fatal(err)
				}
				if tt.noData != errors.Is(err, ErrNoData) {
					t.Errorf("wrong no data error: %v", err)
				}
				return
			}
			if tt.wantErr {
				t.Fatal("expected error")
			}
			if !got.Equal(tt.want) {
				t.Errorf("want %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if _, err := Normalize("X", decimal.NewFromInt(-1)); !errors.Is(err, ErrNoData) {
		t.Errorf("negative price should be no data: %v", err)
	}
	if p, err := Normalize("X", decimal.NewFromFloat(0.0001)); err != nil || !p.Equal(decimal.NewFromFloat(0.0001)) {
		t.Errorf("small price should be kept: %s %v", p, err)
	}
}

func TestMuxResolve(t *testing.T) {
	mux := NewMux("finnhub", 0)
	if got := mux.Resolve(""); got != "finnhub" {
		t.Errorf("want finnhub, got %q", got)
	}
	if got := mux.Resolve("binance"); got != "binance" {
		t.Errorf("want binance, got %q", got)
	}
}
