package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/igolaizola/sigtrack/pkg/quote"
	"github.com/shopspring/decimal"
)

func TestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch symbol := r.URL.Query().Get("symbol"); symbol {
		case "BTCUSDT":
			fmt.Fprint(w, `[{"symbol":"BTCUSDT","price":"64123.45000000"}]`)
		case "DEADUSDT":
			fmt.Fprint(w, `[{"symbol":"DEADUSDT","price":"0.00000000"}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	}))
	defer srv.Close()

	s := New("", "").WithBaseURL(srv.URL)
	ctx := context.Background()

	price, err := s.Price(ctx, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if want := decimal.RequireFromString("64123.45"); !price.Equal(want) {
		t.Errorf("want %s, got %s", want, price)
	}
	for _, symbol := range []string{"DEADUSDT", "NOPEUSDT"} {
		if _, err := s.Price(ctx, symbol); !errors.Is(err, quote.ErrNoData) {
			t.Errorf("%s: want no data, got %v", symbol, err)
		}
	}
}
