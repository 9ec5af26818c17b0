package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/shopspring/decimal"
)

func TestEncode(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	data, err := encode(signal.Resolution{
		Signal: signal.Signal{ID: "s1", Instrument: "XAUUSD", Direction: signal.Buy, TakeProfit: "2360", StopLoss: "2330"},
		Status: signal.Won,
		Price:  decimal.RequireFromString("2361.5"),
		Time:   now,
	})
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{
		"id":        "s1",
		"pair":      "XAUUSD",
		"direction": "BUY",
		"status":    "WON",
		"price":     "2361.5",
		"tp_price":  "2360",
		"sl_price":  "2330",
		"time":      float64(now.UnixMilli()),
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: want %v, got %v", k, v, got[k])
		}
	}
}
