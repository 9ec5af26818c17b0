package redis

import (
	"context"
	"testing"
	"time"

	"github.com/igolaizola/sigtrack/pkg/quote/dry"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func TestFallthrough(t *testing.T) {
	// Nothing listens on this port, every cache call fails.
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	src := dry.New()
	src.Set("OANDA:XAU_USD", decimal.NewFromInt(2400))

	var logged int
	c := New(client, "sigtrack", time.Minute, src, func(v ...interface{}) { logged++ })
	price, err := c.Price(context.Background(), "OANDA:XAU_USD")
	if err != nil {
		t.Fatal(err)
	}
	if !price.Equal(decimal.NewFromInt(2400)) {
		t.Errorf("wrong price: %s", price)
	}
	if src.Calls("OANDA:XAU_USD") != 1 {
		t.Errorf("wrapped source should be called once")
	}
	if logged != 2 {
		t.Errorf("want read and write failures logged, got %d", logged)
	}
	if got := c.key("BTCUSDT"); got != "sigtrack:quote:BTCUSDT" {
		t.Errorf("wrong key: %s", got)
	}
}
