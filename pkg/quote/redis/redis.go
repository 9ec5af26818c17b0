package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/igolaizola/sigtrack/pkg/quote"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Cache is a read-through price cache in front of another source. Entries
// live for ttl; cache failures fall through to the wrapped source.
type Cache struct {
	client redis.Cmdable
	next   quote.Source
	prefix string
	ttl    time.Duration
	log    func(v ...interface{})
}

func New(client redis.Cmdable, prefix string, ttl time.Duration, next quote.Source, log func(v ...interface{})) *Cache {
	return &Cache{
		client: client,
		next:   next,
		prefix: prefix,
		ttl:    ttl,
		log:    log,
	}
}

func (c *Cache) key(symbol string) string {
	return fmt.Sprintf("%s:quote:%s", c.prefix, symbol)
}

func (c *Cache) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	val, err := c.client.Get(ctx, c.key(symbol)).Result()
	switch {
	case err == nil:
		price, perr := decimal.NewFromString(val)
		if perr == nil && price.Sign() > 0 {
			return price, nil
		}
		c.log(fmt.Sprintf("redis: discarding cached price %q for %s", val, symbol))
	case errors.Is(err, redis.Nil):
	default:
		c.log(fmt.Errorf("redis: couldn't read cached price for %s: %w", symbol, err))
	}

	price, err := c.next.Price(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	price, err = quote.Normalize(symbol, price)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.client.Set(ctx, c.key(symbol), price.String(), c.ttl).Err(); err != nil {
		c.log(fmt.Errorf("redis: couldn't cache price for %s: %w", symbol, err))
	}
	return price, nil
}
