package dry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/igolaizola/sigtrack/pkg/quote"
	"github.com/shopspring/decimal"
)

// Source serves prices set by hand. It is used in dry mode and tests.
type Source struct {
	lock   sync.RWMutex
	prices map[string]decimal.Decimal
	errs   map[string]error
	calls  map[string]int
}

func New() *Source {
	return &Source{
		prices: make(map[string]decimal.Decimal),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// Parse builds a source from a list like "OANDA:XAU_USD=2400,BTCUSDT=64000".
func Parse(list string) (*Source, error) {
	s := New()
	for _, kv := range strings.Split(list, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		i := strings.LastIndex(kv, "=")
		if i <= 0 {
			return nil, fmt.Errorf("dry: invalid price %q", kv)
		}
		price, err := decimal.NewFromString(kv[i+1:])
		if err != nil {
			return nil, fmt.Errorf("dry: couldn't parse price %q: %w", kv, err)
		}
		s.Set(kv[:i], price)
	}
	return s, nil
}

func (s *Source) Set(symbol string, price decimal.Decimal) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.prices[symbol] = price
	delete(s.errs, symbol)
}

// Fail makes every request for symbol return err.
func (s *Source) Fail(symbol string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.errs[symbol] = err
}

// Calls returns how many times symbol was requested.
func (s *Source) Calls(symbol string) int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.calls[symbol]
}

func (s *Source) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls[symbol]++
	if err, ok := s.errs[symbol]; ok {
		return decimal.Zero, err
	}
	price, ok := s.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("dry: %s: %w", symbol, quote.ErrNoData)
	}
	return quote.Normalize(symbol, price)
}
