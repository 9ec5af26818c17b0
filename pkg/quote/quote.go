package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source returns the latest traded price for a provider symbol.
type Source interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context, symbol string) (decimal.Decimal, error)

func (f SourceFunc) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return f(ctx, symbol)
}

// ErrNoData is returned when the provider has no usable price.
var ErrNoData = errors.New("quote: no data")

// Normalize maps zero or negative prices to ErrNoData. Providers encode a
// missing quote as zero, so a zero price is never a valid one.
func Normalize(symbol string, price decimal.Decimal) (decimal.Decimal, error) {
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("quote: %s: %w", symbol, ErrNoData)
	}
	return price, nil
}

// Mux routes price requests to named sources.
type Mux struct {
	sources  map[string]Source
	fallback string
	timeout  time.Duration
}

// NewMux creates a mux. Requests with an empty provider go to fallback.
// Every call is bounded by timeout when it is positive.
func NewMux(fallback string, timeout time.Duration) *Mux {
	return &Mux{
		sources:  make(map[string]Source),
		fallback: fallback,
		timeout:  timeout,
	}
}

func (m *Mux) Handle(provider string, src Source) {
	m.sources[provider] = src
}

func (m *Mux) Providers() []string {
	var names []string
	for name := range m.sources {
		names = append(names, name)
	}
	return names
}

// Resolve returns the provider that serves requests for provider.
func (m *Mux) Resolve(provider string) string {
	if provider == "" {
		return m.fallback
	}
	return provider
}

func (m *Mux) Price(ctx context.Context, provider, symbol string) (decimal.Decimal, error) {
	provider = m.Resolve(provider)
	src, ok := m.sources[provider]
	if !ok {
		return decimal.Zero, fmt.Errorf("quote: provider %q not configured: %w", provider, ErrNoData)
	}
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	price, err := src.Price(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return Normalize(symbol, price)
}
