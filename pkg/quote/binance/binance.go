package binance

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/igolaizola/sigtrack/pkg/quote"
	"github.com/shopspring/decimal"
)

type Source struct {
	client *binance.Client
}

// New creates a price source for spot symbols such as BTCUSDT. Prices are
// public, so empty keys are fine.
func New(apiKey, apiSecret string) *Source {
	return &Source{
		client: binance.NewClient(apiKey, apiSecret),
	}
}

// WithBaseURL points the client to another API root, tests use it.
func (s *Source) WithBaseURL(u string) *Source {
	s.client.BaseURL = u
	return s
}

func (s *Source) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance: couldn't get price for %s: %w", symbol, err)
	}
	for _, p := range prices {
		if p.Symbol != symbol {
			continue
		}
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return decimal.Zero, fmt.Errorf("binance: couldn't parse price: %s: %w", p.Price, err)
		}
		return quote.Normalize(symbol, price)
	}
	return decimal.Zero, fmt.Errorf("binance: price for %s not found: %w", symbol, quote.ErrNoData)
}
