package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/igolaizola/sigtrack/pkg/quote"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://finnhub.io/api/v1"

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func New(token string) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the client to another API root, tests use it.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

type quoteResponse struct {
	Current   json.Number `json:"c"`
	Timestamp int64       `json:"t"`
}

// Price returns the current price of symbol, e.g. OANDA:XAU_USD.
func (c *Client) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("token", c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("finnhub: couldn't create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("finnhub: couldn't get quote for %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("finnhub: quote for %s returned %s: %s", symbol, resp.Status, body)
	}

	var r quoteResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return decimal.Zero, fmt.Errorf("finnhub: couldn't decode quote for %s: %w", symbol, err)
	}
	if r.Current == "" {
		return quote.Normalize(symbol, decimal.Zero)
	}
	price, err := decimal.NewFromString(r.Current.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("finnhub: couldn't parse price %s: %w", r.Current, err)
	}
	return quote.Normalize(symbol, price)
}

// Ping checks the api key by requesting a stock quote, which every plan
// serves.
func (c *Client) Ping(ctx context.Context) (decimal.Decimal, error) {
	price, err := c.Price(ctx, "AAPL")
	if err != nil {
		return decimal.Zero, fmt.Errorf("finnhub: ping failed, check api key: %w", err)
	}
	return price, nil
}
