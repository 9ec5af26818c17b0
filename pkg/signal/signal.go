package signal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

type Status string

const (
	Pending Status = "PENDING"
	Won     Status = "WON"
	Lost    Status = "LOST"
)

func (s Status) String() string { return string(s) }

// Terminal reports whether s can't change anymore.
func (s Status) Terminal() bool {
	return s == Won || s == Lost
}

// Signal is a trade prediction awaiting resolution. Prices are kept as the
// raw strings they were submitted with.
type Signal struct {
	ID            string    `json:"id"`
	User          string    `json:"user,omitempty"`
	Instrument    string    `json:"pair"`
	Direction     Direction `json:"direction"`
	Timeframe     string    `json:"timeframe,omitempty"`
	EntryPrice    string    `json:"entry_price"`
	TakeProfit    string    `json:"tp_price"`
	StopLoss      string    `json:"sl_price"`
	Status        Status    `json:"status"`
	Note          string    `json:"analysis_note,omitempty"`
	ChartImage    string    `json:"chart_image,omitempty"`
	CreatedAt     time.Time `json:"created,omitempty"`
	ResolvedAt    time.Time `json:"resolved,omitempty"`
	ResolvedPrice string    `json:"resolved_price,omitempty"`
}

// Resolution is a status transition applied to a signal.
type Resolution struct {
	Signal Signal          `json:"signal"`
	Status Status          `json:"status"`
	Price  decimal.Decimal `json:"price"`
	Time   time.Time       `json:"time"`
}

// Attachment is a file submitted along with a signal.
type Attachment struct {
	Name string
	Data []byte
}

var ErrMissingLevels = errors.New("signal: missing take profit or stop loss")

// Levels parses the take profit and stop loss prices. Missing, unparsable
// or zero values make the signal unresolvable.
func (s *Signal) Levels() (tp decimal.Decimal, sl decimal.Decimal, err error) {
	tp, err = parsePrice(s.TakeProfit)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("signal %s: take profit %q: %w", s.ID, s.TakeProfit, err)
	}
	sl, err = parsePrice(s.StopLoss)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("signal %s: stop loss %q: %w", s.ID, s.StopLoss, err)
	}
	return tp, sl, nil
}

// Entry parses the entry price, zero if it is missing.
func (s *Signal) Entry() decimal.Decimal {
	p, err := parsePrice(s.EntryPrice)
	if err != nil {
		return decimal.Zero
	}
	return p
}

// parsePrice accepts a dot or a single comma as decimal separator. Commas
// are thousands separators when a dot is present or when there are several.
func parsePrice(v string) (decimal.Decimal, error) {
	v = strings.TrimSpace(v)
	if strings.Contains(v, ".") || strings.Count(v, ",") > 1 {
		v = strings.ReplaceAll(v, ",", "")
	} else {
		v = strings.Replace(v, ",", ".", 1)
	}
	if v == "" {
		return decimal.Zero, ErrMissingLevels
	}
	p, err := decimal.NewFromString(v)
	if err != nil || p.IsZero() {
		return decimal.Zero, ErrMissingLevels
	}
	return p, nil
}

// Validate checks the fields required for a new submission.
func (s *Signal) Validate() error {
	if s.User == "" || s.Instrument == "" || s.Direction == "" || strings.TrimSpace(s.EntryPrice) == "" {
		return errors.New("signal: missing required fields")
	}
	return nil
}

// Parser decodes a signal from a message.
type Parser interface {
	Parse(text string) (*Signal, error)
}
