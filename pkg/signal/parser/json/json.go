package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/igolaizola/sigtrack/pkg/signal"
)

type Parser struct{}

// price accepts both JSON strings and numbers.
type price string

func (p *price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = price(n.String())
	return nil
}

type jsonSignal struct {
	User       string `json:"user"`
	Pair       string `json:"pair"`
	Direction  string `json:"direction"`
	Timeframe  string `json:"timeframe"`
	EntryPrice price  `json:"entry_price"`
	TPPrice    price  `json:"tp_price"`
	SLPrice    price  `json:"sl_price"`
	Status     string `json:"status"`
	Note       string `json:"analysis_note"`
}

func (p Parser) Parse(text string) (*signal.Signal, error) {
	var js jsonSignal
	if err := json.Unmarshal([]byte(text), &js); err != nil {
		return nil, fmt.Errorf("json: couldn't parse signal (%s): %w", text, err)
	}
	s := &signal.Signal{
		User:       strings.TrimSpace(js.User),
		Instrument: strings.ToUpper(strings.TrimSpace(js.Pair)),
		Direction:  signal.Direction(strings.ToUpper(strings.TrimSpace(js.Direction))),
		Timeframe:  js.Timeframe,
		EntryPrice: string(js.EntryPrice),
		TakeProfit: string(js.TPPrice),
		StopLoss:   string(js.SLPrice),
		Status:     signal.Status(strings.ToUpper(js.Status)),
		Note:       js.Note,
	}
	if s.Status == "" {
		s.Status = signal.Pending
	}
	return s, nil
}
