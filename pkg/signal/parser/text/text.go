package text

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/shopspring/decimal"
)

// Parser reads signals posted as chat messages:
//
//	XAUUSD BUY H1
//	Entry: 2345.5
//	TP: 2360
//	SL: 2330
type parser struct {
	text *regexp.Regexp
	nums *regexp.Regexp
}

func NewParser() (signal.Parser, error) {
	text, err := regexp.Compile(`[A-Z0-9]+`)
	if err != nil {
		return nil, fmt.Errorf("text: couldn't create regex: %w", err)
	}
	nums, err := regexp.Compile(`(?::|;|=)\s*([0-9]+(?:(?:\.|,)[0-9]+)?)`)
	if err != nil {
		return nil, fmt.Errorf("text: couldn't create regex: %w", err)
	}
	return &parser{
		text: text,
		nums: nums,
	}, nil
}

func (p *parser) Parse(text string) (*signal.Signal, error) {
	if strings.Contains(text, "✅") || strings.Contains(text, "❌") {
		return nil, errors.New("text: signal has already been resolved")
	}
	text = strings.ToUpper(strings.TrimSpace(text))
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 4 {
		return nil, fmt.Errorf("text: signal hasn't enough lines: %d", len(lines))
	}

	header := p.text.FindAllString(lines[0], -1)
	if len(header) < 2 {
		return nil, fmt.Errorf("text: couldn't parse instrument and direction: %s", lines[0])
	}
	s := &signal.Signal{
		Instrument: header[0],
		Direction:  signal.Direction(header[1]),
		Status:     signal.Pending,
	}
	if s.Direction != signal.Buy && s.Direction != signal.Sell {
		return nil, fmt.Errorf("text: invalid direction %s", header[1])
	}
	if len(header) > 2 {
		s.Timeframe = header[2]
	}

	for i, line := range lines[1:4] {
		matches := p.nums.FindStringSubmatch(line)
		if len(matches) < 2 {
			return nil, fmt.Errorf("text: price not found in line: %s", line)
		}
		match := strings.Replace(matches[1], ",", ".", 1)
		if _, err := decimal.NewFromString(match); err != nil {
			return nil, fmt.Errorf("text: couldn't parse price %s: %w", match, err)
		}
		switch i {
		case 0:
			s.EntryPrice = match
		case 1:
			s.TakeProfit = match
		case 2:
			s.StopLoss = match
		}
	}
	if len(lines) > 4 {
		s.Note = strings.Join(lines[4:], "\n")
	}
	return s, nil
}
