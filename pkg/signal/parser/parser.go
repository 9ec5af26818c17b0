package parser

import (
	"errors"

	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/igolaizola/sigtrack/pkg/signal/parser/json"
	"github.com/igolaizola/sigtrack/pkg/signal/parser/text"
)

var ErrNotFound = errors.New("parser: not found")

func NewParser(name string) (signal.Parser, error) {
	switch name {
	case "json":
		return json.Parser{}, nil
	case "text":
		return text.NewParser()
	default:
		return nil, ErrNotFound
	}
}
