package instrument

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Category string

const (
	Metal  Category = "Metal"
	Major  Category = "Major"
	Minor  Category = "Minor"
	Exotic Category = "Exotic"
	Index  Category = "Index"
	Crypto Category = "Crypto"
)

func (c Category) Valid() bool {
	switch c {
	case Metal, Major, Minor, Exotic, Index, Crypto:
		return true
	}
	return false
}

// Instrument is a tradable symbol. Only tracked instruments are polled for
// prices, using Symbol on the quote provider named by Provider.
type Instrument struct {
	Code     string   `yaml:"code"`
	Name     string   `yaml:"name"`
	Category Category `yaml:"category"`
	Tracked  bool     `yaml:"tracked"`
	Symbol   string   `yaml:"symbol,omitempty"`
	Provider string   `yaml:"provider,omitempty"`
}

var ErrInvalid = errors.New("invalid instrument")

// Registry is a read-only lookup table over instruments.
type Registry struct {
	byCode map[string]Instrument
	order  []string
}

func New(instruments []Instrument) (*Registry, error) {
	r := &Registry{
		byCode: make(map[string]Instrument, len(instruments)),
	}
	for _, in := range instruments {
		in.Code = strings.TrimSpace(in.Code)
		in.Symbol = strings.TrimSpace(in.Symbol)
		in.Provider = strings.ToLower(strings.TrimSpace(in.Provider))
		if in.Code == "" {
			return nil, fmt.Errorf("instrument: empty code: %w", ErrInvalid)
		}
		if _, ok := r.byCode[in.Code]; ok {
			return nil, fmt.Errorf("instrument: duplicated code %s: %w", in.Code, ErrInvalid)
		}
		if in.Category != "" && !in.Category.Valid() {
			return nil, fmt.Errorf("instrument: %s has unknown category %q: %w", in.Code, in.Category, ErrInvalid)
		}
		if in.Tracked && in.Symbol == "" {
			return nil, fmt.Errorf("instrument: %s is tracked but has no quote symbol: %w", in.Code, ErrInvalid)
		}
		r.byCode[in.Code] = in
		r.order = append(r.order, in.Code)
	}
	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(instruments []Instrument) *Registry {
	r, err := New(instruments)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(code string) (Instrument, bool) {
	in, ok := r.byCode[code]
	return in, ok
}

// IsTracked reports whether prices are polled for code. Unknown codes are
// not tracked.
func (r *Registry) IsTracked(code string) bool {
	in, ok := r.byCode[code]
	return ok && in.Tracked
}

// QuoteSymbolFor returns the provider symbol of a tracked instrument.
func (r *Registry) QuoteSymbolFor(code string) (string, bool) {
	in, ok := r.byCode[code]
	if !ok || !in.Tracked || in.Symbol == "" {
		return "", false
	}
	return in.Symbol, true
}

// ProviderFor returns the quote provider of code, empty for the default one.
func (r *Registry) ProviderFor(code string) string {
	return r.byCode[code].Provider
}

// All returns every instrument in load order.
func (r *Registry) All() []Instrument {
	out := make([]Instrument, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.byCode[code])
	}
	return out
}

// Tracked returns the tracked instruments sorted by code.
func (r *Registry) Tracked() []Instrument {
	var out []Instrument
	for _, in := range r.byCode {
		if in.Tracked {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Code < out[j].Code
	})
	return out
}

// Codes returns the codes of the given instruments.
func Codes(instruments []Instrument) []string {
	codes := make([]string, 0, len(instruments))
	for _, in := range instruments {
		codes = append(codes, in.Code)
	}
	return codes
}
