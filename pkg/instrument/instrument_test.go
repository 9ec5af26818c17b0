package instrument

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestRegistry(t *testing.T) {
	reg, err := New(Default())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		code    string
		tracked bool
		symbol  string
	}{
		{code: "XAUUSD", tracked: true, symbol: "OANDA:XAU_USD"},
		{code: "EURUSD", tracked: false},
		{code: "XAGUSD", tracked: false},
		{code: "UNKNOWN", tracked: false},
		{code: "", tracked: false},
	}
	for _, tt := range tests {
		if got := reg.IsTracked(tt.code); got != tt.tracked {
			t.Errorf("%s: tracked: want %t, got %t", tt.code, tt.tracked, got)
		}
		symbol, ok := reg.QuoteSymbolFor(tt.code)
		if ok != (tt.symbol != "") || symbol != tt.symbol {
			t.Errorf("%s: symbol: want %q, got %q (%t)", tt.code, tt.symbol, symbol, ok)
		}
	}

	if got := Codes(reg.Tracked()); !reflect.DeepEqual(got, []string{"XAUUSD"}) {
		t.Errorf("wrong tracked instruments: %v", got)
	}
	if got := len(reg.All()); got != len(Default()) {
		t.Errorf("wrong number of instruments: want %d, got %d", len(Default()), got)
	}
}

func TestNewInvalid(t *testing.T) {
	tests := []struct {
		name        string
		instruments []Instrument
	}{
		{
			name:        "tracked without symbol",
			instruments: []Instrument{{Code: "XAGUSD", Tracked: true}},
		},
		{
			name:        "duplicated code",
			instruments: []Instrument{{Code: "XAUUSD"}, {Code: "XAUUSD"}},
		},
		{
			name:        "empty code",
			instruments: []Instrument{{Name: "nothing"}},
		},
		{
			name:        "unknown category",
			instruments: []Instrument{{Code: "XAUUSD", Category: "Commodity"}},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.instruments)
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("want ErrInvalid, got %v", err)
			}
		})
	}
}

func TestProviderFor(t *testing.T) {
	reg := MustNew([]Instrument{
		{Code: "BTCUSD", Tracked: true, Symbol: "BTCUSDT", Provider: " Binance "},
		{Code: "XAUUSD", Tracked: true, Symbol: "OANDA:XAU_USD"},
	})
	if got := reg.ProviderFor("BTCUSD"); got != "binance" {
		t.Errorf("want binance, got %q", got)
	}
	if got := reg.ProviderFor("XAUUSD"); got != "" {
		t.Errorf("want default provider, got %q", got)
	}
	if got := reg.ProviderFor("UNKNOWN"); got != "" {
		t.Errorf("want empty provider, got %q", got)
	}
}

func TestLoad(t *testing.T) {
	data, err := Marshal([]Instrument{
		{Code: "XAUUSD", Name: "Gold vs US Dollar", Category: Metal, Tracked: true, Symbol: "OANDA:XAU_USD"},
		{Code: "EURUSD", Name: "Euro vs US Dollar", Category: Major, Symbol: "OANDA:EUR_USD"},
	})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "instruments.yaml")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	reg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reg.IsTracked("XAUUSD") || reg.IsTracked("EURUSD") {
		t.Errorf("wrong tracked flags after load")
	}
	in, ok := reg.Get("EURUSD")
	if !ok || in.Category != Major || in.Name != "Euro vs US Dollar" {
		t.Errorf("wrong instrument after load: %+v", in)
	}
}

func TestParseVersion(t *testing.T) {
	_, err := Parse([]byte("version: 2\ninstruments: []\n"))
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
	reg, err := Parse([]byte("version: 1\ninstruments:\n  - code: XAUUSD\n    tracked: true\n    symbol: OANDA:XAU_USD\n"))
	if err != nil {
		t.Fatal(err)
	}
	if symbol, _ := reg.QuoteSymbolFor("XAUUSD"); symbol != "OANDA:XAU_USD" {
		t.Errorf("wrong symbol: %s", symbol)
	}
}
