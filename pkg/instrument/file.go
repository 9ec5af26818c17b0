package instrument

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Version is the instrument file format understood by Load.
const Version = 1

// File is the on-disk instrument table.
//
//	version: 1
//	instruments:
//	  - code: XAUUSD
//	    name: Gold vs US Dollar
//	    category: Metal
//	    tracked: true
//	    symbol: OANDA:XAU_USD
//
// Flipping tracked only enables or disables polling. Signals already stored
// for an instrument are picked up or left alone on the next cycle.
type File struct {
	Version     int          `yaml:"version"`
	Instruments []Instrument `yaml:"instruments"`
}

// Load reads an instrument table from path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("instrument: couldn't read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("instrument: couldn't decode table: %w", err)
	}
	if f.Version != Version {
		return nil, fmt.Errorf("instrument: unsupported table version %d (want %d)", f.Version, Version)
	}
	return New(f.Instruments)
}

// Marshal encodes instruments as a versioned table.
func Marshal(instruments []Instrument) ([]byte, error) {
	data, err := yaml.Marshal(File{Version: Version, Instruments: instruments})
	if err != nil {
		return nil, fmt.Errorf("instrument: couldn't encode table: %w", err)
	}
	return data, nil
}
