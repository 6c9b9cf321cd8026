package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
	"gitlab.com/stephen-fox/fmtkit/conv"
	"gitlab.com/stephen-fox/fmtkit/memory"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v2"
)

var (
	errInvalidPlan      = errors.New("invalid plan")
	errUnknownPlanType  = errors.New("unknown plan file type")
	errNoWriteTarget    = errors.New("write must specify exactly one of 'address' or 'symbol'")
	errNoWriteValue     = errors.New("write must specify exactly one of 'int', 'bytes', 'hex', or 'text'")
	errSymbolsNoContext = errors.New("plan has symbols but no context")
	errContextNoSymbols = errors.New("plan context has no symbols")
)

// plan describes a target environment and the writes to perform in it.
type plan struct {
	PointerSize int                          `toml:"pointer_size" yaml:"pointer_size"`
	Offset      int                          `toml:"offset" yaml:"offset"`
	Written     int                          `toml:"written" yaml:"written"`
	Signature   string                       `toml:"signature" yaml:"signature"`
	Context     string                       `toml:"context" yaml:"context"`
	Symbols     map[string]map[string]uint64 `toml:"symbols" yaml:"symbols"`
	Writes      []planWrite                  `toml:"writes" yaml:"writes"`
}

type planWrite struct {
	Address *uint64 `toml:"address" yaml:"address"`
	Symbol  string  `toml:"symbol" yaml:"symbol"`
	Int     *uint64 `toml:"int" yaml:"int"`
	Bytes   []int   `toml:"bytes" yaml:"bytes"`
	Hex     string  `toml:"hex" yaml:"hex"`
	Text    *string `toml:"text" yaml:"text"`
}

// loadPlan decodes a plan file. The file's extension selects the decoder.
func loadPlan(filePath string) (*plan, error) {
	var p plan

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".toml":
		_, err := toml.DecodeFile(filePath, &p)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse TOML - %w", filePath, err)
		}
	case ".yaml", ".yml":
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}

		err = yaml.UnmarshalStrict(raw, &p)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to parse YAML - %w", filePath, err)
		}
	default:
		return nil, fmt.Errorf("%w: '%s' (expected .toml, .yaml, or .yml)",
			errUnknownPlanType, filePath)
	}

	return &p, nil
}

// addressTable returns a table of the plan's symbols with the
// plan's context selected.
func (o *plan) addressTable() (*memory.AddressTable, error) {
	table := memory.NewAddressTable(o.Context)

	if len(o.Symbols) > 0 && o.Context == "" {
		return nil, errSymbolsNoContext
	}

	for ctx, symbols := range o.Symbols {
		for symbol, address := range symbols {
			table.AddSymbolInContext(symbol, address, ctx)
		}
	}

	contexts := table.Contexts()
	if len(contexts) > 0 && !slices.Contains(contexts, table.CurrentContext()) {
		return nil, fmt.Errorf("%w: '%s' (available contexts: %s)",
			errContextNoSymbols, table.CurrentContext(), strings.Join(contexts, ", "))
	}

	return table, nil
}

// apply records the plan's writes in w.
func (o *plan) apply(w *memory.FormatStringWriter) error {
	symbols, err := o.addressTable()
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidPlan, err)
	}

	for i, write := range o.Writes {
		err := write.apply(w, symbols)
		if err != nil {
			return fmt.Errorf("%w: write %d - %w", errInvalidPlan, i, err)
		}
	}

	return nil
}

func (o planWrite) apply(w *memory.FormatStringWriter, symbols *memory.AddressTable) error {
	address, err := o.address(symbols)
	if err != nil {
		return err
	}

	value, err := o.value()
	if err != nil {
		return err
	}

	return w.Set(address, value)
}

func (o planWrite) address(symbols *memory.AddressTable) (uint64, error) {
	switch {
	case o.Address != nil && o.Symbol == "":
		return *o.Address, nil
	case o.Address == nil && o.Symbol != "":
		return symbols.Address(o.Symbol)
	default:
		return 0, errNoWriteTarget
	}
}

func (o planWrite) value() (memory.WriteValue, error) {
	var values []memory.WriteValue

	if o.Int != nil {
		values = append(values, memory.IntValue(*o.Int))
	}

	if o.Bytes != nil {
		b := make([]byte, len(o.Bytes))
		for i, n := range o.Bytes {
			u8, err := safecast.Conv[uint8](n)
			if err != nil {
				return nil, fmt.Errorf("byte %d is out of range (%d) - %w", i, n, err)
			}
			b[i] = u8
		}

		values = append(values, memory.BytesValue(b))
	}

	if o.Hex != "" {
		b, err := conv.HexStringToBytes(o.Hex)
		if err != nil {
			return nil, fmt.Errorf("failed to decode hex value - %w", err)
		}

		values = append(values, memory.BytesValue(b))
	}

	if o.Text != nil {
		values = append(values, memory.TextValue(*o.Text))
	}

	if len(values) != 1 {
		return nil, errNoWriteValue
	}

	return values[0], nil
}
