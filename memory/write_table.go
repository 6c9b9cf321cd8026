package memory

import (
	"cmp"
	"fmt"

	"fortio.org/safecast"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// WriteValue is a value that can be written to memory by a WriteTable.
// It is implemented by IntValue, BytesValue, and TextValue. Use ValueOf
// to convert an arbitrary Go value.
type WriteValue interface {
	// toBytes normalizes the value into the bytes that will be
	// written at consecutive addresses.
	toBytes(pm PointerMaker) ([]byte, error)
}

// IntValue is an integer that is written as a little endian,
// pointer-sized value.
type IntValue uint64

func (o IntValue) toBytes(pm PointerMaker) ([]byte, error) {
	if !pm.Fits(uint64(o)) {
		return nil, fmt.Errorf("%w: 0x%x does not fit in %d bytes",
			ErrValueOutOfRange, uint64(o), pm.PointerSizeBytes())
	}

	return pm.FromUint(uint64(o)).Bytes(), nil
}

// BytesValue is written to memory as-is.
type BytesValue []byte

func (o BytesValue) toBytes(PointerMaker) ([]byte, error) {
	cp := make([]byte, len(o))
	copy(cp, o)
	return cp, nil
}

// TextValue is encoded as UTF-8 and written to memory without
// a null terminator.
type TextValue string

func (o TextValue) toBytes(PointerMaker) ([]byte, error) {
	return []byte(o), nil
}

// ValueOf converts v into a WriteValue. Integer kinds become an
// IntValue, []byte becomes a BytesValue, and strings become a TextValue.
// Any other type results in ErrInvalidValueType. Negative integers
// result in ErrValueOutOfRange.
func ValueOf(v interface{}) (WriteValue, error) {
	switch t := v.(type) {
	case IntValue:
		return t, nil
	case BytesValue:
		return t, nil
	case TextValue:
		return t, nil
	case []byte:
		return BytesValue(t), nil
	case string:
		return TextValue(t), nil
	case uint:
		return IntValue(t), nil
	case uint8:
		return IntValue(t), nil
	case uint16:
		return IntValue(t), nil
	case uint32:
		return IntValue(t), nil
	case uint64:
		return IntValue(t), nil
	case int:
		return signedValue(int64(t))
	case int8:
		return signedValue(int64(t))
	case int16:
		return signedValue(int64(t))
	case int32:
		return signedValue(int64(t))
	case int64:
		return signedValue(t)
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidValueType, v)
	}
}

func signedValue(i int64) (WriteValue, error) {
	u, err := safecast.Conv[uint64](i)
	if err != nil {
		return nil, fmt.Errorf("%w: %d - %s", ErrValueOutOfRange, i, err)
	}

	return IntValue(u), nil
}

// ByteWrite is a single byte that should be written to an address.
type ByteWrite struct {
	Address uint64
	Value   byte
}

// NewWriteTable creates an empty *WriteTable for a target with the
// specified pointer size (4 or 8 bytes).
func NewWriteTable(pointerSizeBytes int) (*WriteTable, error) {
	pm, err := PointerMakerForSize(pointerSizeBytes)
	if err != nil {
		return nil, err
	}

	return &WriteTable{
		pm:      pm,
		entries: make(map[uint64]byte),
	}, nil
}

// WriteTable tracks the individual bytes to write to memory, keyed
// by address. Multi-byte values are split into one entry per byte.
// Writing to an address that already has an entry replaces it.
//
// A WriteTable is not safe for concurrent use.
type WriteTable struct {
	pm      PointerMaker
	entries map[uint64]byte
}

// Set records value at address. The value's bytes are stored at
// address, address+1, and so on. The table is left unmodified if
// an error occurs.
func (o *WriteTable) Set(address uint64, value WriteValue) error {
	if value == nil {
		return fmt.Errorf("%w: <nil>", ErrInvalidValueType)
	}

	b, err := value.toBytes(o.pm)
	if err != nil {
		return err
	}

	if len(b) == 0 {
		return nil
	}

	last := address + uint64(len(b)-1)
	if last < address || !o.pm.Fits(last) {
		return fmt.Errorf("%w: %d byte write at 0x%x exceeds %d-byte address space",
			ErrValueOutOfRange, len(b), address, o.pm.PointerSizeBytes())
	}

	for i, v := range b {
		o.entries[address+uint64(i)] = v
	}

	return nil
}

// SetAny converts v using ValueOf and records it at address.
func (o *WriteTable) SetAny(address uint64, v interface{}) error {
	value, err := ValueOf(v)
	if err != nil {
		return err
	}

	return o.Set(address, value)
}

// Get returns the byte recorded for address.
func (o *WriteTable) Get(address uint64) (byte, bool) {
	b, hasIt := o.entries[address]
	return b, hasIt
}

// Len returns the number of recorded byte writes.
func (o *WriteTable) Len() int {
	return len(o.entries)
}

// Clear removes all recorded writes.
func (o *WriteTable) Clear() {
	clear(o.entries)
}

// Entries returns the recorded writes ordered by value, and then
// by address. Writing in this order means the number of characters
// printed only ever needs to move forward by the smallest amount.
func (o *WriteTable) Entries() []ByteWrite {
	addrs := maps.Keys(o.entries)

	writes := make([]ByteWrite, 0, len(addrs))
	for _, addr := range addrs {
		writes = append(writes, ByteWrite{
			Address: addr,
			Value:   o.entries[addr],
		})
	}

	slices.SortFunc(writes, func(a, b ByteWrite) int {
		if a.Value != b.Value {
			return cmp.Compare(a.Value, b.Value)
		}
		return cmp.Compare(a.Address, b.Address)
	})

	return writes
}
