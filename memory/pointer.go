package memory

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
)

// PointerMakerForX86_32 returns a PointerMaker for 32-bit x86 targets.
func PointerMakerForX86_32() PointerMaker {
	return PointerMaker{
		byteOrder: binary.LittleEndian,
		ptrSize:   4,
	}
}

// PointerMakerForX86_64 returns a PointerMaker for 64-bit x86 targets.
func PointerMakerForX86_64() PointerMaker {
	return PointerMaker{
		byteOrder: binary.LittleEndian,
		ptrSize:   8,
	}
}

// PointerMakerForSize returns a little endian PointerMaker for the
// specified pointer size. Only 4 and 8 byte pointers are supported.
func PointerMakerForSize(pointerSizeBytes int) (PointerMaker, error) {
	switch pointerSizeBytes {
	case 4:
		return PointerMakerForX86_32(), nil
	case 8:
		return PointerMakerForX86_64(), nil
	default:
		return PointerMaker{}, fmt.Errorf("%w: %d", ErrUnsupportedPointerSize, pointerSizeBytes)
	}
}

// PointerMaker packs integers into pointer-sized []byte using the
// target's endianness.
type PointerMaker struct {
	byteOrder binary.ByteOrder
	ptrSize   int
}

// PointerSizeBytes returns the size of the pointers created by the maker.
func (o PointerMaker) PointerSizeBytes() int {
	return o.ptrSize
}

// Fits returns true if address can be represented by a pointer
// without truncation.
func (o PointerMaker) Fits(address uint64) bool {
	if o.ptrSize == 8 {
		return true
	}

	_, err := safecast.Conv[uint32](address)
	return err == nil
}

// FromUint creates a Pointer from an unsigned integer. Bits that
// do not fit in the pointer are discarded. Use Fits to check
// the value beforehand.
func (o PointerMaker) FromUint(address uint64) Pointer {
	out := make([]byte, o.ptrSize)
	switch o.ptrSize {
	case 4:
		o.byteOrder.PutUint32(out, uint32(address))
	case 8:
		o.byteOrder.PutUint64(out, address)
	default:
		panic(fmt.Sprintf("unsupported pointer size: %d", o.ptrSize))
	}

	return Pointer{
		raw:       out,
		byteOrder: o.byteOrder,
	}
}

// Pointer represents a memory address as it would appear in
// the target's memory.
type Pointer struct {
	raw       []byte
	byteOrder binary.ByteOrder
}

// Bytes returns the pointer's raw bytes.
func (o Pointer) Bytes() []byte {
	return o.raw
}

// Uint returns the pointer as an unsigned integer.
func (o Pointer) Uint() uint64 {
	switch len(o.raw) {
	case 4:
		return uint64(o.byteOrder.Uint32(o.raw))
	case 8:
		return o.byteOrder.Uint64(o.raw)
	default:
		return 0
	}
}

// HexString returns the pointer's address as a hex string
// prefixed with "0x", zero-padded to the pointer's size.
func (o Pointer) HexString() string {
	return fmt.Sprintf("0x%0*x", len(o.raw)*2, o.Uint())
}
