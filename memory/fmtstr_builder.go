package memory

import (
	"bytes"
	"strconv"
)

const (
	// maxByteWriteLen is the number of format string bytes reserved
	// for each byte write. It is the length of the longest padding
	// specifier ("%255c") plus a write specifier with a two digit
	// parameter number ("%99$hhn").
	maxByteWriteLen = 12

	// markerReserveLen is added to the reserved length before it
	// is aligned to the pointer size.
	markerReserveLen = 8

	fillChar = '.'
)

// byteWriteBuilder emits the specifiers that perform byte writes using
// direct parameter access (DPA). Each write is made up of an optional
// padding specifier and a write specifier:
//	%<num-chars>c%<parameter-number>$hhn
//
// The padding specifier ("%<n>c") prints n characters, moving the
// format function's count of printed characters forward. The write
// specifier stores the lowest byte of that count at the address found
// in the parameter. For example, '%192c%9$hhn' writes 0xc0 to the
// address in the 9th parameter, assuming nothing was printed before it.
//
// Refer to the package-level documentation for more information on using
// format strings to read and write memory.
type byteWriteBuilder struct {
	buff *bytes.Buffer

	// printed is the full count of characters printed so far. It is
	// only used for logging; lowByte is what the writes care about.
	printed int

	// lowByte is the lowest byte of the printed characters counter.
	// It intentionally wraps.
	lowByte uint8

	paramNum int
}

func newByteWriteBuilder(printed int, firstParamNum int) *byteWriteBuilder {
	return &byteWriteBuilder{
		buff:     bytes.NewBuffer(nil),
		printed:  printed,
		lowByte:  uint8(printed),
		paramNum: firstParamNum,
	}
}

// appendByteWrite appends the specifiers needed to write value to the
// address stored in the next parameter. The padding specifier is
// omitted when the counter's lowest byte already equals value.
func (o *byteWriteBuilder) appendByteWrite(value byte) {
	delta := value - o.lowByte
	if delta != 0 {
		o.appendPadding(delta)
	}

	o.appendDPAByteWrite(o.paramNum)
	o.paramNum++
}

func (o *byteWriteBuilder) appendPadding(numChars uint8) {
	o.buff.WriteByte('%')
	o.buff.WriteString(strconv.Itoa(int(numChars)))
	o.buff.WriteByte('c')

	o.printed += int(numChars)
	o.lowByte += numChars
}

func (o *byteWriteBuilder) appendDPAByteWrite(paramNum int) {
	o.buff.WriteByte('%')
	o.buff.WriteString(strconv.Itoa(paramNum))
	o.buff.WriteString("$hhn")
}

func (o *byteWriteBuilder) Bytes() []byte {
	return o.buff.Bytes()
}

// reservedLen returns the number of bytes to reserve for the byte write
// specifiers and the marker. The result is always a multiple of the
// pointer size, and always leaves room for the marker reserve.
func reservedLen(numWrites int, pointerSizeBytes int) int {
	l := numWrites * maxByteWriteLen
	return l + markerReserveLen + pointerSizeBytes - l%pointerSizeBytes
}

// alignmentPadding returns the number of bytes needed to align
// alreadyWritten to the pointer size.
func alignmentPadding(alreadyWritten int, pointerSizeBytes int) int {
	rem := alreadyWritten % pointerSizeBytes
	if rem == 0 {
		return 0
	}
	return pointerSizeBytes - rem
}

// marker creates a string that starts with signature and ends with
// a null byte, filled with fillChar so that it is totalLen bytes.
func marker(signature []byte, totalLen int) []byte {
	return append(appendStringWithCharUntilLen(signature, fillChar, totalLen-1), 0)
}

func appendStringWithCharUntilLen(str []byte, c byte, newLen int) []byte {
	res := append([]byte{}, str...)
	if len(res) >= newLen {
		return res
	}

	return append(res, bytes.Repeat([]byte{c}, newLen-len(res))...)
}
