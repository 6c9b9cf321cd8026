// Package memory provides functionality for writing memory using
// format strings.
//
// This API is heavily influenced by the 'pwntools' Python library,
// and the 'pwn' Go library by Tnze.
//
// Writing memory with format strings
//
// Misuse of the format family of C functions can spell disaster. When
// user input is used as the format string, the "%n" family of specifiers
// can be combined with direct parameter access (DPA) to write the number
// of characters printed so far to an address on the stack. By placing
// addresses in the format string itself, and referring to them by their
// parameter number, an attacker can write to arbitrary addresses.
//
// The FormatStringWriter type builds such format strings. It writes one
// byte at a time using "%<N>$hhn", and uses "%<count>c" to move the count
// of printed characters to the desired byte value. The writes are sorted
// by value so that the count only ever needs to move forward a little,
// which keeps the amount of output the target has to print low.
//
// This library takes special care to place target memory addresses
// at the end of the format string, after a null byte. This avoids
// situations when a null byte in an address would unexpectedly terminate
// the format string. Format strings are also padded so that the addresses
// align with the size of a pointer on the target system. This guarantees
// that each address can be referred to by a parameter number.
//
// Please refer to "Exploiting Format String Vulnerabilities" by Team Teso
// for an introduction to the subject:
// https://crypto.stanford.edu/cs155old/cs155-spring08/papers/formatstring-1.2.pdf
package memory
