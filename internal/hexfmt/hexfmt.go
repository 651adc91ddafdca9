// Package hexfmt holds the small integer and hexadecimal helpers shared by
// the address model, the trace loader and the command line.
package hexfmt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotHex is returned when a string is not a hexadecimal literal.
var ErrNotHex = errors.New("not a hex literal")

// Uint8 truncates v to its low 8 bits.
func Uint8(v int) uint8 {
	return uint8(v & 0xFF)
}

// Uint16 truncates v to its low 16 bits.
func Uint16(v int) uint16 {
	return uint16(v & 0xFFFF)
}

// Int8 sign-extends the low 8 bits of v.
func Int8(v int) int {
	return int(int8(v))
}

// Int16 sign-extends the low 16 bits of v.
func Int16(v int) int {
	return int(int16(v))
}

// ParseHex parses a hexadecimal literal with an optional 0x or 0X prefix.
// Digits are case-insensitive.
func ParseHex(s string) (uint64, error) {
	digits := s
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		digits = digits[2:]
	}
	if digits == "" {
		return 0, fmt.Errorf("hexfmt: %q: %w", s, ErrNotHex)
	}
	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("hexfmt: %q: %w", s, ErrNotHex)
	}
	return v, nil
}

// IsNumber reports whether s parses as a hexadecimal literal.
func IsNumber(s string) bool {
	_, err := ParseHex(s)
	return err == nil
}

// ToHexWith0X renders v as uppercase hex with a 0x prefix: 0x1A2B.
func ToHexWith0X(v uint64) string {
	return fmt.Sprintf("0x%X", v)
}

// ToHexWithout0X renders v as uppercase hex without prefix: 1A2B.
func ToHexWithout0X(v uint64) string {
	return fmt.Sprintf("%X", v)
}

// LiteralToUpperHex uppercases a literal but keeps the 0x prefix lowercase.
// "0xab" → "0xAB".
func LiteralToUpperHex(s string) string {
	return strings.ReplaceAll(strings.ToUpper(s), "0X", "0x")
}

// Uint8At returns the byte at buf[i].
func Uint8At(buf []byte, i int) uint8 {
	return buf[i]
}

// Uint16At reads a little-endian 16-bit value at buf[i] (high byte at i+1).
// Panics if i+1 is out of range, like a slice index.
func Uint16At(buf []byte, i int) uint16 {
	return Uint16(int(Uint8At(buf, i)) | int(Uint8At(buf, i+1))<<8)
}
