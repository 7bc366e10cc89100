package protocol

import (
	"errors"
	"strconv"
)

var (
	ErrInvalidDecimal = errors.New("invalid decimal encoding")
	ErrDecimalRange   = errors.New("decimal out of range")
)

// DecodeDecimal parses an unsigned ASCII decimal that must fit in bits.
// Signs and empty input are rejected; leading zeros are accepted.
// It never allocates, so it is safe on the firmware's main loop.
func DecodeDecimal(data []byte, bits uint) (uint64, error) {
	if len(data) == 0 {
		return 0, ErrInvalidDecimal
	}
	if bits == 0 || bits > 64 {
		bits = 64
	}
	limit := ^uint64(0) >> (64 - bits)

	var v uint64
	for _, c := range data {
		if c < '0' || c > '9' {
			return 0, ErrInvalidDecimal
		}
		d := uint64(c - '0')
		if d > limit || v > (limit-d)/10 {
			return 0, ErrDecimalRange
		}
		v = v*10 + d
	}
	return v, nil
}

// AppendDecimal appends v in decimal without sign or leading zeros
func AppendDecimal(dst []byte, v uint64) []byte {
	return strconv.AppendUint(dst, v, 10)
}
