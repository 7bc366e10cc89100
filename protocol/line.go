package protocol

import (
	"errors"
	"unicode/utf8"
)

var (
	ErrInvalidFrame = errors.New("frame is not valid text")
	ErrFrameTooLong = errors.New("frame exceeds buffer without delimiter")
	ErrIncomplete   = errors.New("no complete frame buffered")
)

// SplitLine returns the first complete frame in data (delimiter
// included) and the bytes that follow it. ok is false when no delimiter
// has been seen yet; data is then left untouched. It never allocates.
func SplitLine(data []byte) (frame, rest []byte, ok bool) {
	for i, c := range data {
		if c == Delimiter {
			return data[:i+1], data[i+1:], true
		}
	}
	return nil, data, false
}

// LineDecoder pulls newline-delimited frames out of an InputBuffer
type LineDecoder struct {
	in InputBuffer
}

// NewLineDecoder creates a decoder reading from in
func NewLineDecoder(in InputBuffer) *LineDecoder {
	return &LineDecoder{in: in}
}

// Decode returns the next complete frame, delimiter included.
// ErrIncomplete means more input is needed and nothing was consumed.
// ErrInvalidFrame means a complete frame was consumed but is not valid
// UTF-8 text.
func (d *LineDecoder) Decode() ([]byte, error) {
	data := d.in.Data()
	frame, _, ok := SplitLine(data)
	if !ok {
		return nil, ErrIncomplete
	}
	line := make([]byte, len(frame))
	copy(line, frame)
	d.in.Pop(len(frame))

	if !utf8.Valid(line) {
		return nil, ErrInvalidFrame
	}
	return line, nil
}
