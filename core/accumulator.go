package core

import "pwmlink/protocol"

// overflowMark replaces a line that did not fit the accumulator. It is
// not a command tag, so the main loop answers the line with an error.
const overflowMark = 0xFF

// accumulator collects received bytes until the main loop takes whole
// lines out of it. At most FrameSize bytes are buffered; a line that
// would grow past that is discarded up to its delimiter and stands in
// the queue as a single marked line.
type accumulator struct {
	buf       [FrameSize + 2]byte
	n         int
	lineStart int // index just past the last buffered delimiter
	dropping  bool
	lost      uint8 // marked lines that had no room for their marker
}

// write appends received bytes and returns how many lines overflowed
func (a *accumulator) write(p []byte) (overflows int) {
	for _, c := range p {
		if a.dropping {
			if c == protocol.Delimiter {
				a.dropping = false
				a.markLine()
			}
			continue
		}
		if a.n >= FrameSize {
			overflows++
			a.n = a.lineStart
			if c == protocol.Delimiter {
				a.markLine()
			} else {
				a.dropping = true
			}
			continue
		}
		a.buf[a.n] = c
		a.n++
		if c == protocol.Delimiter {
			a.lineStart = a.n
		}
	}
	return overflows
}

func (a *accumulator) markLine() {
	if a.n+2 > len(a.buf) {
		if a.lost < 0xFF {
			a.lost++
		}
		return
	}
	a.buf[a.n] = overflowMark
	a.buf[a.n+1] = protocol.Delimiter
	a.n += 2
	a.lineStart = a.n
}

// pending reports whether a complete line, or a marker for a lost one,
// is waiting
func (a *accumulator) pending() bool {
	return a.lineStart > 0 || a.lost > 0
}

// takeLine moves the oldest complete line, delimiter included, into dst
// and returns its length. A lost line comes back as length zero.
func (a *accumulator) takeLine(dst []byte) int {
	if a.lineStart == 0 {
		if a.lost > 0 {
			a.lost--
		}
		return 0
	}
	line, _, _ := protocol.SplitLine(a.buf[:a.lineStart])
	n := copy(dst, line)
	k := len(line)
	copy(a.buf[:], a.buf[k:a.n])
	a.n -= k
	a.lineStart -= k
	return n
}

// discardPartial forgets the bytes after the last complete line and
// returns how many were dropped
func (a *accumulator) discardPartial() int {
	n := a.n - a.lineStart
	a.n = a.lineStart
	a.dropping = false
	return n
}

// buffered returns the number of bytes held, partial line included
func (a *accumulator) buffered() int {
	return a.n
}
