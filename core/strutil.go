package core

import "pwmlink/protocol"

// utoa converts an unsigned integer to a string without using fmt
func utoa(n uint32) string {
	var buf [10]byte
	return string(protocol.AppendDecimal(buf[:0], uint64(n)))
}
