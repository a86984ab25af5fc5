package logic

import (
	"math/bits"
	"strings"
)

// BitBuffer accumulates sampled bits behind a sentinel 1-bit, so that the
// number of bits captured can be tested by magnitude.
// Not safe for concurrent use; the engine serializes access.
type BitBuffer struct {
	acc uint64
}

// NewBitBuffer returns an empty buffer.
func NewBitBuffer() *BitBuffer {
	b := &BitBuffer{}
	b.Reset()
	return b
}

// Reset discards all bits.
func (b *BitBuffer) Reset() {
	b.acc = 1
}

// Push appends a bit; the newest bit is always the lowest.
// When more than FrameBits bits are pushed without a reset only the latest
// FrameBits are kept.
func (b *BitBuffer) Push(bit int) {
	b.acc = b.acc<<1 | uint64(bit&1)
	if b.acc >= 1<<(FrameBits+1) {
		b.acc = b.acc&(1<<FrameBits-1) | 1<<FrameBits
	}
}

// Len returns the number of data bits held.
func (b *BitBuffer) Len() int {
	return bits.Len64(b.acc) - 1
}

// IsComplete reports whether at least minLen bits were pushed.
func (b *BitBuffer) IsComplete(minLen int) bool {
	return b.acc >= 1<<uint(minLen)
}

// Frame returns the captured minute with bit 0 = earliest received bit.
// Only the held bits are reversed, so a short frame leaves its missing
// trailing positions zero and never picks up the sentinel.
func (b *BitBuffer) Frame(minLen int) (Frame, error) {
	if !b.IsComplete(minLen) {
		return 0, &IncompleteFrameError{Bits: b.Len()}
	}

	var f Frame
	for i, n := 0, b.Len(); i < n; i++ {
		f = f<<1 | Frame(b.acc>>uint(i)&1)
	}
	return f, nil
}

// Bits renders the held bits oldest first, e.g. "0010".
func (b *BitBuffer) Bits() string {
	n := b.Len()
	var sb strings.Builder
	sb.Grow(n)
	for i := n - 1; i >= 0; i-- {
		if b.acc>>uint(i)&1 == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
