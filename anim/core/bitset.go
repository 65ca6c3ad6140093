package core

import (
	"math/bits"
)

// BitSet is a fixed length bit vector.
type BitSet struct {
	s []uint64
	n int
}

func NewBitSet(n int) BitSet {
	if n < 0 {
		n = 0
	}
	return BitSet{s: make([]uint64, (n+63)/64), n: n}
}

// Len returns the number of bits in the set.
func (b *BitSet) Len() int { return b.n }

// Set sets bit i. Out of range indices are ignored.
func (b *BitSet) Set(i int) {
	if i < 0 || i >= b.n {
		return
	}
	b.s[i/64] |= 1 << (i % 64)
}

func (b *BitSet) Unset(i int) {
	if i < 0 || i >= b.n {
		return
	}
	b.s[i/64] &^= 1 << (i % 64)
}

// IsSet reports whether bit i is set. Out of range indices are unset.
func (b *BitSet) IsSet(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.s[i/64]&(1<<(i%64)) != 0
}

// Count returns the number of set bits.
func (b *BitSet) Count() (n int) {
	for _, x := range b.s {
		n += bits.OnesCount64(x)
	}
	return
}

// ForEach calls f for every set bit in ascending order.
func (b *BitSet) ForEach(f func(i int)) {
	for w, x := range b.s {
		for x != 0 {
			t := bits.TrailingZeros64(x)
			f(w*64 + t)
			x &= x - 1
		}
	}
}
