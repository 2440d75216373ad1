package ecs

import (
	"math/bits"
	"sync/atomic"
)

// bitset is a fixed-size set of entity ids. Words are atomic so that dirty
// bits can be raised by concurrent systems while the set is otherwise
// read-only.
type bitset []atomic.Uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(e EntityId) {
	b[e>>6].Or(1 << (e & 63))
}

func (b bitset) unset(e EntityId) {
	b[e>>6].And(^(uint64(1) << (e & 63)))
}

func (b bitset) test(e EntityId) bool {
	w := int(e >> 6)
	if w >= len(b) {
		return false
	}
	return b[w].Load()&(1<<(e&63)) != 0
}

func (b bitset) clear() {
	for i := range b {
		b[i].Store(0)
	}
}

// moveTo replaces dst with the contents of b and empties b.
func (b bitset) moveTo(dst bitset) {
	for i := range b {
		dst[i].Store(b[i].Swap(0))
	}
}

func (b bitset) count() int {
	n := 0
	for i := range b {
		n += bits.OnesCount64(b[i].Load())
	}
	return n
}
