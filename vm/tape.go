package vm

import (
	"fmt"
)

type (
	// Tape is the machine's addressable integer storage. Addresses are
	// non-negative; every address an implementation can represent reads 0
	// until written. Implementations pick their own trade-off between
	// bounded-and-fast and unbounded-and-flexible; the machine only sees
	// this interface.
	Tape interface {
		Load(addr int64) (int64, error)
		Store(addr, v int64) error
		Reset(image []int64)
	}

	// Flat is a growable dense tape. It grows on store up to FlatLimit
	// words and faults beyond that.
	Flat struct {
		w []int64
	}

	// Sparse is a map-backed tape with no upper bound on addresses.
	Sparse struct {
		w map[int64]int64
	}

	// Bounded is a fixed-size tape. Anything outside [0, size) faults.
	Bounded struct {
		w []int64
	}

	MemoryFaultError struct {
		Addr int64
	}
)

// FlatLimit bounds Flat growth so a single wild store cannot take the
// process down with it.
const FlatLimit = 1 << 24

func (e MemoryFaultError) Error() string {
	return fmt.Sprintf("memory fault: address %d", e.Addr)
}

func NewFlat(image []int64) *Flat {
	t := &Flat{}
	t.Reset(image)

	return t
}

func (t *Flat) Load(addr int64) (int64, error) {
	if addr < 0 {
		return 0, MemoryFaultError{Addr: addr}
	}

	if addr >= int64(len(t.w)) {
		return 0, nil
	}

	return t.w[addr], nil
}

func (t *Flat) Store(addr, v int64) error {
	if addr < 0 || addr >= FlatLimit {
		return MemoryFaultError{Addr: addr}
	}

	if addr >= int64(len(t.w)) {
		t.w = append(t.w, make([]int64, addr-int64(len(t.w))+1)...)
	}

	t.w[addr] = v

	return nil
}

func (t *Flat) Reset(image []int64) {
	t.w = append(t.w[:0], image...)
}

func NewSparse(image []int64) *Sparse {
	t := &Sparse{}
	t.Reset(image)

	return t
}

func (t *Sparse) Load(addr int64) (int64, error) {
	if addr < 0 {
		return 0, MemoryFaultError{Addr: addr}
	}

	return t.w[addr], nil
}

func (t *Sparse) Store(addr, v int64) error {
	if addr < 0 {
		return MemoryFaultError{Addr: addr}
	}

	t.w[addr] = v

	return nil
}

func (t *Sparse) Reset(image []int64) {
	t.w = make(map[int64]int64, len(image))

	for i, v := range image {
		if v == 0 {
			continue
		}

		t.w[int64(i)] = v
	}
}

// NewBounded makes a tape of exactly size words. The image is truncated if
// it is longer than that.
func NewBounded(image []int64, size int) *Bounded {
	t := &Bounded{w: make([]int64, size)}
	t.Reset(image)

	return t
}

func (t *Bounded) Load(addr int64) (int64, error) {
	if addr < 0 || addr >= int64(len(t.w)) {
		return 0, MemoryFaultError{Addr: addr}
	}

	return t.w[addr], nil
}

func (t *Bounded) Store(addr, v int64) error {
	if addr < 0 || addr >= int64(len(t.w)) {
		return MemoryFaultError{Addr: addr}
	}

	t.w[addr] = v

	return nil
}

func (t *Bounded) Reset(image []int64) {
	n := copy(t.w, image)

	for i := n; i < len(t.w); i++ {
		t.w[i] = 0
	}
}
