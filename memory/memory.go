// Package memory moves length-prefixed buffers across the boundary between
// a contract and its host.
//
// A contract and its host share one flat linear memory. Every value crossing
// the boundary lives in that memory as a 4 byte big-endian length followed by
// the payload, and is referred to by the offset of the length field.
package memory

import (
	"github.com/pkg/errors"
)

var (
	// ErrOutOfBounds is returned for a read or write outside the region
	ErrOutOfBounds = errors.New("access out of bounds")
	// ErrAllocation is returned when the allocator cannot serve a request
	ErrAllocation = errors.New("allocation failed")
	// ErrShape is returned when a payload cannot be viewed as the requested shape
	ErrShape = errors.New("payload has unexpected shape")
)

// Memory is a host-owned linear memory region addressed by offset.
// The method set matches wazero's api.Memory.
type Memory interface {
	// Size returns the size in bytes available
	Size() uint32
	// Read returns byteCount bytes from offset, or false if out of range
	Read(offset, byteCount uint32) ([]byte, bool)
	// Write copies v to offset, or returns false if out of range
	Write(offset uint32, v []byte) bool
}

// Allocator hands out and takes back space in a Memory.
type Allocator interface {
	Allocate(size uint32) (uint32, error)
	Deallocate(ptr, size uint32) error
}

const (
	arenaAlign = 8
	// arenaBase keeps offset 0 free so it never names a live buffer
	arenaBase = arenaAlign
)

// Arena is a growable linear memory with a bump allocator. It is meant to be
// created per invocation; space is reclaimed all at once with Reset.
type Arena struct {
	buf      []byte
	next     uint32
	limit    uint32
	live     map[uint32]uint32
	released uint64
}

// NewArena creates an arena. A limit of 0 means the arena may grow until
// offsets run out.
func NewArena(limit uint32) *Arena {
	return &Arena{
		buf:   make([]byte, arenaBase),
		next:  arenaBase,
		limit: limit,
		live:  make(map[uint32]uint32),
	}
}

func (a *Arena) Size() uint32 {
	return uint32(len(a.buf))
}

func (a *Arena) Read(offset, byteCount uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(byteCount)
	if end > uint64(len(a.buf)) {
		return nil, false
	}
	return a.buf[offset:end:end], true
}

func (a *Arena) Write(offset uint32, v []byte) bool {
	end := uint64(offset) + uint64(len(v))
	if end > uint64(len(a.buf)) {
		return false
	}
	copy(a.buf[offset:end], v)
	return true
}

// Allocate reserves size bytes and returns their offset. A zero-size block
// still takes space so that every live block has its own offset.
func (a *Arena) Allocate(size uint32) (uint32, error) {
	ptr := a.next
	end := uint64(ptr) + uint64(max(size, 1))
	aligned := (end + arenaAlign - 1) &^ (arenaAlign - 1)
	if aligned > uint64(^uint32(0)) || (a.limit != 0 && aligned > uint64(a.limit)) {
		return 0, errors.Wrapf(ErrAllocation, "arena cannot grow to %d bytes", aligned)
	}
	if grow := int(aligned) - len(a.buf); grow > 0 {
		a.buf = append(a.buf, make([]byte, grow)...)
	}
	a.next = uint32(aligned)
	a.live[ptr] = size
	return ptr, nil
}

// Deallocate releases a block handed out by Allocate. The bytes are zeroed;
// the space is only reused after Reset.
func (a *Arena) Deallocate(ptr, size uint32) error {
	got, ok := a.live[ptr]
	if !ok {
		return errors.Wrapf(ErrAllocation, "no live block at %d", ptr)
	}
	if got != size {
		return errors.Wrapf(ErrAllocation, "block at %d has size %d, not %d", ptr, got, size)
	}
	clear(a.buf[ptr : ptr+size])
	delete(a.live, ptr)
	a.released += uint64(size)
	return nil
}

// Reset drops every allocation.
func (a *Arena) Reset() {
	a.buf = a.buf[:arenaBase]
	clear(a.buf)
	a.next = arenaBase
	a.live = make(map[uint32]uint32)
	a.released = 0
}

// Allocated returns the number of bytes in live blocks.
func (a *Arena) Allocated() uint64 {
	var n uint64
	for _, size := range a.live {
		n += uint64(size)
	}
	return n
}

// Released returns the number of bytes given back since the last Reset.
func (a *Arena) Released() uint64 {
	return a.released
}
