package memory

import (
	"unicode/utf8"

	"github.com/govm-net/wasmrpc/codec"
	"github.com/pkg/errors"
)

// LengthPrefixSize is the width of the length field in front of every buffer
const LengthPrefixSize = 4

// Marshaler reads and writes length-prefixed buffers in a Memory.
type Marshaler struct {
	mem   Memory
	alloc Allocator
}

func NewMarshaler(mem Memory, alloc Allocator) *Marshaler {
	return &Marshaler{mem: mem, alloc: alloc}
}

// Memory returns the region the marshaler works on
func (m *Marshaler) Memory() Memory {
	return m.mem
}

func (m *Marshaler) length(ptr uint32) (uint32, error) {
	prefix, ok := m.mem.Read(ptr, LengthPrefixSize)
	if !ok {
		return 0, errors.Wrapf(ErrOutOfBounds, "length prefix at %d, memory size %d", ptr, m.mem.Size())
	}
	return codec.DecodeU32(prefix, codec.LengthPrefixBigEndian), nil
}

// ReadRaw returns a copy of the payload of the buffer at ptr.
func (m *Marshaler) ReadRaw(ptr uint32) ([]byte, error) {
	n, err := m.length(ptr)
	if err != nil {
		return nil, err
	}
	start := uint64(ptr) + LengthPrefixSize
	if start > uint64(^uint32(0)) {
		return nil, errors.Wrapf(ErrOutOfBounds, "payload at %d", start)
	}
	payload, ok := m.mem.Read(uint32(start), n)
	if !ok {
		return nil, errors.Wrapf(ErrOutOfBounds, "payload of %d bytes at %d, memory size %d", n, start, m.mem.Size())
	}
	out := make([]byte, n)
	copy(out, payload)
	return out, nil
}

// ReadText returns the payload at ptr as UTF-8 text.
func (m *Marshaler) ReadText(ptr uint32) (string, error) {
	raw, err := m.ReadRaw(ptr)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", errors.Wrapf(ErrShape, "payload at %d is not valid UTF-8", ptr)
	}
	return string(raw), nil
}

// ReadValue decodes the payload at ptr with the value codec.
func (m *Marshaler) ReadValue(ptr uint32) (codec.Value, error) {
	raw, err := m.ReadRaw(ptr)
	if err != nil {
		return codec.Value{}, err
	}
	v, err := codec.Decode(raw)
	if err != nil {
		return codec.Value{}, errors.Wrapf(ErrShape, "payload at %d: %v", ptr, err)
	}
	return v, nil
}

// ReadBytes decodes the payload at ptr as an encoded byte string.
func (m *Marshaler) ReadBytes(ptr uint32) ([]byte, error) {
	v, err := m.ReadValue(ptr)
	if err != nil {
		return nil, err
	}
	b, ok := v.AsBytes()
	if !ok {
		return nil, errors.Wrapf(ErrShape, "payload at %d is %s, not bytes", ptr, v.Kind())
	}
	return b, nil
}

// ReadString decodes the payload at ptr as an encoded string.
func (m *Marshaler) ReadString(ptr uint32) (string, error) {
	v, err := m.ReadValue(ptr)
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", errors.Wrapf(ErrShape, "payload at %d is %s, not string", ptr, v.Kind())
	}
	return s, nil
}

// ReadArray decodes the payload at ptr as an encoded array.
func (m *Marshaler) ReadArray(ptr uint32) ([]codec.Value, error) {
	v, err := m.ReadValue(ptr)
	if err != nil {
		return nil, err
	}
	items, ok := v.AsArray()
	if !ok {
		return nil, errors.Wrapf(ErrShape, "payload at %d is %s, not array", ptr, v.Kind())
	}
	return items, nil
}

// Write allocates a new buffer holding payload and returns its offset. The
// buffer stays valid until its owner releases it.
func (m *Marshaler) Write(payload []byte) (uint32, error) {
	if uint64(len(payload)) > uint64(^uint32(0))-LengthPrefixSize {
		return 0, errors.Wrapf(ErrAllocation, "payload of %d bytes is too large", len(payload))
	}
	size := uint32(len(payload)) + LengthPrefixSize
	ptr, err := m.alloc.Allocate(size)
	if err != nil {
		return 0, errors.Wrapf(err, "allocate %d bytes", size)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, codec.EncodeU32(uint32(len(payload)), codec.LengthPrefixBigEndian)...)
	buf = append(buf, payload...)
	if !m.mem.Write(ptr, buf) {
		return 0, errors.Wrapf(ErrOutOfBounds, "write %d bytes at %d", size, ptr)
	}
	return ptr, nil
}

// WriteText writes s as raw UTF-8 bytes.
func (m *Marshaler) WriteText(s string) (uint32, error) {
	return m.Write([]byte(s))
}

// WriteValue writes the value codec encoding of v.
func (m *Marshaler) WriteValue(v codec.Value) (uint32, error) {
	data, err := codec.Encode(v)
	if err != nil {
		return 0, err
	}
	return m.Write(data)
}

// Release gives the buffer at ptr back to the allocator.
func (m *Marshaler) Release(ptr uint32) error {
	n, err := m.length(ptr)
	if err != nil {
		return err
	}
	return m.alloc.Deallocate(ptr, n+LengthPrefixSize)
}
