package codec

import (
	"encoding/binary"
	"fmt"
)

// Byte orders used at each call site of the protocol. They are not the same:
// length prefixes, status codes and 32-bit storage cells are big-endian while
// 64-bit storage cells use the opposite order. Keep them separate.
const (
	LengthPrefixBigEndian = true
	StatusCodeBigEndian   = true
	StorageU32BigEndian   = true
	StorageU64BigEndian   = false
)

func byteOrder(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// EncodeU32 returns the 4 byte representation of x.
func EncodeU32(x uint32, bigEndian bool) []byte {
	out := make([]byte, 4)
	byteOrder(bigEndian).PutUint32(out, x)
	return out
}

// DecodeU32 panics unless b is exactly 4 bytes long.
func DecodeU32(b []byte, bigEndian bool) uint32 {
	if len(b) != 4 {
		panic(fmt.Sprintf("codec: DecodeU32 needs 4 bytes, got %d", len(b)))
	}
	return byteOrder(bigEndian).Uint32(b)
}

// EncodeU64 returns the 8 byte representation of x.
func EncodeU64(x uint64, bigEndian bool) []byte {
	out := make([]byte, 8)
	byteOrder(bigEndian).PutUint64(out, x)
	return out
}

// DecodeU64 panics unless b is exactly 8 bytes long.
func DecodeU64(b []byte, bigEndian bool) uint64 {
	if len(b) != 8 {
		panic(fmt.Sprintf("codec: DecodeU64 needs 8 bytes, got %d", len(b)))
	}
	return byteOrder(bigEndian).Uint64(b)
}
