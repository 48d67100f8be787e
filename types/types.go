// Package types contains shared type definitions and constants
// used by both the host environment and WebAssembly contracts
package types

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// AddressLength is the width of an account identifier in bytes.
const AddressLength = 20

// Address identifies an account on the chain
type Address [AddressLength]byte

var ZeroAddress = Address{}

// ErrInvalidAddress is returned when an account identifier cannot be parsed
var ErrInvalidAddress = errors.New("invalid address")

func (addr Address) String() string {
	return hex.EncodeToString(addr[:])
}

// Bytes returns a copy of the address as a slice
func (addr Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, addr[:])
	return out
}

// AddressFromBytes converts a 20 byte slice into an Address
func AddressFromBytes(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, errors.Wrapf(ErrInvalidAddress, "want %d bytes, got %d", AddressLength, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// AddressFromString parses a hex string, with or without 0x prefix
func AddressFromString(s string) (Address, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != AddressLength*2 {
		return Address{}, errors.Wrapf(ErrInvalidAddress, "want %d hex characters, got %d", AddressLength*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, errors.Wrap(ErrInvalidAddress, err.Error())
	}
	return AddressFromBytes(b)
}

// Names of the functions the host exports to contracts in the "env" module.
//
// IMPORTANT: contracts import these by name. Any mismatch between the names
// below and the ones a contract was built against makes instantiation fail.
const (
	HostModule = "env"

	// HostRead returns a pointer to the value stored under a key
	HostRead = "_read"
	// HostWrite stores a value under a key
	HostWrite = "_write"
	// HostReadU32 returns the 32-bit integer stored under a key
	HostReadU32 = "_read_u32"
	// HostReadU64 returns the 64-bit integer stored under a key
	HostReadU64 = "_read_u64"
	// HostWriteU64 stores a 64-bit integer under a key
	HostWriteU64 = "_write_u64"
	// HostSender returns a pointer to the caller's account
	HostSender = "_sender"
	// HostAddress returns a pointer to the executing contract's address
	HostAddress = "_address"
	// HostThrow aborts the invocation with a message
	HostThrow = "_throw"
	// HostCall invokes another contract through the registry
	HostCall = "_call"
)

// Functions every contract module must export.
const (
	GuestMemory     = "memory"
	GuestAllocate   = "allocate"
	GuestDeallocate = "deallocate"
)
