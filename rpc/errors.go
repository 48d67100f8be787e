// Package rpc encodes the outcome of a contract call into the single buffer
// a contract hands back to its host, and decodes it on the host side.
package rpc

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status codes. CodeOK is reserved for success and is never carried by an Error.
const (
	CodeOK uint32 = 0
	// CodeInternal reports an error that is not an *Error
	CodeInternal uint32 = 1
	// CodeCallFailed reports a nested contract call that did not produce a result
	CodeCallFailed uint32 = 2
)

// Error is a failed call result: a non-zero code and a message.
type Error struct {
	Code    uint32
	Message string
}

// NewError panics when code is CodeOK.
func NewError(code uint32, message string) *Error {
	if code == CodeOK {
		panic("rpc: status code 0 is reserved for success")
	}
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("contract error %d: %s", e.Code, e.Message)
}

// AsError converts any error into an *Error. Errors that are not *Error
// anywhere in their chain are reported with CodeInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) && rpcErr.Code != CodeOK {
		return rpcErr
	}
	return &Error{Code: CodeInternal, Message: err.Error()}
}
