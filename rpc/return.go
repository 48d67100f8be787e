package rpc

import (
	"strings"

	"github.com/govm-net/wasmrpc/codec"
	"github.com/govm-net/wasmrpc/logging"
	"github.com/govm-net/wasmrpc/memory"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// StatusSize is the width of the status code at the start of a return payload
const StatusSize = 4

// ErrMalformedReturn is returned by Decode for payloads the encoder cannot produce
var ErrMalformedReturn = errors.New("malformed return payload")

// Encode builds a return payload: the big-endian status code followed by the
// encoded value on success or the encoded error message on failure.
func Encode(v codec.Value, err error) ([]byte, error) {
	status := CodeOK
	var body []byte
	if rpcErr := AsError(err); rpcErr != nil {
		status = rpcErr.Code
		body = codec.MustEncode(codec.String(strings.ToValidUTF8(rpcErr.Message, "\uFFFD")))
	} else {
		var encErr error
		if body, encErr = codec.Encode(v); encErr != nil {
			return nil, encErr
		}
	}
	out := make([]byte, 0, StatusSize+len(body))
	out = append(out, codec.EncodeU32(status, codec.StatusCodeBigEndian)...)
	return append(out, body...), nil
}

// Return encodes the result and writes it through m, returning the offset
// of the buffer. It is the only way a call result leaves a contract.
func Return(m *memory.Marshaler, v codec.Value, err error) (uint32, error) {
	if err != nil {
		logging.Logger().Debug("returning contract error", zap.Error(err))
	}
	payload, encErr := Encode(v, err)
	if encErr != nil {
		return 0, encErr
	}
	return m.Write(payload)
}

// Decode splits a return payload back into the value or the *Error it carries.
// The second error reports a payload that is not a valid return buffer.
func Decode(payload []byte) (codec.Value, *Error, error) {
	if len(payload) < StatusSize {
		return codec.Value{}, nil, errors.Wrapf(ErrMalformedReturn, "%d bytes is shorter than the status code", len(payload))
	}
	status := codec.DecodeU32(payload[:StatusSize], codec.StatusCodeBigEndian)
	body, err := codec.Decode(payload[StatusSize:])
	if err != nil {
		return codec.Value{}, nil, errors.Wrap(ErrMalformedReturn, err.Error())
	}
	if status == CodeOK {
		return body, nil, nil
	}
	msg, ok := body.AsString()
	if !ok {
		return codec.Value{}, nil, errors.Wrapf(ErrMalformedReturn, "error message is %s, not string", body.Kind())
	}
	return codec.Value{}, &Error{Code: status, Message: msg}, nil
}
