package coordinator

import (
	"errors"

	"vmstore/pkg/protocol"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnreachable    = errors.New("peer unreachable")
	ErrRejected       = errors.New("operation not supported by the directory")
	ErrInvalidRequest = errors.New("invalid request")
)

// statusFor maps an error to the wire status carried in protocol.Response.
func statusFor(err error) string {
	switch {
	case err == nil:
		return protocol.StatusOK
	case errors.Is(err, ErrNotFound):
		return protocol.StatusNotFound
	case errors.Is(err, ErrRejected):
		return protocol.StatusRejected
	case errors.Is(err, ErrInvalidRequest):
		return protocol.StatusInvalidRequest
	default:
		return protocol.StatusRejected
	}
}

func reply(message string, err error) *protocol.Response {
	return &protocol.Response{
		Message: message,
		Status:  statusFor(err),
	}
}
