package geocode

import (
	"errors"
	"fmt"
)

// Kind classifies why an address could not be enriched. No kind is fatal to
// a run; the caller drops the address.
type Kind int

const (
	// KindServerRejected is a non-200 response.
	KindServerRejected Kind = iota + 1
	// KindConnectionFailed means the endpoint refused or dropped the connection
	// before a request could be sent.
	KindConnectionFailed
	// KindDecode means the response body was not usable.
	KindDecode
	// KindTransport covers every other transport fault, including the per-call
	// timeout.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindServerRejected:
		return "server_rejected"
	case KindConnectionFailed:
		return "connection_failed"
	case KindDecode:
		return "decode"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is the failure returned for a single address.
type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindServerRejected:
		return fmt.Sprintf("geocode: server rejected request: status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("geocode: %s: %v", e.Kind, e.Err)
	default:
		return "geocode: " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or KindTransport when err is not an *Error.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindTransport
}
