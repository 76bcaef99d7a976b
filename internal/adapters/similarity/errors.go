package similarity

import (
	"errors"
	"fmt"
)

// Sentinel kinds for similarity API failures. Match with errors.Is.
var (
	ErrTransport  = errors.New("similarity transport failure")
	ErrHTTPStatus = errors.New("similarity http status")
	ErrDecode     = errors.New("similarity decode failure")
)

// Kind tags an Error.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport means the request never produced a response.
	KindTransport
	// KindHTTPStatus means the API answered with a non-2xx status.
	KindHTTPStatus
	// KindDecode means a 2xx response did not carry JSON.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTPStatus:
		return "http_status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is a failed similarity call.
type Error struct {
	Kind       Kind
	StatusCode int
	StatusText string
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		msg := fmt.Sprintf("API %d %s", e.StatusCode, e.StatusText)
		// the body is kept verbatim, whitespace included
		if e.Body != "" {
			msg += " - " + e.Body
		}
		return msg
	case KindDecode:
		return fmt.Sprintf("decode response: %v", e.Err)
	default:
		if e.Err == nil {
			return "request failed"
		}
		// transport errors surface unchanged
		return e.Err.Error()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}

// KindOf reports the kind of a similarity failure, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
