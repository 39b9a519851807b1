package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FetchErrorKind classifies why a listing could not be fetched.
type FetchErrorKind int

const (
	NetworkError FetchErrorKind = iota + 1
	Timeout
	MarkerNotFound
	MalformedPayload
)

func (k FetchErrorKind) String() string {
	switch k {
	case NetworkError:
		return "network error"
	case Timeout:
		return "timeout"
	case MarkerNotFound:
		return "marker not found"
	case MalformedPayload:
		return "malformed payload"
	default:
		return "unknown fetch error"
	}
}

// Sentinels for errors.Is against a FetchError's kind.
var (
	ErrNetwork          = errors.New(NetworkError.String())
	ErrTimeout          = errors.New(Timeout.String())
	ErrMarkerNotFound   = errors.New(MarkerNotFound.String())
	ErrMalformedPayload = errors.New(MalformedPayload.String())
)

func (k FetchErrorKind) sentinel() error {
	switch k {
	case NetworkError:
		return ErrNetwork
	case Timeout:
		return ErrTimeout
	case MarkerNotFound:
		return ErrMarkerNotFound
	case MalformedPayload:
		return ErrMalformedPayload
	}
	return nil
}

// FetchError is returned by every Fetcher failure.
type FetchError struct {
	Kind FetchErrorKind
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches the kind sentinels, e.g. errors.Is(err, ErrTimeout).
func (e *FetchError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf extracts the FetchErrorKind from anywhere in err's chain.
func KindOf(err error) (FetchErrorKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// transportError classifies a failure from the HTTP round trip or body read.
func transportError(op string, err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: Timeout, Op: op, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &FetchError{Kind: Timeout, Op: op, Err: err}
	}
	return &FetchError{Kind: NetworkError, Op: op, Err: err}
}

func malformed(format string, args ...any) *FetchError {
	return &FetchError{Kind: MalformedPayload, Op: "decode payload", Err: fmt.Errorf(format, args...)}
}
