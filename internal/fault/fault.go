// Package fault tags errors from outbound calls with a small closed set of
// kinds so callers can pick a fallback without inspecting error strings.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

type Kind string

const (
	NetworkError        Kind = "network_error"
	ParseError          Kind = "parse_error"
	RateLimited         Kind = "rate_limited"
	UpstreamUnavailable Kind = "upstream_unavailable"
)

// Kinds returns every kind in a stable order.
func Kinds() []Kind {
	return []Kind{NetworkError, ParseError, RateLimited, UpstreamUnavailable}
}

// Error is an error tagged with a Kind and the operation that produced it.
// Permanent marks a failure that repeats on every attempt (a 4xx other than
// 408 and 429), whatever its kind.
type Error struct {
	Kind      Kind
	Op        string
	Err       error
	Permanent bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind, so errors.Is(err, fault.New(fault.RateLimited, "", nil))
// style checks work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Network wraps a transport error. Context cancellation keeps its own identity
// through Unwrap.
func Network(op string, err error) *Error {
	return New(NetworkError, op, err)
}

func Parse(op string, err error) *Error {
	return New(ParseError, op, err)
}

// FromStatus maps a non-2xx HTTP status to a kind. Client errors other than
// 408 and 429 are marked Permanent.
func FromStatus(op string, code int) *Error {
	err := fmt.Errorf("unexpected status %d", code)
	switch {
	case code == http.StatusTooManyRequests:
		return New(RateLimited, op, err)
	case code == http.StatusRequestTimeout || code >= 500:
		return New(UpstreamUnavailable, op, err)
	}
	e := New(UpstreamUnavailable, op, err)
	e.Permanent = true
	return e
}

// IsPermanent reports whether err carries a *Error marked Permanent.
func IsPermanent(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Permanent
}

// KindOf returns the kind of the first *Error in err's chain. Untagged
// timeouts and net errors count as network errors; anything else is
// reported as upstream_unavailable.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NetworkError
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return NetworkError
	}
	return UpstreamUnavailable
}

// Retryable reports whether a call failing with kind may succeed on retry.
func Retryable(kind Kind) bool {
	switch kind {
	case NetworkError, RateLimited, UpstreamUnavailable:
		return true
	}
	return false
}

// Message is the fixed user-facing fallback text for a kind.
func Message(kind Kind) string {
	switch kind {
	case RateLimited:
		return "El servicio de análisis alcanzó su límite de uso. Intente de nuevo en unos minutos."
	case NetworkError:
		return "No fue posible conectar con el servicio. Verifique la conexión e intente de nuevo."
	case ParseError:
		return "La respuesta recibida no pudo interpretarse."
	case UpstreamUnavailable:
		return "El servicio externo no está disponible en este momento."
	}
	return ""
}
