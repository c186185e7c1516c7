// Package provider defines the contract between the generation client and
// the external content-generation API, together with the error taxonomy the
// retry layer classifies against. The result payload is opaque at this
// layer; shape-specific parsing belongs to the caller.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// Request describes a single generation call. It is a value type, created
// per call and never mutated.
type Request struct {
	// Descriptor is the opaque content description forwarded verbatim to
	// the provider.
	Descriptor string

	// Width and Height are the (already normalized) output dimensions.
	Width  int
	Height int

	// Quality is passed through to the provider unchanged.
	Quality string

	// Priority is a scheduling hint; higher values are dispatched first.
	// The provider may ignore it.
	Priority int
}

// Client is the transport collaborator performing the actual provider call.
// Implementations must return errors classified through [Error] so the
// retry layer can distinguish transient from permanent failures.
type Client interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// BatchClient is implemented by providers that accept several requests in
// one call. Results are returned positionally: result i corresponds to
// reqs[i].
type BatchClient interface {
	Client
	GenerateBatch(ctx context.Context, reqs []Request) ([][]byte, error)
}

// ErrorKind classifies a provider failure.
type ErrorKind int

const (
	// KindTransientNetwork marks a network-level failure worth retrying.
	KindTransientNetwork ErrorKind = iota

	// KindTransientTimeout marks a timeout on the provider side worth
	// retrying.
	KindTransientTimeout

	// KindPermanent marks an explicit provider rejection; retrying would
	// not help.
	KindPermanent
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransientNetwork:
		return "transient-network"
	case KindTransientTimeout:
		return "transient-timeout"
	case KindPermanent:
		return "permanent-rejected"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure.
type Error struct {
	Kind   ErrorKind
	Status int    // HTTP status or gRPC code value when applicable, 0 otherwise
	Msg    string // provider-supplied detail, may be empty
	Err    error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	s := fmt.Sprintf("provider: %s", e.Kind)
	if e.Status != 0 {
		s += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the error is worth retrying.
func (e *Error) Transient() bool {
	return e.Kind == KindTransientNetwork || e.Kind == KindTransientTimeout
}

// Transient reports whether err carries a retryable provider classification.
// Errors that are not [Error] values (including context cancellation) are
// never retryable.
func Transient(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Transient()
}
