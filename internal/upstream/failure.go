package upstream

import (
	"fmt"
	"time"
)

// Kind classifies an upstream fetch failure.
type Kind string

const (
	// KindTimeout marks a fetch that exceeded its deadline.
	KindTimeout Kind = "timeout"
	// KindUpstreamStatus marks a non-success HTTP status from the provider.
	KindUpstreamStatus Kind = "upstream_status"
	// KindEmptyBody marks a success response carrying no payload.
	KindEmptyBody Kind = "empty_body"
)

// Failure is a classified fetch failure pinned to the moment it occurred.
type Failure struct {
	Kind   Kind
	Status int // HTTP status for KindUpstreamStatus, zero otherwise
	At     time.Time
	err    error
}

// Error implements the error interface. Status is zero for transport
// failures that never produced a response, and is omitted then.
func (f *Failure) Error() string {
	if f.Kind == KindUpstreamStatus && f.Status != 0 {
		return fmt.Sprintf("upstream fetch (%s %d): %v", f.Kind, f.Status, f.err)
	}
	return fmt.Sprintf("upstream fetch (%s): %v", f.Kind, f.err)
}

// Unwrap exposes the underlying transport or protocol error.
func (f *Failure) Unwrap() error {
	return f.err
}

// Retryable reports whether a failure kind may be retried by a policy
// wrapper. Empty bodies are a provider-shape problem, not transient.
func (f *Failure) Retryable() bool {
	return f.Kind == KindTimeout || f.Kind == KindUpstreamStatus
}
