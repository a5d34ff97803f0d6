// Package errors defines the structured error kinds the mirroring pipeline
// can raise, and the policy helpers the pipeline uses to decide whether an
// error is recoverable, retryable, or must become the error page.
package errors

import (
	"fmt"
	"strings"
)

// Kind identifies which part of the pipeline produced an error.
type Kind int

const (
	// ConfigError marks a bad or missing configuration; fatal at startup.
	ConfigError Kind = iota + 1
	// SSRFBlocked marks an outbound hostname that is not in allowed_domains.
	SSRFBlocked
	// UpstreamFailure marks a transport/TLS/timeout error during fetch.
	UpstreamFailure
	// DecodeFailure marks a body no configured charset could decode.
	DecodeFailure
	// StreamTimeout marks a producer or consumer timeout in the streaming
	// coordinator.
	StreamTimeout
	// RewriteError marks an unexpected failure in the rewrite pipeline.
	RewriteError
)

func (k Kind) String() string {
	switch k {
	case ConfigError:
		return "ConfigError"
	case SSRFBlocked:
		return "SSRFBlocked"
	case UpstreamFailure:
		return "UpstreamFailure"
	case DecodeFailure:
		return "DecodeFailure"
	case StreamTimeout:
		return "StreamTimeout"
	case RewriteError:
		return "RewriteError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MirrorError is the structured error type returned by every mirroring
// component. It carries enough context to render an operator-facing error
// page without re-deriving it from the request.
type MirrorError struct {
	Kind      Kind
	Message   string
	Operation string
	URL       string
	Domain    string
	Details   map[string]interface{}
	Cause     error
}

func (e *MirrorError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("operation=%s", e.Operation))
	}
	if e.Domain != "" {
		parts = append(parts, fmt.Sprintf("domain=%s", e.Domain))
	}
	if e.URL != "" {
		parts = append(parts, fmt.Sprintf("url=%s", e.URL))
	}

	ctx := ""
	if len(parts) > 0 {
		ctx = fmt.Sprintf(" [%s]", strings.Join(parts, ", "))
	}

	result := fmt.Sprintf("[%s] %s%s", e.Kind, e.Message, ctx)
	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}
	return result
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *MirrorError) Unwrap() error { return e.Cause }

// Is implements error-code comparison for errors.Is.
func (e *MirrorError) Is(target error) bool {
	if me, ok := target.(*MirrorError); ok {
		return e.Kind == me.Kind
	}
	return false
}

// WithDetail attaches an arbitrary key/value to the error for logging.
func (e *MirrorError) WithDetail(key string, value interface{}) *MirrorError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithURL attaches the origin URL involved in the failure.
func (e *MirrorError) WithURL(url string) *MirrorError {
	e.URL = url
	return e
}

// WithDomain attaches the origin domain involved in the failure.
func (e *MirrorError) WithDomain(domain string) *MirrorError {
	e.Domain = domain
	return e
}

// New creates a MirrorError of the given kind.
func New(kind Kind, operation, message string, cause error) *MirrorError {
	return &MirrorError{Kind: kind, Operation: operation, Message: message, Cause: cause}
}

// NewConfig creates a ConfigError.
func NewConfig(message string, cause error) *MirrorError {
	return New(ConfigError, "config", message, cause)
}

// NewSSRFBlocked creates an SSRFBlocked error for the given outbound domain.
func NewSSRFBlocked(domain string, cause error) *MirrorError {
	return New(SSRFBlocked, "upstream", "outbound hostname is not in allowed_domains", cause).WithDomain(domain)
}

// NewUpstreamFailure creates an UpstreamFailure error for the given URL.
func NewUpstreamFailure(url string, cause error) *MirrorError {
	return New(UpstreamFailure, "upstream", "upstream fetch failed", cause).WithURL(url)
}

// NewDecodeFailure creates a DecodeFailure error for the given URL.
func NewDecodeFailure(url string, cause error) *MirrorError {
	return New(DecodeFailure, "respwrite", "no configured charset could decode the body", cause).WithURL(url)
}

// NewStreamTimeout creates a StreamTimeout error, tagged by which side
// (producer/consumer) timed out.
func NewStreamTimeout(side string, cause error) *MirrorError {
	return New(StreamTimeout, "stream", fmt.Sprintf("%s timed out", side), cause)
}

// NewRewriteError creates a RewriteError for the given URL.
func NewRewriteError(url string, cause error) *MirrorError {
	return New(RewriteError, "pipeline", "rewrite pipeline failed unexpectedly", cause).WithURL(url)
}

// IsRetryable reports whether the pipeline should retry the operation that
// produced err.
func IsRetryable(err error) bool {
	if me, ok := err.(*MirrorError); ok {
		switch me.Kind {
		case UpstreamFailure, StreamTimeout:
			return true
		}
	}
	return false
}

// IsCritical reports whether err should abort request processing entirely
// rather than fall back to a degraded response.
func IsCritical(err error) bool {
	if me, ok := err.(*MirrorError); ok {
		switch me.Kind {
		case ConfigError, SSRFBlocked:
			return true
		}
	}
	return false
}

// IsRecoverable reports whether err can be silently recovered from by
// passing the input through unchanged (per spec.md §7 policy: decode
// failures and header-rewrite anomalies recover locally).
func IsRecoverable(err error) bool {
	if me, ok := err.(*MirrorError); ok {
		return me.Kind == DecodeFailure
	}
	return false
}
