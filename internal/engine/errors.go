package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyObservations flags an empty control or treatment sequence. This is a
// caller bug, not an environment issue: it is never retried and the fallback
// path is never attempted for it.
var ErrEmptyObservations = errors.New("observations must not be empty")

// BackendError reports a failure of the process-wide numeric backend that the
// posterior sampler runs on. The orchestrator recognises it as a systemic,
// non-data failure and substitutes the analytical fallback.
type BackendError struct {
	Mode string
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("sampler backend %q: %v", e.Mode, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// FatalInferenceError is the only sampling-path error surfaced to callers: the
// sampler failed and the fallback could not produce a result either.
type FatalInferenceError struct {
	SamplerErr  error
	FallbackErr error
}

func (e *FatalInferenceError) Error() string {
	return fmt.Sprintf("inference failed: sampler: %v; fallback: %v", e.SamplerErr, e.FallbackErr)
}

func (e *FatalInferenceError) Unwrap() error {
	return e.FallbackErr
}

// backendFailureSignatures are substrings of known native-toolchain failures
// observed in constrained or cross-compiled hosts.
var backendFailureSignatures = []string{
	"compilation failed",
	"64-bit mode",
	"lazylinker",
}

// isBackendFailure reports whether err carries a recognised backend failure,
// either as a typed BackendError or by message signature.
func isBackendFailure(err error) bool {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, signature := range backendFailureSignatures {
		if strings.Contains(msg, signature) {
			return true
		}
	}
	return false
}
