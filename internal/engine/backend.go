package engine

import (
	"fmt"
	"sync"
)

// BackendMode selects how the sampler evaluates posterior log densities.
type BackendMode string

const (
	// BackendFastRun evaluates densities through the fused sufficient-statistic
	// path.
	BackendFastRun BackendMode = "fast-run"
	// BackendSafeRun evaluates the likelihood observation by observation,
	// trading speed for a numerically conservative path.
	BackendSafeRun BackendMode = "safe-run"
)

var (
	backendMu   sync.Mutex
	backendMode = BackendFastRun
)

// withBackendMode applies mode for the duration of fn and restores the
// previous mode on every exit path. The mode is process-wide state, so
// overrides are serialised; concurrent sampler invocations queue here.
func withBackendMode(mode BackendMode, fn func(BackendMode) error) error {
	switch mode {
	case BackendFastRun, BackendSafeRun:
	default:
		return &BackendError{Mode: string(mode), Err: fmt.Errorf("compilation failed: unknown mode")}
	}

	backendMu.Lock()
	defer backendMu.Unlock()

	previous := backendMode
	backendMode = mode
	defer func() { backendMode = previous }()

	return fn(mode)
}

// ActiveBackendMode reports the currently configured mode. Outside of a
// sampler run this is the process default.
func ActiveBackendMode() BackendMode {
	backendMu.Lock()
	defer backendMu.Unlock()
	return backendMode
}
