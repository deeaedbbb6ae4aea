// Package errors - error hooks
package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorHook is invoked for every EnhancedError built while reporting is active.
// Hooks run synchronously on the building goroutine and must not block.
type ErrorHook func(ee *EnhancedError)

var (
	hooksMu    sync.RWMutex
	errorHooks []ErrorHook

	// hasActiveReporting is true when a telemetry reporter or at least one
	// hook is installed. Build skips component detection otherwise.
	hasActiveReporting atomic.Bool
)

// AddErrorHook registers a hook called for each built error.
func AddErrorHook(hook ErrorHook) {
	if hook == nil {
		return
	}
	hooksMu.Lock()
	errorHooks = append(errorHooks, hook)
	hooksMu.Unlock()
	refreshActiveReporting()
}

// ClearErrorHooks removes every registered hook.
func ClearErrorHooks() {
	hooksMu.Lock()
	errorHooks = nil
	hooksMu.Unlock()
	refreshActiveReporting()
}

func runErrorHooks(ee *EnhancedError) {
	hooksMu.RLock()
	hooks := errorHooks
	hooksMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}
}

func refreshActiveReporting() {
	hooksMu.RLock()
	n := len(errorHooks)
	hooksMu.RUnlock()

	reporter := GetTelemetryReporter()
	hasActiveReporting.Store(n > 0 || (reporter != nil && reporter.IsEnabled()))
}
