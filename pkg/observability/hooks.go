// Package observability provides hooks for metrics and tracing.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about build stages, visibility computation and cache
// operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [PromHooks] is the bundled implementation; it records everything into a
// private Prometheus registry that the CLI can dump to a textfile.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    prom := observability.NewPromHooks()
//	    observability.Register(prom)
//	    // ... run application
//	    _ = prom.WriteToTextfile("metrics.prom")
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Build().OnStageStart(ctx, "guards")
//	// ... place guards ...
//	observability.Build().OnStageComplete(ctx, "guards", duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Build Hooks
// =============================================================================

// BuildHooks receives events from the patrol graph builder.
type BuildHooks interface {
	// Stage events (visibility, guards, distance, connect, partition, weights)
	OnStageStart(ctx context.Context, stage string)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)

	// OnBuildComplete records the outcome of a whole build.
	OnBuildComplete(ctx context.Context, guards, edges int, duration time.Duration, err error)
}

// =============================================================================
// Visibility Hooks
// =============================================================================

// VisibilityHooks receives events from visibility computation.
type VisibilityHooks interface {
	// OnComputeStart records the start of a computation over tiles free tiles.
	OnComputeStart(ctx context.Context, algorithm string, tiles int)

	// OnComputeComplete records the end of a computation.
	OnComputeComplete(ctx context.Context, algorithm string, tiles int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopBuildHooks is a no-op implementation of BuildHooks.
type NoopBuildHooks struct{}

func (NoopBuildHooks) OnStageStart(context.Context, string)                            {}
func (NoopBuildHooks) OnStageComplete(context.Context, string, time.Duration, error)   {}
func (NoopBuildHooks) OnBuildComplete(context.Context, int, int, time.Duration, error) {}

// NoopVisibilityHooks is a no-op implementation of VisibilityHooks.
type NoopVisibilityHooks struct{}

func (NoopVisibilityHooks) OnComputeStart(context.Context, string, int) {}
func (NoopVisibilityHooks) OnComputeComplete(context.Context, string, int, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	buildHooks      BuildHooks      = NoopBuildHooks{}
	visibilityHooks VisibilityHooks = NoopVisibilityHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	hooksMu         sync.RWMutex
)

// SetBuildHooks registers custom build hooks.
// This should be called once at application startup before any build.
func SetBuildHooks(h BuildHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		buildHooks = h
	}
}

// SetVisibilityHooks registers custom visibility hooks.
func SetVisibilityHooks(h VisibilityHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		visibilityHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Register installs h for every hook category it implements.
func Register(h any) {
	if b, ok := h.(BuildHooks); ok {
		SetBuildHooks(b)
	}
	if v, ok := h.(VisibilityHooks); ok {
		SetVisibilityHooks(v)
	}
	if c, ok := h.(CacheHooks); ok {
		SetCacheHooks(c)
	}
}

// Build returns the registered build hooks.
func Build() BuildHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return buildHooks
}

// Visibility returns the registered visibility hooks.
func Visibility() VisibilityHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return visibilityHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	buildHooks = NoopBuildHooks{}
	visibilityHooks = NoopVisibilityHooks{}
	cacheHooks = NoopCacheHooks{}
}
