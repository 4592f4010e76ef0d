// Package adapter defines the ClientAdapter contract that every
// platform-specific collection client must implement. The
// core orchestrator treats adapters as opaque: it never reflects on adapter
// types, only on the PlatformName each one reports.
package adapter

import (
	"context"

	"github.com/techappsUT/social-queue/internal/platformtypes"
)

// ClientAdapter transforms abstract collection config into a provider
// query, executes one collection, and converts raw items into store rows.
// Implementations must not panic or return across this boundary for
// expected failure kinds; use platformtypes.CollectionError instead.
type ClientAdapter interface {
	// Setup performs idempotent one-shot initialization (credentials,
	// session). On failure, the caller retries on the next processing pass.
	Setup(ctx context.Context) error

	// TransformConfig validates and translates an abstract config into a
	// provider-specific query. It returns an *platformtypes.CollectionError
	// of kind ErrKindInvalidConfig when the abstract config cannot satisfy
	// the provider's required fields.
	TransformConfig(ctx context.Context, abstract platformtypes.AbstractConfig) (interface{}, error)

	// TransformConfigToSerializable is like TransformConfig but returns a
	// JSON-serializable projection persisted on the Task row. It must be a
	// one-step fixed point: calling it again on its own output returns the
	// same value.
	TransformConfigToSerializable(ctx context.Context, abstract platformtypes.AbstractConfig) (map[string]interface{}, error)

	// ExecuteTask performs one collection step. Expected failures are
	// returned as a *platformtypes.CollectionError, never raised.
	ExecuteTask(ctx context.Context, task *platformtypes.Task) (*platformtypes.CollectionResult, error)

	// CreatePostEntry maps a raw collected item to the store row shape.
	CreatePostEntry(raw platformtypes.RawItem, task *platformtypes.Task) platformtypes.Post

	// PlatformName matches the manager's platform symbol.
	PlatformName() platformtypes.Platform
}

// Registry maps platform symbols to their ClientAdapter instance. The core
// chooses adapters by this symbol table at startup and never reflects on
// concrete adapter types.
type Registry struct {
	adapters map[platformtypes.Platform]ClientAdapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[platformtypes.Platform]ClientAdapter)}
}

// Register adds an adapter. Registering the same platform twice is an error.
func (r *Registry) Register(a ClientAdapter) error {
	platform := a.PlatformName()
	if _, exists := r.adapters[platform]; exists {
		return &DuplicateAdapterError{Platform: platform}
	}
	r.adapters[platform] = a
	return nil
}

// Get retrieves the adapter registered for platform.
func (r *Registry) Get(platform platformtypes.Platform) (ClientAdapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}

// Platforms returns every registered platform symbol.
func (r *Registry) Platforms() []platformtypes.Platform {
	out := make([]platformtypes.Platform, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	return out
}

// DuplicateAdapterError is returned when a platform is registered twice.
type DuplicateAdapterError struct {
	Platform platformtypes.Platform
}

func (e *DuplicateAdapterError) Error() string {
	return "adapter for platform " + string(e.Platform) + " already registered"
}
