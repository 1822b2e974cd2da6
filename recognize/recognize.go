// Package recognize provides live speech-recognition provider interface and
// implementations. Recognition is best-effort: a failing or absent provider
// degrades the transcript hint, never the capture itself.
package recognize

import (
	"context"

	"github.com/screenbooth/screenbooth/internal/types"
)

// Provider defines the interface for speech recognizers. Implementations run
// in lockstep with the recorder: Start when recording starts, Feed for every
// encoded media chunk, Stop when recording stops.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Available reports whether the provider can produce results on this
	// platform/configuration.
	Available() bool

	// Start begins a recognition session. onResult is invoked in arrival
	// order for every partial and final result until Stop returns.
	Start(ctx context.Context, onResult func(types.RecognitionResult)) error

	// Feed submits an encoded media chunk for recognition.
	Feed(chunk []byte) error

	// Stop ends the session. No results are delivered after Stop returns.
	Stop() error
}

// Registry holds registered recognition providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a new provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns a provider by name, or nil if not registered.
func (r *Registry) Get(name string) Provider {
	return r.providers[name]
}

// Resolve returns the named provider if it is available, falling back to the
// noop provider so capture always has a recognizer to drive.
func (r *Registry) Resolve(name string) Provider {
	if p := r.providers[name]; p != nil && p.Available() {
		return p
	}
	return NewNoop()
}
