package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
)

// Item is one resolvable entry expanded from a source URL.
type Item struct {
	Title   string
	Locator string
}

// Provider expands a URL into resolvable items and materializes a
// single item into a local audio file. Implementations must be safe
// for concurrent use: one instance is shared by all jobs of a source
// type but carries no per-job mutable state.
type Provider interface {
	// List returns the ordered expansion of url. It fails with an
	// *ExpansionError when the URL resolves to nothing; per-item
	// failures inside a batch are omitted, not escalated.
	List(ctx context.Context, url string) ([]Item, error)
	// Materialize downloads item into destDir and returns the local
	// file path. Failures are *MaterializationError.
	Materialize(ctx context.Context, item Item, destDir string) (string, error)
}

// ExpansionError is fatal to the whole acquisition job.
type ExpansionError struct {
	URL string
	Err error
}

func (e *ExpansionError) Error() string {
	return fmt.Sprintf("expand %s: %v", e.URL, e.Err)
}

func (e *ExpansionError) Unwrap() error { return e.Err }

// MaterializationError affects a single item only.
type MaterializationError struct {
	Item Item
	Err  error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("materialize %q: %v", e.Item.Title, e.Err)
}

func (e *MaterializationError) Unwrap() error { return e.Err }

var ErrUnknownSource = errors.New("provider: unknown source type")

// Registry maps source types to their provider. Providers are
// registered once at startup and handed to jobs explicitly.
type Registry struct {
	mu        sync.RWMutex
	providers map[core.SourceType]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[core.SourceType]Provider)}
}

func (r *Registry) Register(source core.SourceType, p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	r.providers[source] = p
	r.mu.Unlock()
}

func (r *Registry) Lookup(source core.SourceType) (Provider, error) {
	r.mu.RLock()
	p, ok := r.providers[source]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	return p, nil
}
