// Package registry looks up the latest published version of a package in
// its ecosystem's authoritative registry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sambabib/depdoctor/pkg/model"
)

var (
	ErrNotFound    = errors.New("package not found")
	ErrRateLimited = errors.New("registry rate limit exceeded")
	ErrUnreachable = errors.New("registry unreachable")
	ErrMalformed   = errors.New("malformed registry response")
)

// Release is the registry's view of a package's newest version.
type Release struct {
	Version            string `json:"version"`
	Deprecated         bool   `json:"deprecated"`
	DeprecationMessage string `json:"deprecation_message,omitempty"`
}

// Lookup resolves the latest release of a package. Implementations must be
// safe for concurrent use.
type Lookup interface {
	Latest(ctx context.Context, eco model.Ecosystem, name string) (*Release, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, eco model.Ecosystem, name string) (*Release, error)

func (f LookupFunc) Latest(ctx context.Context, eco model.Ecosystem, name string) (*Release, error) {
	return f(ctx, eco, name)
}

// Source queries a single ecosystem's registry.
type Source interface {
	Latest(ctx context.Context, name string) (*Release, error)
}

// RateLimitError is returned when the registry throttles us.
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("registry rate limit exceeded (status %d, retry after %s)", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("registry rate limit exceeded (status %d)", e.StatusCode)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// StatusError represents an unexpected HTTP status from a registry.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry returned status %d for %s", e.StatusCode, e.URL)
}

func (e *StatusError) Unwrap() error { return ErrUnreachable }

// Classify maps a lookup error onto the fact error taxonomy.
func Classify(err error) model.FactError {
	switch {
	case err == nil:
		return model.FactOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.FactCanceled
	case errors.Is(err, ErrNotFound):
		return model.FactNotFound
	case errors.Is(err, ErrRateLimited):
		return model.FactRateLimited
	case errors.Is(err, ErrMalformed):
		return model.FactMalformed
	default:
		return model.FactUnreachable
	}
}

// Router dispatches lookups to the source registered for each ecosystem.
type Router struct {
	sources map[model.Ecosystem]Source
}

// NewRouter creates a Router over the given sources.
func NewRouter(sources map[model.Ecosystem]Source) *Router {
	return &Router{sources: sources}
}

// URLs holds the base URL of each registry. Empty fields use the public default.
type URLs struct {
	Npm     string
	PyPI    string
	Maven   string
	NuGet   string
	GoProxy string
}

// NewDefaultRouter wires every supported ecosystem to its public registry.
func NewDefaultRouter(client *Client, urls URLs) *Router {
	return NewRouter(map[model.Ecosystem]Source{
		model.Node:   NewNpmSource(client, urls.Npm),
		model.Python: NewPyPISource(client, urls.PyPI),
		model.Java:   NewMavenSource(client, urls.Maven),
		model.DotNet: NewNuGetSource(client, urls.NuGet),
		model.Go:     NewGoProxySource(client, urls.GoProxy),
	})
}

func (r *Router) Latest(ctx context.Context, eco model.Ecosystem, name string) (*Release, error) {
	if !eco.Valid() {
		return nil, fmt.Errorf("%w: unsupported ecosystem %q", ErrNotFound, eco)
	}
	src, ok := r.sources[eco]
	if !ok {
		return nil, fmt.Errorf("%w: no registry configured for ecosystem %q", ErrNotFound, eco)
	}
	return src.Latest(ctx, name)
}
