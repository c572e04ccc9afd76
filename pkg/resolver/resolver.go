// Package resolver turns declared dependencies into version facts by
// querying a registry lookup once per distinct package.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sambabib/depdoctor/pkg/logger"
	"github.com/sambabib/depdoctor/pkg/model"
	"github.com/sambabib/depdoctor/pkg/registry"
)

const (
	DefaultWorkers     = 8
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
)

// Resolver fetches the latest release of each distinct package.
type Resolver struct {
	lookup registry.Lookup

	workers     int
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithWorkers bounds the number of concurrent lookups.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithMaxAttempts sets how many times a rate limited lookup is tried.
func WithMaxAttempts(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBackoff sets the first retry delay and the cap for later ones.
func WithBackoff(base, max time.Duration) Option {
	return func(r *Resolver) {
		if base > 0 {
			r.baseDelay = base
		}
		if max > 0 {
			r.maxDelay = max
		}
	}
}

// WithClock overrides the clock used to stamp ResolvedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Resolver over lookup.
func New(lookup registry.Lookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:      lookup,
		workers:     DefaultWorkers,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		now:         time.Now,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxDelay < r.baseDelay {
		r.maxDelay = r.baseDelay
	}
	return r
}

// Resolve returns one fact per distinct key in deps. The map is complete
// even when ctx ends early; keys that were not resolved in time carry the
// canceled error state.
func (r *Resolver) Resolve(ctx context.Context, deps []model.DeclaredDependency) map[model.Key]model.PackageVersionFact {
	keys := distinctKeys(deps)
	facts := make(map[model.Key]model.PackageVersionFact, len(keys))
	if len(keys) == 0 {
		return facts
	}

	logger.Debugf("Resolver: resolving %d distinct packages with %d workers", len(keys), r.workers)

	var mu sync.Mutex
	var panicked any
	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		key := key
		g.Go(func() error {
			defer func() {
				// Re-raised on the caller's goroutine after Wait
				if p := recover(); p != nil {
					mu.Lock()
					if panicked == nil {
						panicked = p
					}
					mu.Unlock()
				}
			}()
			fact := r.resolveOne(ctx, key)
			mu.Lock()
			facts[key] = fact
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if panicked != nil {
		panic(fmt.Sprintf("resolver: lookup panicked: %v", panicked))
	}

	for _, key := range keys {
		if _, ok := facts[key]; !ok {
			facts[key] = r.failed(key, 0, model.FactCanceled, ctx.Err())
		}
	}
	return facts
}

func (r *Resolver) resolveOne(ctx context.Context, key model.Key) model.PackageVersionFact {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return r.failed(key, attempt-1, model.FactCanceled, err)
		}

		rel, err := r.lookup.Latest(ctx, key.Ecosystem, key.Name)
		if err == nil && (rel == nil || rel.Version == "") {
			err = fmt.Errorf("%w: empty release for %s", registry.ErrMalformed, key)
		}
		if err == nil {
			return model.PackageVersionFact{
				Ecosystem:          key.Ecosystem,
				Name:               key.Name,
				LatestVersion:      rel.Version,
				Deprecated:         rel.Deprecated,
				DeprecationMessage: rel.DeprecationMessage,
				ResolvedAt:         r.now(),
				Attempts:           attempt,
			}
		}

		kind := registry.Classify(err)
		if kind != model.FactRateLimited || attempt >= r.maxAttempts {
			logger.Debugf("Resolver: %s failed after %d attempt(s): %v", key, attempt, err)
			return r.failed(key, attempt, kind, err)
		}

		delay := r.backoff(attempt, err)
		logger.Debugf("Resolver: %s rate limited, retrying in %s", key, delay)
		if serr := r.sleep(ctx, delay); serr != nil {
			return r.failed(key, attempt, model.FactCanceled, serr)
		}
	}
}

// backoff doubles baseDelay per attempt and honors a larger Retry-After,
// both capped at maxDelay.
func (r *Resolver) backoff(attempt int, err error) time.Duration {
	d := r.baseDelay
	for i := 1; i < attempt && d < r.maxDelay; i++ {
		d *= 2
	}
	var rle *registry.RateLimitError
	if errors.As(err, &rle) && rle.RetryAfter > d {
		d = rle.RetryAfter
	}
	if d > r.maxDelay {
		d = r.maxDelay
	}
	return d
}

func (r *Resolver) failed(key model.Key, attempts int, kind model.FactError, err error) model.PackageVersionFact {
	f := model.PackageVersionFact{
		Ecosystem:  key.Ecosystem,
		Name:       key.Name,
		ResolvedAt: r.now(),
		Attempts:   attempts,
		Error:      kind,
	}
	if err != nil {
		f.ErrorDetail = err.Error()
	}
	return f
}

func distinctKeys(deps []model.DeclaredDependency) []model.Key {
	seen := make(map[model.Key]struct{}, len(deps))
	keys := make([]model.Key, 0, len(deps))
	for _, d := range deps {
		k := d.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Ecosystem != keys[j].Ecosystem {
			return keys[i].Ecosystem < keys[j].Ecosystem
		}
		return keys[i].Name < keys[j].Name
	})
	return keys
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
