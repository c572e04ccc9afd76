// Package analyzer runs the scan, resolve and build stages over one
// repository.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sambabib/depdoctor/pkg/logger"
	"github.com/sambabib/depdoctor/pkg/model"
	"github.com/sambabib/depdoctor/pkg/registry"
	"github.com/sambabib/depdoctor/pkg/report"
	"github.com/sambabib/depdoctor/pkg/resolver"
	"github.com/sambabib/depdoctor/pkg/scanner"
)

var (
	// ErrInvalidInput means the repository path could not be scanned.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInternal means a stage failed unexpectedly.
	ErrInternal = errors.New("internal error")
)

// Analyzer checks a repository's dependencies against their registries.
type Analyzer struct {
	lookup registry.Lookup

	scanOpts    scanner.Options
	reportOpts  report.Options
	resolveOpts []resolver.Option
	timeout     time.Duration
	now         func() time.Time
}

// Option configures the Analyzer.
type Option func(*Analyzer)

// WithTimeout bounds the resolve stage. Packages not resolved in time are
// reported as unresolved.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		a.timeout = d
	}
}

// WithWorkers sets the number of concurrent registry lookups.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		a.resolveOpts = append(a.resolveOpts, resolver.WithWorkers(n))
	}
}

// WithRetry sets the attempt budget and backoff for rate limited lookups.
func WithRetry(maxAttempts int, baseDelay, maxDelay time.Duration) Option {
	return func(a *Analyzer) {
		a.resolveOpts = append(a.resolveOpts,
			resolver.WithMaxAttempts(maxAttempts),
			resolver.WithBackoff(baseDelay, maxDelay))
	}
}

// WithScanOptions sets exclusions and ignored packages.
func WithScanOptions(opts scanner.Options) Option {
	return func(a *Analyzer) {
		a.scanOpts = opts
	}
}

// WithSeverity overrides how update types map to severities.
func WithSeverity(fn func(updateType string) string) Option {
	return func(a *Analyzer) {
		a.reportOpts.SeverityForUpdate = fn
	}
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates an Analyzer that resolves versions through lookup.
func New(lookup registry.Lookup, opts ...Option) *Analyzer {
	a := &Analyzer{
		lookup: lookup,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze scans path, resolves every distinct package and builds the report.
// Registry failures never fail the run; they surface as unresolved findings.
func (a *Analyzer) Analyze(ctx context.Context, path string) (rep *model.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			if logger.IsVerbose() {
				logger.Debugf("Analyzer: recovered panic: %v\n%s", r, debug.Stack())
			}
			rep = nil
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()

	scan, err := scanner.Scan(path, a.scanOpts)
	if err != nil {
		if errors.Is(err, scanner.ErrInvalidRoot) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("%w: scan: %w", ErrInternal, err)
	}
	logger.Infof("Found %d manifest(s) declaring %d dependencies in %s",
		len(scan.Manifests), len(scan.Dependencies), scan.Root)
	for _, w := range scan.Warnings {
		logger.Warnf("%s: %s", w.Path, w.Message)
	}

	var facts map[model.Key]model.PackageVersionFact
	if len(scan.Dependencies) > 0 {
		if a.lookup == nil {
			return nil, fmt.Errorf("%w: no registry lookup configured", ErrInternal)
		}
		facts = a.resolve(ctx, scan.Dependencies)
	}

	rep = report.Build(scan, facts, a.reportOpts)
	rep.GeneratedAt = a.now().UTC()
	return rep, nil
}

func (a *Analyzer) resolve(ctx context.Context, deps []model.DeclaredDependency) map[model.Key]model.PackageVersionFact {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	opts := append([]resolver.Option{resolver.WithClock(a.now)}, a.resolveOpts...)
	start := a.now()
	facts := resolver.New(a.lookup, opts...).Resolve(ctx, deps)
	logger.Debugf("Analyzer: resolved %d packages in %s", len(facts), a.now().Sub(start))
	return facts
}
