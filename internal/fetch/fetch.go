// Package fetch reads a user's rows from the backend, one query per source in parallel.
// Each source succeeds or fails on its own.
package fetch

import (
	"context"
	"time"

	"taskquest/domain/core"
	"taskquest/internal/errors"
	"taskquest/ports"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source is a backend table the fetcher knows how to scope to a user and range
type Source string

const (
	SourceTasks        Source = "tasks"
	SourceGoals        Source = "goals"
	SourceGoalProgress Source = "goal_progress"
	SourceContacts     Source = "contacts"
	SourceInteractions Source = "contact_interactions"
	SourceWellness     Source = "wellness_entries"
)

// AllSources lists every source the insight engine consumes
var AllSources = []Source{SourceTasks, SourceGoals, SourceGoalProgress, SourceContacts, SourceInteractions, SourceWellness}

// timeColumn names the event timestamp a range applies to. Sources without one
// are state tables and are read whole for the user.
var timeColumn = map[Source]string{
	SourceGoalProgress: "recorded_at",
	SourceInteractions: "occurred_at",
	SourceWellness:     "recorded_at",
}

// Result holds one source's rows or the error that source failed with
type Result struct {
	Rows []ports.Row
	Err  error
}

// Results maps each requested source to its outcome
type Results map[Source]Result

// Failed returns the sources whose query failed
func (r Results) Failed() []Source {
	var out []Source
	for _, s := range AllSources {
		if res, ok := r[s]; ok && res.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// Fetcher issues the per-source queries
type Fetcher struct {
	backend     ports.Backend
	concurrency int
	timeout     time.Duration
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithConcurrency bounds how many queries run at once
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithTimeout bounds each query; zero leaves only the caller's deadline
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// New creates a fetcher over backend
func New(backend ports.Backend, opts ...Option) *Fetcher {
	f := &Fetcher{backend: backend, concurrency: 4}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Spec returns the query issued for one source
func Spec(source Source, user core.UserID, r core.DateRange) ports.QuerySpec {
	spec := ports.QuerySpec{
		Table:   string(source),
		Filters: []ports.Filter{ports.Eq("user_id", user.String())},
	}
	if col, ok := timeColumn[source]; ok {
		spec.Filters = append(spec.Filters, ports.Gte(col, r.From), ports.Lt(col, r.To))
		spec.OrderBy = col
	}
	return spec
}

// FetchAll queries every source (AllSources when none are given) for rows in r.
// The returned error is only ever about the request itself; per-source failures
// are reported in Results.
func (f *Fetcher) FetchAll(ctx context.Context, user core.UserID, r core.DateRange, sources ...Source) (Results, error) {
	if user == "" {
		return nil, errors.Unauthenticated()
	}
	if err := r.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeValidationError, err)
	}
	if len(sources) == 0 {
		sources = AllSources
	}

	results := make([]Result, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, source := range sources {
		g.Go(func() error {
			qctx := gctx
			if f.timeout > 0 {
				var cancel context.CancelFunc
				qctx, cancel = context.WithTimeout(gctx, f.timeout)
				defer cancel()
			}

			start := time.Now()
			rows, err := f.backend.Query(qctx, Spec(source, user, r))
			entry := log.WithFields(log.Fields{
				"source":   source,
				"user_id":  user,
				"rows":     len(rows),
				"duration": time.Since(start),
			})
			if err != nil {
				entry.WithError(err).Warn("Source fetch failed")
			} else {
				entry.Debug("Source fetched")
			}
			results[i] = Result{Rows: rows, Err: err}
			// never cancel siblings: each source stands alone
			return nil
		})
	}
	_ = g.Wait()

	out := make(Results, len(sources))
	for i, source := range sources {
		out[source] = results[i]
	}
	return out, ctx.Err()
}
