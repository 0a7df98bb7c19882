// Package fetcher runs the per-document registry fetch batches. All
// dependencies are fetched concurrently under a global cap, each with its
// own timeout, and one slow or broken package never holds up the rest.
package fetcher

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"depls/internal/ecosystem"
	"depls/internal/manifest"
)

// Request names one dependency to resolve.
type Request struct {
	Name        string
	Requirement string
}

// Result is the settled outcome of one batch. A dependency whose fetch
// failed or timed out simply has no entry.
type Result struct {
	// Versions maps name to the full newest-first version list.
	Versions map[string][]manifest.Version
	// Latest maps name to the latest requirement-matching version.
	Latest map[string]string
}

// Options bound a batch. Zero values fall back to defaults.
type Options struct {
	// MaxConcurrent caps in-flight fetches across the batch.
	MaxConcurrent int64
	// PerFetchTimeout bounds each individual fetch independently.
	PerFetchTimeout time.Duration
}

const (
	defaultMaxConcurrent   = 20
	defaultPerFetchTimeout = 5 * time.Second
)

// Fetch resolves a batch of dependencies against an adapter's registry.
// It returns only after every dispatched fetch has settled; there is no
// whole-batch timeout and no first-failure abort. Canceling ctx stops
// the batch at the next fetch boundary.
func Fetch(ctx context.Context, a ecosystem.Adapter, reqs []Request, opts Options) Result {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.PerFetchTimeout <= 0 {
		opts.PerFetchTimeout = defaultPerFetchTimeout
	}

	res := Result{
		Versions: make(map[string][]manifest.Version, len(reqs)),
		Latest:   make(map[string]string, len(reqs)),
	}

	sem := semaphore.NewWeighted(opts.MaxConcurrent)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, req := range reqs {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Batch canceled; everything already dispatched still
			// settles below.
			break
		}

		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			defer sem.Release(1)

			fetchCtx, cancel := context.WithTimeout(ctx, opts.PerFetchTimeout)
			defer cancel()

			versions, err := a.Versions(fetchCtx, req.Name)
			if err != nil {
				if errors.Is(err, ecosystem.ErrNotFound) {
					// The registry answered and does not know the
					// package. Record the empty list so diagnostics
					// can tell this apart from a fetch failure.
					mu.Lock()
					res.Versions[req.Name] = []manifest.Version{}
					mu.Unlock()
					return
				}
				if !errors.Is(err, context.Canceled) {
					log.Printf("fetch %s/%s failed: %v", a.ID(), req.Name, err)
				}
				return
			}
			if len(versions) == 0 {
				mu.Lock()
				res.Versions[req.Name] = versions
				mu.Unlock()
				return
			}

			match := ecosystem.SelectMatching(a, versions, req.Requirement)

			mu.Lock()
			res.Versions[req.Name] = versions
			if match != nil {
				res.Latest[req.Name] = match.Value
			}
			mu.Unlock()
		}(req)
	}

	wg.Wait()
	return res
}
