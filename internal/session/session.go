// Package session tracks open manifest documents. Each document has a
// session holding an immutable snapshot that feature requests read
// without blocking, while refresh cycles build replacement snapshots
// in the background and swap them in atomically.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"depls/internal/ecosystem"
	"depls/internal/manifest"
	"depls/internal/position"
)

// Snapshot is the published state of one document. It is immutable once
// stored; a refresh builds a new one and swaps the pointer.
type Snapshot struct {
	URI     string
	Adapter ecosystem.Adapter
	Content string
	Index   *position.Index
	// Result holds the parsed dependencies. Never nil; empty when the
	// document failed to parse.
	Result *manifest.ParseResult
	// ParseErr is set when the last parse failed. The session stays
	// alive so a later edit can recover.
	ParseErr error
	// Versions maps dependency name to the cached newest-first version
	// list. Carried forward across edits until a fetch replaces it.
	Versions map[string][]manifest.Version
	// Latest maps dependency name to the latest requirement-matching
	// version from the most recent fetch.
	Latest map[string]string
	// Resolved maps dependency name to the lock file version, when an
	// adapter resolves lock files and one was found.
	Resolved map[string]string
}

// Dependency returns the parsed dependency whose name or requirement
// span contains the byte offset.
func (s *Snapshot) Dependency(offset int) *manifest.Dependency {
	for i := range s.Result.Dependencies {
		dep := &s.Result.Dependencies[i]
		if dep.NameSpan.Contains(offset) {
			return dep
		}
		if dep.RequirementSpan != nil && dep.RequirementSpan.Contains(offset) {
			return dep
		}
	}
	return nil
}

// Session is one tracked document.
type Session struct {
	uri     string
	adapter ecosystem.Adapter
	snap    atomic.Pointer[Snapshot]

	mu          sync.Mutex
	revision    uint64
	cancelFetch context.CancelFunc
	stop        context.CancelFunc
}

// Snapshot returns the current snapshot.
func (s *Session) Snapshot() *Snapshot {
	return s.snap.Load()
}

// begin starts a new refresh generation: any in-flight fetch is
// canceled and a fetch context for the new generation is returned
// along with its revision number.
func (s *Session) begin(parent context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFetch != nil {
		s.cancelFetch()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancelFetch = cancel
	s.revision++
	return ctx, s.revision
}

// publish stores and announces a snapshot, but only while rev is still
// the newest generation. Check and store happen under one lock so a
// refresh that lost the race can never overwrite a newer snapshot.
func (s *Session) publish(rev uint64, snap *Snapshot, fn PublishFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rev != s.revision {
		return false
	}
	s.snap.Store(snap)
	fn(snap)
	return true
}

func (s *Session) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFetch != nil {
		s.cancelFetch()
	}
	if s.stop != nil {
		s.stop()
	}
}
