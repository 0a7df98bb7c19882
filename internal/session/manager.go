package session

import (
	"context"
	"log"
	"sync"
	"time"

	"depls/internal/config"
	"depls/internal/ecosystem"
	"depls/internal/fetcher"
	"depls/internal/manifest"
	"depls/internal/position"
)

// PublishFunc receives every newly published snapshot, typically to
// push diagnostics to the client.
type PublishFunc func(snap *Snapshot)

// Manager owns all document sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	table    *ecosystem.Table
	cfg      *config.Config
	publish  PublishFunc
	limiter  *ColdStartLimiter
	ctx      context.Context
	shutdown context.CancelFunc
}

// NewManager builds a manager dispatching through table. publish may
// be nil when no client is attached.
func NewManager(table *ecosystem.Table, cfg *config.Config, publish PublishFunc) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	if publish == nil {
		publish = func(*Snapshot) {}
	}
	return &Manager{
		sessions: make(map[string]*Session),
		table:    table,
		cfg:      cfg,
		publish:  publish,
		limiter:  NewColdStartLimiter(cfg.ColdStart.RatePerSec, time.Duration(cfg.ColdStart.SweepSeconds)*time.Second),
		ctx:      ctx,
		shutdown: cancel,
	}
}

// Open starts tracking a document. Documents no adapter claims are
// ignored.
func (m *Manager) Open(uri, content string) {
	adapter := m.table.Resolve(uri)
	if adapter == nil {
		return
	}

	s := &Session{uri: uri, adapter: adapter}
	tickCtx, stopTick := context.WithCancel(m.ctx)
	s.stop = stopTick

	m.mu.Lock()
	old := m.sessions[uri]
	m.sessions[uri] = s
	m.mu.Unlock()
	if old != nil {
		old.shutdown()
	}

	go m.tick(tickCtx, s)
	m.refresh(s, content)
}

// Change replaces the document text. A refresh already running for the
// old text is canceled; the newest text wins.
func (m *Manager) Change(uri, content string) {
	m.mu.RLock()
	s := m.sessions[uri]
	m.mu.RUnlock()
	if s == nil {
		m.Open(uri, content)
		return
	}
	m.refresh(s, content)
}

// Close stops tracking a document.
func (m *Manager) Close(uri string) {
	m.mu.Lock()
	s := m.sessions[uri]
	delete(m.sessions, uri)
	m.mu.Unlock()
	if s != nil {
		s.shutdown()
	}
}

// Snapshot returns the current snapshot for a tracked document, nil
// otherwise.
func (m *Manager) Snapshot(uri string) *Snapshot {
	m.mu.RLock()
	s := m.sessions[uri]
	m.mu.RUnlock()
	if s != nil {
		return s.Snapshot()
	}
	return nil
}

// Ensure returns the snapshot for uri, synthesizing an open from disk
// when the editor never reported one. The cold start limiter bounds
// how often that synthesis may run per URI; over-limit requests get
// nil and the caller returns an empty result.
func (m *Manager) Ensure(uri string) *Snapshot {
	if snap := m.Snapshot(uri); snap != nil {
		return snap
	}
	if !m.cfg.ColdStart.Enabled || m.table.Resolve(uri) == nil {
		return nil
	}
	if !m.limiter.Allow(uri) {
		return nil
	}
	path := uriToPath(uri)
	if path == "" {
		return nil
	}
	content, ok := readCapped(path)
	if !ok {
		return nil
	}
	m.Open(uri, content)
	return m.Snapshot(uri)
}

// Shutdown stops every session and the cold start sweeper.
func (m *Manager) Shutdown() {
	m.shutdown()
	m.limiter.Stop()
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.shutdown()
	}
}

// refresh starts a new generation for the given text. The revision is
// claimed before the parse, so a newer Change during a slow parse wins
// and the stale snapshot is discarded instead of published.
func (m *Manager) refresh(s *Session, content string) {
	fetchCtx, rev := s.begin(m.ctx)
	m.refreshAs(s, fetchCtx, rev, content)
}

// refreshCurrent is the periodic path: it claims the revision first
// and only then reads the text to refresh, so it can never resurrect
// content from before a concurrent edit.
func (m *Manager) refreshCurrent(s *Session) {
	fetchCtx, rev := s.begin(m.ctx)
	snap := s.snap.Load()
	if snap == nil {
		return
	}
	m.refreshAs(s, fetchCtx, rev, snap.Content)
}

// refreshAs parses synchronously, publishes a snapshot carrying any
// previously cached versions, then fetches registry metadata in the
// background and publishes again with the results. Both publishes are
// conditional on rev still being the newest generation.
func (m *Manager) refreshAs(s *Session, fetchCtx context.Context, rev uint64, content string) {
	result, parseErr := s.adapter.Parse(content, s.uri)
	if parseErr != nil {
		log.Printf("parse %s: %v", s.uri, parseErr)
		result = &manifest.ParseResult{URI: s.uri}
	}

	names := make([]string, 0, len(result.Dependencies))
	reqs := make([]fetcher.Request, 0, len(result.Dependencies))
	for _, dep := range result.Dependencies {
		names = append(names, dep.Name)
		reqs = append(reqs, fetcher.Request{Name: dep.Name, Requirement: dep.Requirement})
	}

	snap := &Snapshot{
		URI:      s.uri,
		Adapter:  s.adapter,
		Content:  content,
		Index:    position.NewIndex(content),
		Result:   result,
		ParseErr: parseErr,
		Resolved: resolveLocked(s.adapter, s.uri, names),
	}
	if prev := s.snap.Load(); prev != nil {
		snap.Versions = prev.Versions
		snap.Latest = prev.Latest
	}

	if !s.publish(rev, snap, m.publish) {
		return
	}

	if parseErr != nil || len(reqs) == 0 {
		return
	}

	go func() {
		res := fetcher.Fetch(fetchCtx, s.adapter, reqs, fetcher.Options{
			MaxConcurrent:   m.cfg.Fetch.MaxConcurrent,
			PerFetchTimeout: m.cfg.FetchTimeout(),
		})

		next := &Snapshot{
			URI:      snap.URI,
			Adapter:  snap.Adapter,
			Content:  snap.Content,
			Index:    snap.Index,
			Result:   snap.Result,
			Resolved: snap.Resolved,
			Versions: mergeVersions(snap.Versions, res.Versions),
			Latest:   mergeLatest(snap.Latest, res.Latest),
		}
		s.publish(rev, next, m.publish)
	}()
}

// tick drives the periodic background refresh.
func (m *Manager) tick(ctx context.Context, s *Session) {
	ticker := time.NewTicker(m.cfg.RefreshInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refreshCurrent(s)
		}
	}
}

func mergeVersions(prev, fetched map[string][]manifest.Version) map[string][]manifest.Version {
	merged := make(map[string][]manifest.Version, len(prev)+len(fetched))
	for name, v := range prev {
		merged[name] = v
	}
	for name, v := range fetched {
		merged[name] = v
	}
	return merged
}

func mergeLatest(prev, fetched map[string]string) map[string]string {
	merged := make(map[string]string, len(prev)+len(fetched))
	for name, v := range prev {
		merged[name] = v
	}
	for name, v := range fetched {
		merged[name] = v
	}
	return merged
}
