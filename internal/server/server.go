// Package server binds the session manager and feature generators to
// the language server protocol.
package server

import (
	"fmt"
	"sync/atomic"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"depls/internal/config"
	"depls/internal/ecosystem"
	"depls/internal/ecosystem/cargo"
	"depls/internal/ecosystem/gomod"
	"depls/internal/ecosystem/npm"
	"depls/internal/ecosystem/pypi"
	"depls/internal/features"
	"depls/internal/registry"
	"depls/internal/session"
)

const lsName = "depls"

// Server is the language server state shared by all handlers.
type Server struct {
	cfg     config.Config
	handler *protocol.Handler
	table   *ecosystem.Table
	cache   *registry.Cache
	manager *session.Manager

	// client holds the newest request context; background refreshes
	// notify the client through it.
	client atomic.Pointer[glsp.Context]
}

// NewServer wires every ecosystem adapter behind a shared registry
// cache and returns a stdio-ready glsp server.
func NewServer(cfg config.Config) (*glspserver.Server, error) {
	cache := registry.NewCache(registry.Options{
		TTL:        cfg.CacheTTL(),
		MaxBytes:   cfg.Cache.MaxBytesMB << 20,
		ServeStale: cfg.Cache.ServeStale,
	})

	table := ecosystem.NewTable()
	for _, adapter := range []ecosystem.Adapter{
		cargo.New(cache),
		npm.New(cache),
		pypi.New(cache),
		gomod.New(cache),
	} {
		if err := table.Register(adapter); err != nil {
			return nil, fmt.Errorf("register %s: %w", adapter.ID(), err)
		}
	}

	ls := &Server{
		cfg:   cfg,
		table: table,
		cache: cache,
	}
	ls.manager = session.NewManager(table, &ls.cfg, ls.publishDiagnostics)

	ls.handler = &protocol.Handler{
		Initialize:             ls.initialize,
		Initialized:            ls.initialized,
		SetTrace:               ls.setTrace,
		TextDocumentDidOpen:    ls.textDocumentDidOpen,
		TextDocumentDidChange:  ls.textDocumentDidChange,
		TextDocumentDidClose:   ls.textDocumentDidClose,
		TextDocumentHover:      ls.textDocumentHover,
		TextDocumentCodeAction: ls.textDocumentCodeAction,
		TextDocumentCompletion: ls.textDocumentCompletion,
		Shutdown:               ls.shutdown,
	}

	return glspserver.NewServer(&dispatcher{ls}, lsName, false), nil
}

// publishDiagnostics pushes a snapshot's diagnostics to the client, if
// one has talked to us yet.
func (s *Server) publishDiagnostics(snap *session.Snapshot) {
	client := s.client.Load()
	if client == nil {
		return
	}
	client.Notify("textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         snap.URI,
		Diagnostics: features.Diagnostics(snap, &s.cfg),
	})
}
