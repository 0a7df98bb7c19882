package server

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"depls/internal/features"
	"depls/internal/position"
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	if params.InitializationOptions != nil {
		s.cfg.MergeInitializationOptions(params.InitializationOptions)
		s.cfg.Validate()
	}

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}

	caps, err := withInlayHintCapability(capabilities)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"capabilities": caps,
		"serverInfo":   protocol.InitializeResultServerInfo{Name: lsName},
	}, nil
}

// withInlayHintCapability adds the 3.17 inlay hint capability the
// protocol struct has no field for.
func withInlayHintCapability(capabilities protocol.ServerCapabilities) (map[string]any, error) {
	raw, err := json.Marshal(capabilities)
	if err != nil {
		return nil, fmt.Errorf("marshal capabilities: %w", err)
	}
	var caps map[string]any
	if err := json.Unmarshal(raw, &caps); err != nil {
		return nil, fmt.Errorf("unmarshal capabilities: %w", err)
	}
	caps["inlayHintProvider"] = true
	return caps, nil
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Println("Client initialized.")
	return nil
}

func (s *Server) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	log.Println("Shutdown")
	protocol.SetTraceValue(protocol.TraceValueOff)
	s.manager.Shutdown()
	return nil
}

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	log.Printf("DidOpen: %s", uri)
	s.manager.Open(uri, params.TextDocument.Text)
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	uri := params.TextDocument.URI

	content, known := s.currentContent(uri)
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			// Full sync is advertised, but a ranged change from a
			// client that sends them anyway is still applied.
			if !known {
				log.Printf("DidChange: ranged change for untracked %s", uri)
				return nil
			}
			content = applyChange(content, c)
		}
	}

	s.manager.Change(uri, content)
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	log.Printf("DidClose: %s", uri)
	s.manager.Close(uri)
	return nil
}

func (s *Server) textDocumentHover(
	context *glsp.Context,
	params *protocol.HoverParams,
) (*protocol.Hover, error) {
	snap := s.manager.Ensure(params.TextDocument.URI)
	if snap == nil {
		return nil, nil
	}
	return features.Hover(snap, params.Position), nil
}

func (s *Server) textDocumentCodeAction(
	context *glsp.Context,
	params *protocol.CodeActionParams,
) (any, error) {
	snap := s.manager.Ensure(params.TextDocument.URI)
	if snap == nil {
		return nil, nil
	}
	return features.CodeActions(snap, params.Range), nil
}

func (s *Server) textDocumentCompletion(
	context *glsp.Context,
	params *protocol.CompletionParams,
) (any, error) {
	snap := s.manager.Ensure(params.TextDocument.URI)
	if snap == nil {
		return nil, nil
	}
	return features.Completions(snap, params.Position), nil
}

func (s *Server) textDocumentInlayHint(
	context *glsp.Context,
	params *features.InlayHintParams,
) (any, error) {
	snap := s.manager.Ensure(params.TextDocument.URI)
	if snap == nil {
		return nil, nil
	}
	return features.InlayHints(snap, &s.cfg), nil
}

func (s *Server) currentContent(uri string) (string, bool) {
	if snap := s.manager.Snapshot(uri); snap != nil {
		return snap.Content, true
	}
	return "", false
}

// applyChange splices a ranged edit into the current text using the
// same UTF-16 position mapping the rest of the server uses.
func applyChange(content string, c protocol.TextDocumentContentChangeEvent) string {
	if c.Range == nil {
		return c.Text
	}
	idx := position.NewIndex(content)
	start := idx.Offset(c.Range.Start)
	end := idx.Offset(c.Range.End)
	if start > end {
		start, end = end, start
	}
	return content[:start] + c.Text + content[end:]
}
