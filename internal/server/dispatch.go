package server

import (
	"encoding/json"

	"github.com/tliron/glsp"

	"depls/internal/features"
)

// dispatcher fronts the protocol handler so the inlay hint method,
// which postdates the 3.16 protocol tables, can be served too. It also
// remembers the newest context for background notifications.
type dispatcher struct {
	ls *Server
}

func (d *dispatcher) Handle(ctx *glsp.Context) (any, bool, bool, error) {
	d.ls.client.Store(ctx)

	if ctx.Method == features.MethodTextDocumentInlayHint {
		var params features.InlayHintParams
		if err := json.Unmarshal(ctx.Params, &params); err != nil {
			return nil, true, false, err
		}
		result, err := d.ls.textDocumentInlayHint(ctx, &params)
		return result, true, true, err
	}

	return d.ls.handler.Handle(ctx)
}
