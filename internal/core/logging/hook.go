package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook copies session_id and document from the event context onto the
// log event.
type ContextHook struct{}

func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil || ctx == context.Background() {
		return
	}

	if id := GetSessionID(ctx); id != "" {
		e.Str("session_id", id)
	}
	if doc := GetDocument(ctx); doc != "" {
		e.Str("document", doc)
	}
}
