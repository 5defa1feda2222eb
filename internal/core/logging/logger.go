// Package logging holds the shared zerolog helpers: per-component loggers and
// context fields for session scoped events.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component returns the global logger tagged with a "cmp" field.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
