// Package kiwilog provides the solver's debug-tracing logger.
//
// It follows the configurable-global-logger pattern used across
// github.com/consensys/gnark: a package-level github.com/rs/zerolog logger,
// silent (Nop) by default so that importing this module never produces
// output a caller didn't ask for, with Set/Disable/Logger to override it.
package kiwilog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	logger = zerolog.New(output).With().Timestamp().Logger().Level(zerolog.Disabled)
}

// SetOutput changes the output writer of the global logger without
// otherwise altering its level or fields.
func SetOutput(w io.Writer) {
	logger = logger.Output(w)
}

// Set replaces the global logger, e.g. to enable Debug-level pivot tracing:
//
//	kiwilog.Set(kiwilog.Logger().Level(zerolog.DebugLevel))
func Set(l zerolog.Logger) {
	logger = l
}

// Disable silences all solver logging.
func Disable() {
	logger = zerolog.Nop()
}

// Logger returns the current global logger.
func Logger() *zerolog.Logger {
	return &logger
}
