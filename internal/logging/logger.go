// Package logging decouples the rest of the code from a concrete logging
// backend. Services take a Logger; the binary decides whether that is
// slog, zerolog, or something else.
package logging

import "context"

// Logger takes a message plus alternating key/value args:
//
//	log.Info(ctx, "starting server", "addr", addr, "mode", mode)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a derived logger that stamps every record with the
	// given key/value pairs.
	With(args ...any) Logger
}
