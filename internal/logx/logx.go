// Package logx holds the small pslog helpers shared by the console and the
// development backend.
package logx

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"pkt.systems/pslog"
)

type contextKey int

const (
	userKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithUser annotates the logger with the user id if present.
func WithUser(ctx context.Context, userID string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if userID != "" {
		if current, ok := ctx.Value(userKey).(string); ok && current == userID {
			return log
		}
		log = log.With("user", userID)
	}
	return log
}

// WithComponent tags log lines with the emitting component.
func WithComponent(log pslog.Logger, component string) pslog.Logger {
	if component != "" {
		log = log.With("component", component)
	}
	return log
}

// WithClient annotates the logger with a connected client's id and address.
func WithClient(log pslog.Logger, clientID, remote string) pslog.Logger {
	if clientID != "" {
		log = log.With("client", clientID)
	}
	if remote != "" {
		log = log.With("remote", remote)
	}
	return log
}

// ContextWithUser stores the user marker on the context for log de-duplication.
func ContextWithUser(ctx context.Context, userID string) context.Context {
	if ctx == nil || userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userKey, userID)
}

// ContextWithUserLogger attaches the logger, annotated with the user, and
// the user marker to the context.
func ContextWithUserLogger(ctx context.Context, log pslog.Logger, userID string) context.Context {
	if userID != "" {
		log = log.With("user", userID)
	}
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithUser(ctx, userID)
}

// OpenFile returns a structured logger appending to path. The console uses
// it because the alternate screen owns the terminal. An empty path discards
// all output.
func OpenFile(path string, debug bool) (pslog.Logger, io.Closer, error) {
	level := pslog.InfoLevel
	if debug {
		level = pslog.DebugLevel
	}
	opts := pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      level,
		VerboseFields: true,
	}
	if path == "" {
		return pslog.NewWithOptions(io.Discard, opts), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return pslog.NewWithOptions(f, opts), f, nil
}
