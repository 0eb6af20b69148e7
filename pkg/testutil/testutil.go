// Package testutil holds small helpers shared by unit tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"time"

	"custodia/pkg/requestcontext"
)

// DiscardLogger returns a logger that drops everything. Services require a
// logger; tests rarely care about its output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ContextWithTime returns a background context carrying a fixed request time.
func ContextWithTime(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}
