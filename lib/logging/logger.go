// Copyright 2026 The Autoarmor Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the structured loggers used by autoarmor
// binaries. Records go to stderr; stdout is reserved for the one-line
// diagnostics written by lib/process.
package logging

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// DebugVariable enables debug-level logging when set to any non-empty
// value.
const DebugVariable = "AUTOARMOR_DEBUG"

// New creates a logger for a binary, scoped with its component name.
// When stderr is a terminal, uses slog.TextHandler for human-readable
// output. When stderr is piped or redirected (CI logs), uses
// slog.JSONHandler so build systems can parse the records.
func New(component string) *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv(DebugVariable) != "" {
		level = slog.LevelDebug
	}
	return NewWithWriter(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level).
		With("component", component)
}

// NewWithWriter creates a logger writing to w with the given level.
// text selects slog.TextHandler over slog.JSONHandler.
func NewWithWriter(w io.Writer, text bool, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if text {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops every record. Tests use it when
// log output is irrelevant.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
