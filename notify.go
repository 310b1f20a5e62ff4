package steprun

import (
	"context"
	"log/slog"
)

// Notifier receives user-facing error notifications from the Client.
// It is the CLI/GUI-neutral equivalent of the web product's transient
// toast: fired once per server-rejected request, independent of the
// store-level error state (double-reporting is possible and accepted).
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

type nopNotifier struct{}

func (nopNotifier) Notify(string) {}

// nopLogger is a logger that discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
