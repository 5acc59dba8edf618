// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, optional rotated file output and request-scoped loggers
// carried through context.Context.
package logger
