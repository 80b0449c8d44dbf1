// Package snsctx carries per-invocation settings of bus operations.
package snsctx

import (
	"context"
	"log/slog"
)

type ctxIndex int

const (
	ctxIndexVerbose ctxIndex = iota
	ctxIndexLogAttrs
)

// IsVerbose reports whether raw bus traffic should be dumped.
func IsVerbose(ctx context.Context) bool {
	val, _ := ctx.Value(ctxIndexVerbose).(bool)
	return val
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// WithLogAttrs adds attributes to every record logged through Logger(ctx).
func WithLogAttrs(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(ctxIndexLogAttrs).([]any)
	attrs := append(append([]any(nil), prev...), args...)
	return context.WithValue(ctx, ctxIndexLogAttrs, attrs)
}

// Logger returns the default logger extended with the attributes stored in ctx.
func Logger(ctx context.Context) *slog.Logger {
	attrs, _ := ctx.Value(ctxIndexLogAttrs).([]any)
	if len(attrs) == 0 {
		return slog.Default()
	}
	return slog.Default().With(attrs...)
}
