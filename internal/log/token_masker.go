// Package log provides logging helpers shared by the entry points.
package log

import (
	"context"
	"log/slog"
	"regexp"
)

// TokenMaskerHandler wraps a slog.Handler and masks Chatwork session
// tokens before records reach the underlying handler. Gateway error bodies
// can echo the pdata payload back, so the token would otherwise leak into
// logs verbatim.
type TokenMaskerHandler struct {
	handler slog.Handler
}

// NewTokenMaskerHandler creates a masking wrapper around handler.
func NewTokenMaskerHandler(handler slog.Handler) *TokenMaskerHandler {
	return &TokenMaskerHandler{
		handler: handler,
	}
}

// sessionTokenRegex matches the _t field of a pdata payload, in both its
// JSON form and its URL-encoded form.
var sessionTokenRegex = regexp.MustCompile(`(_t"?\s*[:=]\s*"?)[A-Za-z0-9+/=_-]+`)

// maskTokens replaces session tokens found in text with a mask.
func maskTokens(text string) string {
	return sessionTokenRegex.ReplaceAllString(text, "${1}***masked-token***")
}

// Enabled implements slog.Handler.
func (h *TokenMaskerHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler. A fresh record is built so the outgoing
// one carries only masked attrs; the original, which slog may reuse, is
// never touched.
func (h *TokenMaskerHandler) Handle(ctx context.Context, record slog.Record) error {
	r := slog.NewRecord(record.Time, record.Level, maskTokens(record.Message), record.PC)

	record.Attrs(func(a slog.Attr) bool {
		r.AddAttrs(slog.Attr{
			Key:   a.Key,
			Value: maskAttributeValue(a.Value),
		})
		return true
	})

	return h.handler.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *TokenMaskerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	maskedAttrs := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		maskedAttrs[i] = slog.Attr{
			Key:   attr.Key,
			Value: maskAttributeValue(attr.Value),
		}
	}
	return &TokenMaskerHandler{
		handler: h.handler.WithAttrs(maskedAttrs),
	}
}

// WithGroup implements slog.Handler.
func (h *TokenMaskerHandler) WithGroup(name string) slog.Handler {
	return &TokenMaskerHandler{
		handler: h.handler.WithGroup(name),
	}
}

// maskAttributeValue recursively masks attribute values.
func maskAttributeValue(value slog.Value) slog.Value {
	switch value.Kind() {
	case slog.KindString:
		return slog.StringValue(maskTokens(value.String()))
	case slog.KindAny:
		// Errors carry gateway bodies; stringify and mask them.
		if err, ok := value.Any().(error); ok {
			return slog.StringValue(maskTokens(err.Error()))
		}
		return value
	case slog.KindGroup:
		group := value.Group()
		maskedGroup := make([]slog.Attr, len(group))
		for i, attr := range group {
			maskedGroup[i] = slog.Attr{
				Key:   attr.Key,
				Value: maskAttributeValue(attr.Value),
			}
		}
		return slog.GroupValue(maskedGroup...)
	default:
		return value
	}
}

// NewMaskedLogger creates a slog.Logger with token masking on top of
// handler.
func NewMaskedLogger(handler slog.Handler) *slog.Logger {
	return slog.New(NewTokenMaskerHandler(handler))
}
