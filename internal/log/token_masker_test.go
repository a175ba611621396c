package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "json pdata",
			in:   `pdata {"_t":"abcDEF123+/=","aid":[1]}`,
			want: `pdata {"_t":"***masked-token***","aid":[1]}`,
		},
		{
			name: "url encoded",
			in:   `query _t=abcDEF123 sent`,
			want: `query _t=***masked-token*** sent`,
		},
		{
			name: "no token",
			in:   "plain message",
			want: "plain message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskTokens(tt.in))
		})
	}
}

func TestTokenMaskerHandlerMasksAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewMaskedLogger(slog.NewTextHandler(&buf, nil))

	logger.Info("gateway request failed",
		"body", `{"_t":"topsecret"}`,
		"error", errors.New(`status=400 body="_t=topsecret"`),
	)

	out := buf.String()
	assert.NotContains(t, out, "topsecret")
	assert.Contains(t, out, "***masked-token***")
	assert.Contains(t, out, "gateway request failed")
}

func TestTokenMaskerHandlerEmitsEachAttrOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := NewMaskedLogger(slog.NewTextHandler(&buf, nil))

	logger.Info("request sent", "body", `{"_t":"topsecret"}`)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "body="))
	assert.NotContains(t, out, "topsecret")
}

func TestTokenMaskerHandlerMasksMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := NewMaskedLogger(slog.NewTextHandler(&buf, nil))

	logger.Warn(`response echoed pdata: {"_t": "secret123"}`)

	assert.NotContains(t, buf.String(), "secret123")
}

func TestTokenMaskerHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewMaskedLogger(slog.NewTextHandler(&buf, nil))

	logger.With("payload", `_t=hidden99`).Info("retrying")

	assert.NotContains(t, buf.String(), "hidden99")
	assert.Contains(t, buf.String(), "***masked-token***")
}
