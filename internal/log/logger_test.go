package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_ContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentHTTP, JSON: true, Writer: &buf})

	ctx := WithAttrs(context.Background(), FieldRequestID, "req_1")
	ctx = WithAttrs(ctx, FieldUserID, "u1")
	logger.InfoContext(ctx, "served", FieldStatusCode, 200)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	for k, want := range map[string]any{
		"msg":           "served",
		FieldComponent:  ComponentHTTP,
		FieldRequestID:  "req_1",
		FieldUserID:     "u1",
		FieldStatusCode: float64(200),
	} {
		if rec[k] != want {
			t.Errorf("%s = %v, want %v", k, rec[k], want)
		}
	}
}

func TestWithAttrs_DoesNotLeakIntoParent(t *testing.T) {
	parent := WithAttrs(context.Background(), FieldRequestID, "req_1")
	child := WithAttrs(parent, FieldUserID, "u1")

	if got := len(attrsFrom(parent)); got != 1 {
		t.Errorf("parent attrs = %d, want 1", got)
	}
	if got := len(attrsFrom(child)); got != 2 {
		t.Errorf("child attrs = %d, want 2", got)
	}
	if WithAttrs(parent) != parent {
		t.Error("WithAttrs() without args should return ctx unchanged")
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Writer: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("output = %q", out)
	}
}
