package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/p-n-ai/campus/internal/platform/apperr"
	"github.com/p-n-ai/campus/internal/platform/config"
)

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   string
	}{
		{"json", "json", `"msg":"hello"`},
		{"text", "text", "msg=hello"},
		{"unknown falls back to json", "xml", `"msg":"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(config.LogConfig{Level: "info", Format: tt.format}, &buf)
			logger.Info("hello")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want substring %q", buf.String(), tt.want)
			}
		})
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LogConfig{Level: "warn"}, &buf)
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn should be logged at warn level")
	}
}

func TestReporter_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(slog.New(slog.NewJSONHandler(&buf, nil)), 2)
	ctx := context.Background()

	r.Report(ctx, "ignored", nil)
	if len(r.Entries()) != 0 {
		t.Fatal("nil errors should not be retained")
	}

	r.Report(ctx, "fetch", errors.New("first"))
	r.Report(ctx, "enroll", apperr.New(apperr.KindMutation, "enroll", errors.New("second")))
	r.Report(ctx, "publish", errors.New("third"))

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2 (capacity)", len(entries))
	}
	if entries[0].Scope != "enroll" || entries[0].Kind != apperr.KindMutation {
		t.Errorf("entries[0] = %+v, want enroll/mutation", entries[0])
	}
	if !strings.Contains(buf.String(), `"scope":"publish"`) {
		t.Errorf("log output missing scope: %s", buf.String())
	}

	flushed := r.Flush()
	if len(flushed) != 2 {
		t.Errorf("Flush() returned %d entries, want 2", len(flushed))
	}
	if len(r.Entries()) != 0 {
		t.Error("Flush() should clear entries")
	}

	r.Report(ctx, "fetch", errors.New("again"))
	r.Clear()
	if len(r.Flush()) != 0 {
		t.Error("Clear() should drop entries")
	}
}

func TestReporter_Isolated(t *testing.T) {
	a := NewReporter(nil, 0)
	b := NewReporter(nil, 0)
	a.Report(context.Background(), "x", errors.New("only in a"))
	if len(b.Entries()) != 0 {
		t.Error("reporters must not share state")
	}
}
