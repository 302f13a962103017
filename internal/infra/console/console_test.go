package console

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHTTPCollector_Capture(t *testing.T) {
	transcript := "[ 0.000000] Linux version 6.1.0\n[ 12.4] sysrq: Trigger a crash\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(transcript))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewHTTPCollector("node-a", srv.URL, dir)

	if err := c.Capture(context.Background(), "after_trigger_crash"); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 transcript, got %d", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "node-a_after_trigger_crash_") {
		t.Errorf("unexpected transcript name %s", entries[0].Name())
	}

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != transcript {
		t.Errorf("transcript content mismatch: %q", string(data))
	}
}

func TestHTTPCollector_Capture_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPCollector("node-a", srv.URL, t.TempDir())
	if err := c.Capture(context.Background(), "reconnect_timeout"); err == nil {
		t.Fatal("expected error for non-200 console response")
	}
}

func TestTryCapture_SwallowsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPCollector("node-a", srv.URL, t.TempDir())
	// Must not panic or propagate.
	TryCapture(context.Background(), c, slog.Default(), "stalled")
	TryCapture(context.Background(), nil, slog.Default(), "stalled")
}
