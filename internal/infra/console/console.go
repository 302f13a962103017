package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Collector captures out-of-band evidence from a target when normal
// connectivity cannot explain a failure. Capture is best-effort by contract:
// callers log its errors and move on, they never let it change a verdict.
type Collector interface {
	Capture(ctx context.Context, tag string) error
}

// HTTPCollector saves a serial console transcript fetched over HTTP.
type HTTPCollector struct {
	target     string
	consoleURL string
	saveDir    string
	client     *http.Client
}

// NewHTTPCollector creates a collector for one target's console endpoint.
// Transcripts are written under saveDir as <target>_<tag>_<unix>.log.
func NewHTTPCollector(target, consoleURL, saveDir string) *HTTPCollector {
	return &HTTPCollector{
		target:     target,
		consoleURL: consoleURL,
		saveDir:    saveDir,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Capture downloads the current console transcript and saves it with the
// given reason tag.
func (c *HTTPCollector) Capture(ctx context.Context, tag string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.consoleURL, nil)
	if err != nil {
		return fmt.Errorf("create console request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch console transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("console endpoint returned %d", resp.StatusCode)
	}

	if err := os.MkdirAll(c.saveDir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%d.log", c.target, tag, time.Now().Unix())
	path := filepath.Join(c.saveDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// NopCollector is used for targets without a console endpoint.
type NopCollector struct{}

func (NopCollector) Capture(ctx context.Context, tag string) error {
	return nil
}

// TryCapture runs a capture and logs instead of returning its error, so
// diagnostic failures cannot mask the primary outcome.
func TryCapture(ctx context.Context, c Collector, log *slog.Logger, tag string) {
	if c == nil {
		return
	}
	if err := c.Capture(ctx, tag); err != nil {
		log.Warn("Diagnostics capture failed", "tag", tag, "error", err)
	}
}
