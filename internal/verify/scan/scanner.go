package scan

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/infra/remote"
)

// Scanner classifies the state of the dump directory on a target. Each Scan
// issues at most two remote lookups: first for a final artifact, then for an
// in-progress marker. The final-artifact check strictly precedes the marker
// check so a completed dump is never misreported as in-progress when an
// incomplete sibling is still lying around.
type Scanner struct {
	dir               string
	finalNames        []string
	inProgressPattern string
	minBytes          int64
	timeout           time.Duration
}

// Config holds the artifact shape the scanner looks for.
type Config struct {
	ArtifactDir       string
	FinalNames        []string
	InProgressPattern string
	MinArtifactBytes  int64
	Timeout           time.Duration
}

// NewScanner creates a scanner for the given artifact shape.
func NewScanner(cfg Config) *Scanner {
	return &Scanner{
		dir:               cfg.ArtifactDir,
		finalNames:        cfg.FinalNames,
		inProgressPattern: cfg.InProgressPattern,
		minBytes:          cfg.MinArtifactBytes,
		timeout:           cfg.Timeout,
	}
}

// Scan queries the target and returns one observation. A connectivity
// failure is returned as an error so the caller can distinguish "the target
// dropped again" from "nothing was produced"; a command that merely exits
// non-zero counts as absence.
func (s *Scanner) Scan(ctx context.Context, exec remote.Executor) (domain.Observation, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.run(ctx, exec, s.finalArtifactCmd())
	if err != nil {
		return domain.None(), err
	}
	if path := firstLine(out); path != "" {
		return domain.Complete(path), nil
	}

	out, err = s.run(ctx, exec, s.inProgressCmd())
	if err != nil {
		return domain.None(), err
	}
	files := splitLines(out)
	if len(files) == 0 {
		return domain.None(), nil
	}

	size, err := s.totalSize(ctx, exec, files)
	if err != nil {
		return domain.None(), err
	}
	return domain.InProgress(size), nil
}

// run executes a command, folding non-zero exits into empty output while
// propagating connectivity failures.
func (s *Scanner) run(ctx context.Context, exec remote.Executor, cmd string) (string, error) {
	res, err := exec.Run(ctx, cmd)
	if err != nil {
		if remote.IsCommand(err) {
			return "", nil
		}
		return "", fmt.Errorf("scan command failed: %w", err)
	}
	return res.Stdout, nil
}

// finalArtifactCmd matches files of non-trivial size with the canonical
// dump names under the artifact dir, e.g.
// find /var/crash -type f -size +10485760c ( -name vmcore -o -name 'dump.*' ) -print
func (s *Scanner) finalArtifactCmd() string {
	clauses := make([]string, 0, len(s.finalNames))
	for _, name := range s.finalNames {
		clauses = append(clauses, fmt.Sprintf("-name '%s'", name))
	}
	return fmt.Sprintf(
		"find %s -type f -size +%dc \\( %s \\) -print 2>/dev/null",
		s.dir, s.minBytes, strings.Join(clauses, " -o "),
	)
}

func (s *Scanner) inProgressCmd() string {
	return fmt.Sprintf("find %s -type f -name '%s' -print 2>/dev/null", s.dir, s.inProgressPattern)
}

// totalSize stats each marker file and sums the byte counts. A marker that
// vanished between the two commands yields size zero for its line, which the
// growth tracker tolerates.
func (s *Scanner) totalSize(ctx context.Context, exec remote.Executor, files []string) (int64, error) {
	cmd := fmt.Sprintf("stat -c %%s %s 2>/dev/null", strings.Join(files, " "))
	res, err := exec.Run(ctx, cmd)
	if err != nil {
		if remote.IsCommand(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("stat marker failed: %w", err)
	}

	var total int64
	for _, line := range splitLines(res.Stdout) {
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			continue
		}
		total += n
	}
	return total, nil
}

func firstLine(s string) string {
	lines := splitLines(s)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
