package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/crashwatch/internal/control"
	"github.com/vietddude/crashwatch/internal/core/domain"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [target]",
	Short: "Run one crash/verify cycle against a target and exit",
	Args:  cobra.ExactArgs(1),
	Run:   runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

// Exit codes: 0 dump verified, 1 verification failed, 2 setup error,
// 3 target skipped (kdump not ready).
func runVerify(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(2)
	}

	app, err := control.NewCrashwatch(*cfg)
	if err != nil {
		slog.Error("Failed to initialize crashwatch", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := app.VerifyTarget(ctx, args[0])
	if err != nil {
		slog.Error("Verification aborted", "target", args[0], "error", err)
		os.Exit(2)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = app.Stop(shutdownCtx)

	switch {
	case sess.Status == domain.SessionStatusSkipped:
		slog.Warn("Target skipped, kdump not ready", "target", sess.Target)
		os.Exit(3)
	case sess.Verdict != nil && sess.Verdict.OK():
		slog.Info("Dump verified",
			"target", sess.Target,
			"artifact", sess.Verdict.ArtifactPath,
			"elapsed", sess.Verdict.Elapsed,
		)
	default:
		slog.Error("Verification failed",
			"target", sess.Target,
			"verdict", sess.Verdict.Kind,
			"elapsed", sess.Verdict.Elapsed,
		)
		os.Exit(1)
	}
}
