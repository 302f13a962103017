package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/crashwatch/internal/core/config"
	"github.com/vietddude/crashwatch/internal/infra/storage/postgres"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the most recent verification sessions",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "number of sessions to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		slog.Error("status requires a database.url in the config")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	sessions, err := postgres.NewSessionRepo(db).GetRecent(ctx, statusLimit)
	if err != nil {
		slog.Error("Failed to query sessions", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TARGET\tSTARTED\tSTATUS\tVERDICT\tARTIFACT\tELAPSED")

	for _, s := range sessions {
		verdict, artifact, elapsed := "-", "-", "-"
		if s.Verdict != nil {
			verdict = string(s.Verdict.Kind)
			elapsed = s.Verdict.Elapsed.Round(time.Second).String()
			if s.Verdict.ArtifactPath != "" {
				artifact = s.Verdict.ArtifactPath
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Target,
			s.StartedAt.Format(time.RFC3339),
			s.Status,
			verdict,
			artifact,
			elapsed,
		)
	}
	_ = w.Flush()
}
