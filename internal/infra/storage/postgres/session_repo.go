package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/infra/storage"
)

// SessionRepo implements storage.SessionRepository using PostgreSQL.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new PostgreSQL session repository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

type sessionRow struct {
	ID            string         `db:"id"`
	Target        string         `db:"target"`
	StartedAt     time.Time      `db:"started_at"`
	Deadline      time.Time      `db:"deadline"`
	PollMs        int64          `db:"poll_interval_ms"`
	MaxStallPolls int            `db:"max_stall_polls"`
	Status        string         `db:"status"`
	Verdict       sql.NullString `db:"verdict"`
	ArtifactPath  sql.NullString `db:"artifact_path"`
	LastSize      sql.NullInt64  `db:"last_size"`
	ElapsedMs     sql.NullInt64  `db:"elapsed_ms"`
	FinishedAt    sql.NullTime   `db:"finished_at"`
}

func (r sessionRow) toDomain() *domain.Session {
	s := &domain.Session{
		ID:            r.ID,
		Target:        r.Target,
		StartedAt:     r.StartedAt,
		Deadline:      r.Deadline,
		PollInterval:  time.Duration(r.PollMs) * time.Millisecond,
		MaxStallPolls: r.MaxStallPolls,
		Status:        domain.SessionStatus(r.Status),
	}
	if r.FinishedAt.Valid {
		s.FinishedAt = r.FinishedAt.Time
	}
	if r.Verdict.Valid {
		s.Verdict = &domain.Verdict{
			Kind:         domain.VerdictKind(r.Verdict.String),
			ArtifactPath: r.ArtifactPath.String,
			LastSize:     r.LastSize.Int64,
			Elapsed:      time.Duration(r.ElapsedMs.Int64) * time.Millisecond,
		}
	}
	return s
}

// Save inserts or updates a session.
func (r *SessionRepo) Save(ctx context.Context, s *domain.Session) error {
	query := `
		INSERT INTO sessions (
			id, target, started_at, deadline, poll_interval_ms,
			max_stall_polls, status, verdict, artifact_path, last_size,
			elapsed_ms, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			verdict = EXCLUDED.verdict,
			artifact_path = EXCLUDED.artifact_path,
			last_size = EXCLUDED.last_size,
			elapsed_ms = EXCLUDED.elapsed_ms,
			finished_at = EXCLUDED.finished_at
	`

	var verdict, artifactPath sql.NullString
	var lastSize, elapsedMs sql.NullInt64
	var finishedAt sql.NullTime
	if s.Verdict != nil {
		verdict = sql.NullString{String: string(s.Verdict.Kind), Valid: true}
		artifactPath = sql.NullString{String: s.Verdict.ArtifactPath, Valid: s.Verdict.ArtifactPath != ""}
		lastSize = sql.NullInt64{Int64: s.Verdict.LastSize, Valid: true}
		elapsedMs = sql.NullInt64{Int64: s.Verdict.Elapsed.Milliseconds(), Valid: true}
	}
	if !s.FinishedAt.IsZero() {
		finishedAt = sql.NullTime{Time: s.FinishedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Target,
		s.StartedAt,
		s.Deadline,
		s.PollInterval.Milliseconds(),
		s.MaxStallPolls,
		string(s.Status),
		verdict,
		artifactPath,
		lastSize,
		elapsedMs,
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by ID.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return row.toDomain(), nil
}

// GetRecent retrieves the most recently started sessions.
func (r *SessionRepo) GetRecent(ctx context.Context, limit int) ([]*domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []sessionRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM sessions ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]*domain.Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// GetLatestByTarget retrieves the most recent session for a target.
func (r *SessionRepo) GetLatestByTarget(ctx context.Context, target string) (*domain.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM sessions WHERE target = $1 ORDER BY started_at DESC LIMIT 1`, target)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest session: %w", err)
	}
	return row.toDomain(), nil
}
