package storage

import (
	"context"
	"errors"

	"github.com/vietddude/crashwatch/internal/core/domain"
)

var (
	// ErrSessionNotFound is returned when a session doesn't exist
	ErrSessionNotFound = errors.New("session not found")
)

// SessionRepository handles recovery session persistence
type SessionRepository interface {
	// Save inserts or updates a session
	Save(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session by ID
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// GetRecent retrieves the most recently started sessions
	GetRecent(ctx context.Context, limit int) ([]*domain.Session, error)

	// GetLatestByTarget retrieves the most recent session for a target
	GetLatestByTarget(ctx context.Context, target string) (*domain.Session, error)
}
