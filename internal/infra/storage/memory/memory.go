package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vietddude/crashwatch/internal/core/domain"
	"github.com/vietddude/crashwatch/internal/infra/storage"
)

// SessionRepo is the in-memory fallback used when no database is configured.
type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewSessionRepo creates an empty in-memory session repository.
func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *SessionRepo) Save(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *session
	if session.Verdict != nil {
		v := *session.Verdict
		cp.Verdict = &v
	}
	r.sessions[session.ID] = &cp
	return nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, storage.ErrSessionNotFound
	}
	return s, nil
}

func (r *SessionRepo) GetRecent(ctx context.Context, limit int) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SessionRepo) GetLatestByTarget(ctx context.Context, target string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Session
	for _, s := range r.sessions {
		if s.Target != target {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, storage.ErrSessionNotFound
	}
	return latest, nil
}
