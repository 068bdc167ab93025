package session

import (
	"context"
	"time"
)

// sessionRepository is the slice of the storage layer the sqlite session
// backend needs.
type sessionRepository interface {
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	GetSession(ctx context.Context, token string) (int64, bool, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// SQLiteStore persists sessions through the repository, so logins survive
// process restarts.
type SQLiteStore struct {
	repo sessionRepository
	ttl  time.Duration
}

func NewSQLiteStore(repo sessionRepository, ttl time.Duration) *SQLiteStore {
	return &SQLiteStore{repo: repo, ttl: ttl}
}

func (s *SQLiteStore) Create(ctx context.Context, userID int64) (string, error) {
	token, err := NewToken()
	if err != nil {
		return "", err
	}
	if err := s.repo.CreateSession(ctx, token, userID, time.Now().Add(s.ttl)); err != nil {
		return "", err
	}
	return token, nil
}

func (s *SQLiteStore) Resolve(ctx context.Context, token string) (int64, bool, error) {
	return s.repo.GetSession(ctx, token)
}

func (s *SQLiteStore) Destroy(ctx context.Context, token string) error {
	return s.repo.DeleteSession(ctx, token)
}

// CleanExpired satisfies cache.Cleaner. Storage faults are swallowed here;
// expired rows are also filtered on read, so a missed sweep is harmless.
func (s *SQLiteStore) CleanExpired() int {
	n, err := s.repo.DeleteExpiredSessions(context.Background())
	if err != nil {
		return 0
	}
	return int(n)
}
