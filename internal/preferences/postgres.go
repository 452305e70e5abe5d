package preferences

import (
	"context"
	"time"
)

// Repository é o acesso ao banco usado pelo PostgresStore
type Repository interface {
	Get(ctx context.Context, visitorID, key string) (string, bool, error)
	Upsert(ctx context.Context, visitorID, key, value string, expiresAt time.Time) error
}

// PostgresStore guarda preferências de um visitante no PostgreSQL
type PostgresStore struct {
	repo      Repository
	visitorID string
	now       func() time.Time
}

// NewPostgresStore cria um store para o visitante
func NewPostgresStore(repo Repository, visitorID string) *PostgresStore {
	return &PostgresStore{repo: repo, visitorID: visitorID, now: time.Now}
}

// Get implementa Store
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.repo.Get(ctx, s.visitorID, key)
}

// Set implementa Store
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	return s.repo.Upsert(ctx, s.visitorID, key, value, s.now().Add(MaxAge))
}
