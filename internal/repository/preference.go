package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
)

// PreferenceRepository gerencia preferências de visitantes no banco
type PreferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository cria um novo repositório de preferências
func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get obtém uma preferência não expirada
func (r *PreferenceRepository) Get(ctx context.Context, visitorID, key string) (string, bool, error) {
	query := `
		SELECT value
		FROM visitor_preferences
		WHERE visitor_id = $1 AND key = $2 AND expires_at > NOW()
	`

	var value string
	err := r.db.QueryRowContext(ctx, query, visitorID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("erro ao buscar preferência: %w", err)
	}

	return value, true, nil
}

// Upsert insere ou atualiza uma preferência
func (r *PreferenceRepository) Upsert(ctx context.Context, visitorID, key, value string, expiresAt time.Time) error {
	query := `
		INSERT INTO visitor_preferences (visitor_id, key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (visitor_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, visitorID, key, value, expiresAt); err != nil {
		logger.Get(ctx).Error().Err(err).Str("key", key).Msg("Erro ao salvar preferência")
		return fmt.Errorf("erro ao salvar preferência: %w", err)
	}

	return nil
}

// DeleteExpired remove preferências expiradas e retorna quantas foram removidas
func (r *PreferenceRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM visitor_preferences WHERE expires_at <= NOW()")
	if err != nil {
		return 0, fmt.Errorf("erro ao remover preferências expiradas: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
