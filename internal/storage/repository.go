package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iitslamaa/travel-scorer/internal/scoring"
	"github.com/iitslamaa/travel-scorer/internal/visa"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides database access for score preferences and visa
// snapshots.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

// GetScoreWeights loads the stored weights for userID.
// Returns nil, nil when the user has none.
func (r *Repository) GetScoreWeights(ctx context.Context, userID uuid.UUID) (*scoring.Weights, error) {
	const q = `
		SELECT weights
		FROM user_score_preferences
		WHERE user_id = $1
	`

	var raw []byte
	if err := r.q.QueryRow(ctx, q, userID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying score weights for user %s: %w", userID, err)
	}

	var w scoring.Weights
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("unmarshaling score weights for user %s: %w", userID, err)
	}

	return &w, nil
}

// UpsertScoreWeights inserts or replaces the weights for userID.
func (r *Repository) UpsertScoreWeights(ctx context.Context, userID uuid.UUID, w scoring.Weights) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshaling score weights for user %s: %w", userID, err)
	}

	const q = `
		INSERT INTO user_score_preferences (user_id, weights, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET weights    = EXCLUDED.weights,
		    updated_at = EXCLUDED.updated_at
	`

	if _, err := r.q.Exec(ctx, q, userID, raw); err != nil {
		return fmt.Errorf("upserting score weights for user %s: %w", userID, err)
	}

	return nil
}

// LatestVisaSnapshot returns the rows of the highest visa_requirements
// version, ordered by ISO2. An empty table yields an empty slice.
func (r *Repository) LatestVisaSnapshot(ctx context.Context) ([]visa.Row, error) {
	const q = `
		SELECT iso2, requirement,
		       COALESCE(allowed_stay, ''), COALESCE(notes, ''), COALESCE(source_url, '')
		FROM visa_requirements
		WHERE version = (SELECT MAX(version) FROM visa_requirements)
		ORDER BY iso2
	`

	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying visa snapshot: %w", err)
	}
	defer rows.Close()

	var out []visa.Row
	for rows.Next() {
		var row visa.Row
		if err := rows.Scan(&row.ISO2, &row.Requirement, &row.AllowedStay, &row.Notes, &row.SourceURL); err != nil {
			return nil, fmt.Errorf("scanning visa row: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visa rows: %w", err)
	}

	return out, nil
}
