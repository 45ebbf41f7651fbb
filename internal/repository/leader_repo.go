package repository

import (
	"context"
	"database/sql"
	"fmt"

	"assessmentlinks/internal/database"
	"assessmentlinks/internal/models"
)

const leaderColumns = `token, leader_name, leader_email, send_email, company, round_code, created_at, active`

// LeaderRepository stores permanent leader access tokens
type LeaderRepository struct {
	db *database.DB
}

// NewLeaderRepository creates a new leader token repository
func NewLeaderRepository(db *database.DB) *LeaderRepository {
	return &LeaderRepository{db: db}
}

func scanLeaderToken(row rowScanner) (*models.LeaderAccessToken, error) {
	var t models.LeaderAccessToken
	err := row.Scan(&t.Token, &t.LeaderName, &t.LeaderEmail, &t.SendEmail, &t.Company, &t.RoundCode, &t.CreatedAt, &t.Active)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByToken retrieves a leader token, returning nil when it does not exist
func (r *LeaderRepository) GetByToken(ctx context.Context, token string) (*models.LeaderAccessToken, error) {
	query := `SELECT ` + leaderColumns + ` FROM leader_tokens WHERE token = ?`

	t, err := scanLeaderToken(r.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leader token: %w", err)
	}
	return t, nil
}

// List returns every leader token ordered by creation
func (r *LeaderRepository) List(ctx context.Context) ([]models.LeaderAccessToken, error) {
	query := `SELECT ` + leaderColumns + ` FROM leader_tokens ORDER BY created_at, leader_name, token`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query leader tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.LeaderAccessToken
	for rows.Next() {
		t, err := scanLeaderToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leader token: %w", err)
		}
		tokens = append(tokens, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leader tokens: %w", err)
	}

	return tokens, nil
}

// InsertAll adds leader tokens in one transaction, skipping those whose
// leader email already exists. It returns the tokens actually inserted.
// A token id collision returns ErrDuplicate and inserts nothing.
func (r *LeaderRepository) InsertAll(ctx context.Context, tokens []models.LeaderAccessToken) ([]models.LeaderAccessToken, error) {
	var inserted []models.LeaderAccessToken

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		inserted = inserted[:0]
		for _, t := range tokens {
			var exists int
			err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM leader_tokens WHERE email_key = ?", t.EmailKey()).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to check leader email: %w", err)
			}
			if exists > 0 {
				continue
			}
			if err := insertLeaderToken(ctx, tx, t); err != nil {
				return err
			}
			inserted = append(inserted, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func insertLeaderToken(ctx context.Context, q database.DBTX, t models.LeaderAccessToken) error {
	query := `INSERT INTO leader_tokens (token, leader_name, leader_email, email_key, send_email, company, round_code, created_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := q.ExecContext(ctx, query,
		t.Token, t.LeaderName, t.LeaderEmail, t.EmailKey(), t.SendEmail, t.Company, t.RoundCode, t.CreatedAt.UTC(), t.Active,
	)
	if err != nil {
		if q.GetDialect().IsUniqueViolation(err) {
			return fmt.Errorf("leader %s: %w", t.LeaderEmail, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert leader token: %w", err)
	}
	return nil
}

// DeleteAll removes every leader token and returns how many were removed
func (r *LeaderRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM leader_tokens")
	if err != nil {
		return 0, fmt.Errorf("failed to delete leader tokens: %w", err)
	}
	return result.RowsAffected()
}
