package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"assessmentlinks/internal/database"
	"assessmentlinks/internal/models"
)

// SessionRepository persists leader portal sessions in the database
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new leader session
func (r *SessionRepository) Create(ctx context.Context, s *models.LeaderSession) error {
	query := `
		INSERT INTO leader_sessions (id, token, leader_name, leader_email, company, round_code, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Token, s.LeaderName, s.LeaderEmail, s.Company, s.RoundCode, s.CreatedAt.UTC(), s.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create leader session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID, returning nil when it does not exist
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.LeaderSession, error) {
	query := `
		SELECT id, token, leader_name, leader_email, company, round_code, created_at, expires_at
		FROM leader_sessions
		WHERE id = ?
	`
	s := &models.LeaderSession{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.Token,
		&s.LeaderName,
		&s.LeaderEmail,
		&s.Company,
		&s.RoundCode,
		&s.CreatedAt,
		&s.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leader session: %w", err)
	}
	return s, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM leader_sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete leader session: %w", err)
	}
	return nil
}

// DeleteExpired removes all sessions that expired before now
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM leader_sessions WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired leader sessions: %w", err)
	}
	return result.RowsAffected()
}
