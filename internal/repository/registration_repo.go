package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"assessmentlinks/internal/database"
	"assessmentlinks/internal/models"
)

const registrationColumns = `token, name, email, company, round_code, leader_name, leader_email,
	product, type, expires_at, used, password_hash, age, role, created_at, used_at`

// RegistrationRepository stores single-use registration tokens
type RegistrationRepository struct {
	db *database.DB
}

// NewRegistrationRepository creates a new registration token repository
func NewRegistrationRepository(db *database.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistrationToken(row rowScanner) (*models.RegistrationToken, error) {
	var t models.RegistrationToken
	var usedAt sql.NullTime

	err := row.Scan(
		&t.Token, &t.Name, &t.Email, &t.Company, &t.RoundCode, &t.LeaderName, &t.LeaderEmail,
		&t.Product, &t.Type, &t.ExpiresAt, &t.Used, &t.PasswordHash, &t.Age, &t.Role,
		&t.CreatedAt, &usedAt,
	)
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		ts := usedAt.Time
		t.UsedAt = &ts
	}
	return &t, nil
}

// GetByToken retrieves a registration token, returning nil when it does not exist
func (r *RegistrationRepository) GetByToken(ctx context.Context, token string) (*models.RegistrationToken, error) {
	query := `SELECT ` + registrationColumns + ` FROM registration_tokens WHERE token = ?`

	t, err := scanRegistrationToken(r.db.QueryRowContext(ctx, query, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration token: %w", err)
	}
	return t, nil
}

// List returns every registration token ordered by creation
func (r *RegistrationRepository) List(ctx context.Context) ([]models.RegistrationToken, error) {
	query := `SELECT ` + registrationColumns + ` FROM registration_tokens ORDER BY created_at, name, token`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query registration tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.RegistrationToken
	for rows.Next() {
		t, err := scanRegistrationToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration token: %w", err)
		}
		tokens = append(tokens, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registration tokens: %w", err)
	}

	return tokens, nil
}

// ListUnused returns tokens that have not been consumed yet
func (r *RegistrationRepository) ListUnused(ctx context.Context) ([]models.RegistrationToken, error) {
	query := `SELECT ` + registrationColumns + ` FROM registration_tokens WHERE used = ? ORDER BY created_at, name, token`

	rows, err := r.db.QueryContext(ctx, query, false)
	if err != nil {
		return nil, fmt.Errorf("failed to query unused registration tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.RegistrationToken
	for rows.Next() {
		t, err := scanRegistrationToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration token: %w", err)
		}
		tokens = append(tokens, *t)
	}
	return tokens, rows.Err()
}

// ReplaceAll deletes every registration token and inserts tokens in a single transaction
func (r *RegistrationRepository) ReplaceAll(ctx context.Context, tokens []models.RegistrationToken) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM registration_tokens"); err != nil {
			return fmt.Errorf("failed to clear registration tokens: %w", err)
		}
		return insertRegistrationTokens(ctx, tx, tokens)
	})
}

// InsertAll adds tokens to the store in a single transaction
func (r *RegistrationRepository) InsertAll(ctx context.Context, tokens []models.RegistrationToken) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		return insertRegistrationTokens(ctx, tx, tokens)
	})
}

func insertRegistrationTokens(ctx context.Context, q database.DBTX, tokens []models.RegistrationToken) error {
	query := `INSERT INTO registration_tokens (` + registrationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, t := range tokens {
		var usedAt any
		if t.UsedAt != nil {
			usedAt = t.UsedAt.UTC()
		}
		_, err := q.ExecContext(ctx, query,
			t.Token, t.Name, t.Email, t.Company, t.RoundCode, t.LeaderName, t.LeaderEmail,
			t.Product, t.Type, t.ExpiresAt.UTC(), t.Used, t.PasswordHash, t.Age, t.Role,
			t.CreatedAt.UTC(), usedAt,
		)
		if err != nil {
			if q.GetDialect().IsUniqueViolation(err) {
				return fmt.Errorf("token %s: %w", t.Token, ErrDuplicate)
			}
			return fmt.Errorf("failed to insert registration token: %w", err)
		}
	}
	return nil
}

// Consume records the completion data and marks the token used, but only if
// the token is still unused and not expired at now. It reports whether a row changed.
func (r *RegistrationRepository) Consume(ctx context.Context, token, passwordHash, age, role string, now time.Time) (bool, error) {
	query := `
		UPDATE registration_tokens
		SET used = ?, password_hash = ?, age = ?, role = ?, used_at = ?
		WHERE token = ? AND used = ? AND expires_at >= ?
	`
	now = now.UTC()
	result, err := r.db.ExecContext(ctx, query, true, passwordHash, age, role, now, token, false, now)
	if err != nil {
		return false, fmt.Errorf("failed to consume registration token: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

// DeleteAll removes every registration token and returns how many were removed
func (r *RegistrationRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM registration_tokens")
	if err != nil {
		return 0, fmt.Errorf("failed to delete registration tokens: %w", err)
	}
	return result.RowsAffected()
}
