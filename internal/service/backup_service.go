package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"assessmentlinks/internal/models"
)

// Layouts accepted for expira_em. Files written by the old generator carry
// naive local timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// flexTime decodes any of timestampLayouts
type flexTime struct {
	time.Time
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			f.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// registrationRecord is a registration token as found in a tokens.json file
type registrationRecord struct {
	models.RegistrationToken
	ExpiresAt flexTime `json:"expira_em"`
}

// BackupService exports and imports the token stores as JSON arrays, the
// format of legacy tokens.json files
type BackupService struct {
	registrations RegistrationStore
	leaders       LeaderStore
	logger        *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(registrations RegistrationStore, leaders LeaderStore, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{
		registrations: registrations,
		leaders:       leaders,
		logger:        logger,
	}
}

// ExportRegistrations writes every registration token to w
func (s *BackupService) ExportRegistrations(ctx context.Context, w io.Writer) (int, error) {
	tokens, err := s.registrations.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if tokens == nil {
		tokens = []models.RegistrationToken{}
	}
	if err := encodeJSON(w, tokens); err != nil {
		return 0, fmt.Errorf("failed to encode registration tokens: %w", err)
	}
	return len(tokens), nil
}

// ExportLeaders writes every leader token to w
func (s *BackupService) ExportLeaders(ctx context.Context, w io.Writer) (int, error) {
	tokens, err := s.leaders.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if tokens == nil {
		tokens = []models.LeaderAccessToken{}
	}
	if err := encodeJSON(w, tokens); err != nil {
		return 0, fmt.Errorf("failed to encode leader tokens: %w", err)
	}
	return len(tokens), nil
}

// ImportRegistrations replaces the registration store with the tokens read
// from r. Records without a token id are skipped.
func (s *BackupService) ImportRegistrations(ctx context.Context, r io.Reader) (IssueResult, error) {
	var records []registrationRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return IssueResult{}, fmt.Errorf("%w: failed to decode registration tokens: %v", ErrMalformedInput, err)
	}

	now := time.Now().UTC()
	var result IssueResult
	tokens := make([]models.RegistrationToken, 0, len(records))
	seen := make(map[string]bool, len(records))

	for i, rec := range records {
		t := rec.RegistrationToken
		t.ExpiresAt = rec.ExpiresAt.Time.UTC()

		switch {
		case strings.TrimSpace(t.Token) == "":
			result.Skipped = append(result.Skipped, SkippedRow{Line: i + 1, Reason: "token: is required"})
			continue
		case seen[t.Token]:
			result.Duplicates++
			continue
		case rec.ExpiresAt.IsZero():
			result.Skipped = append(result.Skipped, SkippedRow{Line: i + 1, Reason: "expira_em: is required"})
			continue
		}
		seen[t.Token] = true

		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.Product == "" {
			t.Product = DeriveProduct(t.Type)
		}
		tokens = append(tokens, t)
		result.Tokens = append(result.Tokens, t.Token)
	}

	if err := s.registrations.ReplaceAll(ctx, tokens); err != nil {
		return IssueResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	result.Created = len(tokens)
	s.logger.Info("registration tokens imported",
		zap.Int("imported", result.Created),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("duplicates", result.Duplicates))
	return result, nil
}

// ImportLeaders appends the leader tokens read from r, skipping leaders that
// already have a token
func (s *BackupService) ImportLeaders(ctx context.Context, r io.Reader) (IssueResult, error) {
	var records []models.LeaderAccessToken
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return IssueResult{}, fmt.Errorf("%w: failed to decode leader tokens: %v", ErrMalformedInput, err)
	}

	now := time.Now().UTC()
	var result IssueResult
	candidates := make([]models.LeaderAccessToken, 0, len(records))
	seen := make(map[string]bool, len(records))

	for i, t := range records {
		if strings.TrimSpace(t.Token) == "" || strings.TrimSpace(t.LeaderEmail) == "" {
			result.Skipped = append(result.Skipped, SkippedRow{Line: i + 1, Reason: "token and emailLider are required"})
			continue
		}
		if seen[t.EmailKey()] {
			result.Duplicates++
			continue
		}
		seen[t.EmailKey()] = true

		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if strings.TrimSpace(t.SendEmail) == "" {
			t.SendEmail = t.LeaderEmail
		}
		candidates = append(candidates, t)
	}

	inserted, err := s.leaders.InsertAll(ctx, candidates)
	if err != nil {
		return IssueResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	result.Created = len(inserted)
	result.Duplicates += len(candidates) - len(inserted)
	for _, t := range inserted {
		result.Tokens = append(result.Tokens, t.Token)
	}

	s.logger.Info("leader tokens imported",
		zap.Int("imported", result.Created),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("duplicates", result.Duplicates))
	return result, nil
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
