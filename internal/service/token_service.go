package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"assessmentlinks/internal/metrics"
	"assessmentlinks/internal/models"
	"assessmentlinks/internal/validation"
)

const (
	kindRegistration = "registration"
	kindLeader       = "leader"
)

// RegistrationStore persists registration tokens
type RegistrationStore interface {
	GetByToken(ctx context.Context, token string) (*models.RegistrationToken, error)
	List(ctx context.Context) ([]models.RegistrationToken, error)
	ListUnused(ctx context.Context) ([]models.RegistrationToken, error)
	ReplaceAll(ctx context.Context, tokens []models.RegistrationToken) error
	Consume(ctx context.Context, token, passwordHash, age, role string, now time.Time) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// LeaderStore persists leader access tokens
type LeaderStore interface {
	GetByToken(ctx context.Context, token string) (*models.LeaderAccessToken, error)
	List(ctx context.Context) ([]models.LeaderAccessToken, error)
	InsertAll(ctx context.Context, tokens []models.LeaderAccessToken) ([]models.LeaderAccessToken, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// SkippedRow is an upload row that did not produce a token
type SkippedRow struct {
	Line   int
	Reason string
}

// IssueResult summarizes an issuance batch
type IssueResult struct {
	Created    int
	Skipped    []SkippedRow
	Duplicates int
	Tokens     []string
}

// CompletionInput is the data submitted on the completion form
type CompletionInput struct {
	Token    string
	Password string
	Age      string
	Role     string
}

// Completion is the outcome of a successful consumption. URL is empty when
// the destination could not be resolved.
type Completion struct {
	Token       *models.RegistrationToken
	Destination Destination
	URL         string
}

// TokenService owns the token lifecycle: issuance, validation, completion and clearing
type TokenService struct {
	registrations RegistrationStore
	leaders       LeaderStore
	destinations  Destinations
	ttl           time.Duration
	logger        *zap.Logger
	metrics       *metrics.Metrics

	now      func() time.Time
	newToken func() string
}

// NewTokenService creates a new token service
func NewTokenService(registrations RegistrationStore, leaders LeaderStore, destinations Destinations, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *TokenService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenService{
		registrations: registrations,
		leaders:       leaders,
		destinations:  destinations,
		ttl:           ttl,
		logger:        logger,
		metrics:       m,
		now:           time.Now,
		newToken:      NewTokenID,
	}
}

// NewTokenID returns a random 128-bit identifier as 32 lowercase hex characters
func NewTokenID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}

// IssueRegistrationBatch mints one token per valid row and replaces the whole
// registration store with the new batch. Invalid rows are skipped and reported.
func (s *TokenService) IssueRegistrationBatch(ctx context.Context, rows []models.RegistrationRow) (IssueResult, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)

	var result IssueResult
	tokens := make([]models.RegistrationToken, 0, len(rows))

	for _, row := range rows {
		if err := validation.ValidateRegistrationRow(row); err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: row.Line, Reason: err.Error()})
			s.metrics.IncSkipped(kindRegistration, "malformed")
			s.logger.Warn("skipping registration row",
				zap.Int("line", row.Line),
				zap.Error(fmt.Errorf("%w: %v", ErrMalformedInput, err)))
			continue
		}

		product := strings.TrimSpace(row.Product)
		if product == "" {
			product = DeriveProduct(row.Type)
		}

		t := models.RegistrationToken{
			Token:       s.newToken(),
			Name:        strings.TrimSpace(row.Name),
			Email:       strings.TrimSpace(row.Email),
			Company:     strings.TrimSpace(row.Company),
			RoundCode:   strings.TrimSpace(row.RoundCode),
			LeaderName:  strings.TrimSpace(row.LeaderName),
			LeaderEmail: strings.TrimSpace(row.LeaderEmail),
			Product:     product,
			Type:        strings.TrimSpace(row.Type),
			ExpiresAt:   expiresAt,
			CreatedAt:   now,
		}
		tokens = append(tokens, t)
		result.Tokens = append(result.Tokens, t.Token)
	}

	if err := s.registrations.ReplaceAll(ctx, tokens); err != nil {
		return IssueResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	result.Created = len(tokens)
	s.metrics.IncIssued(kindRegistration, result.Created)
	s.logger.Info("registration tokens issued",
		zap.Int("created", result.Created),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}

// IssueLeaderBatch appends one permanent token per new leader. Leaders whose
// email already has a token, in the store or earlier in the batch, are counted
// as duplicates and left untouched.
func (s *TokenService) IssueLeaderBatch(ctx context.Context, rows []models.LeaderRow) (IssueResult, error) {
	now := s.now().UTC()

	var result IssueResult
	seen := make(map[string]bool)
	candidates := make([]models.LeaderAccessToken, 0, len(rows))

	for _, row := range rows {
		if err := validation.ValidateLeaderRow(row); err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: row.Line, Reason: err.Error()})
			s.metrics.IncSkipped(kindLeader, "malformed")
			s.logger.Warn("skipping leader row",
				zap.Int("line", row.Line),
				zap.Error(fmt.Errorf("%w: %v", ErrMalformedInput, err)))
			continue
		}

		key := models.LeaderEmailKey(row.LeaderEmail)
		if seen[key] {
			result.Duplicates++
			s.metrics.IncSkipped(kindLeader, "duplicate")
			continue
		}
		seen[key] = true

		sendEmail := strings.TrimSpace(row.SendEmail)
		if sendEmail == "" {
			sendEmail = strings.TrimSpace(row.LeaderEmail)
		}

		candidates = append(candidates, models.LeaderAccessToken{
			Token:       s.newToken(),
			LeaderName:  strings.TrimSpace(row.LeaderName),
			LeaderEmail: strings.TrimSpace(row.LeaderEmail),
			SendEmail:   sendEmail,
			Company:     strings.TrimSpace(row.Company),
			RoundCode:   strings.TrimSpace(row.RoundCode),
			CreatedAt:   now,
			Active:      true,
		})
	}

	inserted, err := s.leaders.InsertAll(ctx, candidates)
	if err != nil {
		return IssueResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	existing := len(candidates) - len(inserted)
	result.Duplicates += existing
	for i := 0; i < existing; i++ {
		s.metrics.IncSkipped(kindLeader, "duplicate")
	}

	result.Created = len(inserted)
	for _, t := range inserted {
		result.Tokens = append(result.Tokens, t.Token)
	}

	s.metrics.IncIssued(kindLeader, result.Created)
	s.logger.Info("leader tokens issued",
		zap.Int("created", result.Created),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("skipped", len(result.Skipped)))

	return result, nil
}

// ValidateRegistration returns the token when it exists, is unused and is not
// expired at now. Checks run in that order.
func (s *TokenService) ValidateRegistration(ctx context.Context, tokenID string, now time.Time) (*models.RegistrationToken, error) {
	if strings.TrimSpace(tokenID) == "" {
		return nil, fmt.Errorf("%w: token is required", ErrMalformedInput)
	}

	t, err := s.registrations.GetByToken(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	err = classifyRegistration(t, now)
	s.metrics.IncValidation(kindRegistration, outcome(err))
	if err != nil {
		return nil, err
	}
	return t, nil
}

func classifyRegistration(t *models.RegistrationToken, now time.Time) error {
	switch {
	case t == nil:
		return ErrNotFound
	case t.IsUsed():
		return ErrAlreadyUsed
	case t.IsExpiredAt(now):
		return ErrExpired
	default:
		return nil
	}
}

// ValidateLeaderAccess returns the leader token when it exists. Leader tokens
// never expire and may be used any number of times.
func (s *TokenService) ValidateLeaderAccess(ctx context.Context, tokenID string) (*models.LeaderAccessToken, error) {
	if strings.TrimSpace(tokenID) == "" {
		return nil, fmt.Errorf("%w: token is required", ErrMalformedInput)
	}

	t, err := s.leaders.GetByToken(ctx, tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if t == nil {
		s.metrics.IncValidation(kindLeader, outcome(ErrNotFound))
		return nil, ErrNotFound
	}

	s.metrics.IncValidation(kindLeader, outcome(nil))
	return t, nil
}

// Complete checks the token, records the submitted data and consumes it in a
// single conditional update, then resolves the destination. A resolution
// failure leaves the token consumed and returns the Completion alongside
// ErrUnresolvable.
func (s *TokenService) Complete(ctx context.Context, in CompletionInput, now time.Time) (*Completion, error) {
	if strings.TrimSpace(in.Token) == "" {
		return nil, fmt.Errorf("%w: token is required", ErrMalformedInput)
	}

	current, err := s.registrations.GetByToken(ctx, in.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := classifyRegistration(current, now); err != nil {
		s.metrics.IncCompletion(outcome(err))
		return nil, err
	}

	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	consumed, err := s.registrations.Consume(ctx, in.Token, string(hash), strings.TrimSpace(in.Age), strings.TrimSpace(in.Role), now)
	if err != nil {
		s.metrics.IncCompletion("error")
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	t, err := s.registrations.GetByToken(ctx, in.Token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if !consumed {
		// Lost a race with another completion or with a reissue
		err := classifyRegistration(t, now)
		if err == nil {
			err = ErrAlreadyUsed
		}
		s.metrics.IncCompletion(outcome(err))
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: token %s vanished after consumption", ErrPersistence, in.Token)
	}

	completion := &Completion{Token: t}

	dest, err := Resolve(t.Product, t.Type)
	if err != nil {
		s.metrics.IncCompletion(outcome(err))
		s.logger.Warn("token consumed without a destination",
			zap.String("token", t.Token),
			zap.String("product", t.Product),
			zap.String("type", t.Type))
		return completion, err
	}

	destURL, err := s.destinations.BuildURL(dest, t)
	if err != nil {
		s.metrics.IncCompletion(outcome(err))
		return completion, err
	}

	completion.Destination = dest
	completion.URL = destURL
	s.metrics.IncCompletion(outcome(nil))
	s.logger.Info("registration completed",
		zap.String("token", t.Token),
		zap.Stringer("destination", dest))

	return completion, nil
}

// ListRegistrations returns every registration token. A load failure is
// logged and yields an empty list.
func (s *TokenService) ListRegistrations(ctx context.Context) []models.RegistrationToken {
	tokens, err := s.registrations.List(ctx)
	if err != nil {
		s.logger.Warn("failed to load registration tokens", zap.Error(err))
		return []models.RegistrationToken{}
	}
	return tokens
}

// ListLeaders returns every leader token. A load failure is logged and yields an empty list.
func (s *TokenService) ListLeaders(ctx context.Context) []models.LeaderAccessToken {
	tokens, err := s.leaders.List(ctx)
	if err != nil {
		s.logger.Warn("failed to load leader tokens", zap.Error(err))
		return []models.LeaderAccessToken{}
	}
	return tokens
}

// ClearRegistrations deletes every registration token
func (s *TokenService) ClearRegistrations(ctx context.Context) (int64, error) {
	n, err := s.registrations.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.logger.Info("registration tokens cleared", zap.Int64("deleted", n))
	return n, nil
}

// ClearLeaders deletes every leader token
func (s *TokenService) ClearLeaders(ctx context.Context) (int64, error) {
	n, err := s.leaders.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.logger.Info("leader tokens cleared", zap.Int64("deleted", n))
	return n, nil
}

// outcome turns a lifecycle error into a metric label
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyUsed):
		return "already_used"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrUnresolvable):
		return "unresolvable"
	case errors.Is(err, ErrMalformedInput):
		return "malformed"
	default:
		return "error"
	}
}
