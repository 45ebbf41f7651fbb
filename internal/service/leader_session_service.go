package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"assessmentlinks/internal/metrics"
	"assessmentlinks/internal/models"
)

// SessionStore keeps leader sessions server-side. Get returns nil when the
// session does not exist.
type SessionStore interface {
	Create(ctx context.Context, s *models.LeaderSession) error
	Get(ctx context.Context, id string) (*models.LeaderSession, error)
	Delete(ctx context.Context, id string) error
}

// LeaderSessionService hands a validated leader's identity to the portal
// through a server-side session
type LeaderSessionService struct {
	tokens   *TokenService
	sessions SessionStore
	ttl      time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewLeaderSessionService creates a new leader session service
func NewLeaderSessionService(tokens *TokenService, sessions SessionStore, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *LeaderSessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderSessionService{
		tokens:   tokens,
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
		metrics:  m,
	}
}

// StartSession validates the leader token and opens a session carrying the leader identity
func (s *LeaderSessionService) StartSession(ctx context.Context, tokenID string) (*models.LeaderSession, error) {
	t, err := s.tokens.ValidateLeaderAccess(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &models.LeaderSession{
		ID:          uuid.NewString(),
		Token:       t.Token,
		LeaderName:  t.LeaderName,
		LeaderEmail: t.LeaderEmail,
		Company:     t.Company,
		RoundCode:   t.RoundCode,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.metrics.IncLeaderSession()
	s.logger.Info("leader session started", zap.String("token", t.Token))
	return session, nil
}

// CurrentSession returns the live session for id. Expired sessions and
// sessions whose leader token was cleared are removed.
func (s *LeaderSessionService) CurrentSession(ctx context.Context, id string) (*models.LeaderSession, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	session, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if session == nil {
		return nil, ErrNotFound
	}

	if session.IsExpired() {
		s.drop(ctx, id)
		return nil, ErrExpired
	}

	if _, err := s.tokens.ValidateLeaderAccess(ctx, session.Token); err != nil {
		s.drop(ctx, id)
		return nil, err
	}

	return session, nil
}

// EndSession removes the session
func (s *LeaderSessionService) EndSession(ctx context.Context, id string) error {
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *LeaderSessionService) drop(ctx context.Context, id string) {
	if err := s.sessions.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to delete leader session", zap.Error(err))
	}
}
