package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"assessmentlinks/internal/models"
)

var errStoreDown = errors.New("store unavailable")

type fakeRegistrationStore struct {
	mu      sync.Mutex
	tokens  map[string]models.RegistrationToken
	listErr error
	saveErr error
}

func newFakeRegistrationStore(tokens ...models.RegistrationToken) *fakeRegistrationStore {
	s := &fakeRegistrationStore{tokens: make(map[string]models.RegistrationToken)}
	for _, t := range tokens {
		s.tokens[t.Token] = t
	}
	return s
}

func (s *fakeRegistrationStore) GetByToken(_ context.Context, token string) (*models.RegistrationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *fakeRegistrationStore) List(_ context.Context) ([]models.RegistrationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.RegistrationToken, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (s *fakeRegistrationStore) ListUnused(ctx context.Context) ([]models.RegistrationToken, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.RegistrationToken
	for _, t := range all {
		if !t.Used {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeRegistrationStore) ReplaceAll(_ context.Context, tokens []models.RegistrationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.tokens = make(map[string]models.RegistrationToken, len(tokens))
	for _, t := range tokens {
		s.tokens[t.Token] = t
	}
	return nil
}

func (s *fakeRegistrationStore) Consume(_ context.Context, token, passwordHash, age, role string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return false, s.saveErr
	}
	t, ok := s.tokens[token]
	if !ok || t.Used || now.After(t.ExpiresAt) {
		return false, nil
	}
	t.Used = true
	t.PasswordHash = passwordHash
	t.Age = age
	t.Role = role
	t.UsedAt = &now
	s.tokens[token] = t
	return true, nil
}

func (s *fakeRegistrationStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	n := int64(len(s.tokens))
	s.tokens = make(map[string]models.RegistrationToken)
	return n, nil
}

type fakeLeaderStore struct {
	mu      sync.Mutex
	tokens  []models.LeaderAccessToken
	listErr error
}

func (s *fakeLeaderStore) GetByToken(_ context.Context, token string) (*models.LeaderAccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, nil
}

func (s *fakeLeaderStore) List(_ context.Context) ([]models.LeaderAccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]models.LeaderAccessToken(nil), s.tokens...), nil
}

func (s *fakeLeaderStore) InsertAll(_ context.Context, tokens []models.LeaderAccessToken) ([]models.LeaderAccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted []models.LeaderAccessToken
	for _, t := range tokens {
		exists := false
		for _, e := range s.tokens {
			if e.EmailKey() == t.EmailKey() {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		s.tokens = append(s.tokens, t)
		inserted = append(inserted, t)
	}
	return inserted, nil
}

func (s *fakeLeaderStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.tokens))
	s.tokens = nil
	return n, nil
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []Message
	failFor map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[msg.To] {
		return errors.New("mailbox unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.LeaderSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]models.LeaderSession)}
}

func (s *fakeSessionStore) Create(_ context.Context, session *models.LeaderSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

func (s *fakeSessionStore) Get(_ context.Context, id string) (*models.LeaderSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (s *fakeSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

var testDestinations = NewDestinations(
	"https://forms.example.com/arquetipos/auto",
	"https://forms.example.com/arquetipos/equipe",
	"https://forms.example.com/microambiente",
)

func newTestTokenService(reg RegistrationStore, leaders LeaderStore) *TokenService {
	return NewTokenService(reg, leaders, testDestinations, 48*time.Hour, nil, nil)
}
