package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"assessmentlinks/internal/models"
	"assessmentlinks/internal/repository"
)

// SQLStore keeps sessions in the leader_sessions table
type SQLStore struct {
	repo   *repository.SessionRepository
	logger *zap.Logger
}

// NewSQLStore creates a database-backed session store
func NewSQLStore(repo *repository.SessionRepository, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{repo: repo, logger: logger}
}

func (st *SQLStore) Create(ctx context.Context, s *models.LeaderSession) error {
	return st.repo.Create(ctx, s)
}

func (st *SQLStore) Get(ctx context.Context, id string) (*models.LeaderSession, error) {
	return st.repo.Get(ctx, id)
}

func (st *SQLStore) Delete(ctx context.Context, id string) error {
	return st.repo.Delete(ctx, id)
}

// Purge deletes sessions that expired before now
func (st *SQLStore) Purge(ctx context.Context, now time.Time) (int64, error) {
	return st.repo.DeleteExpired(ctx, now)
}

// RunCleanup purges expired sessions every interval until ctx is done
func (st *SQLStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := st.Purge(ctx, time.Now())
			if err != nil {
				st.logger.Warn("failed to purge expired leader sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				st.logger.Info("purged expired leader sessions", zap.Int64("deleted", n))
			}
		}
	}
}
