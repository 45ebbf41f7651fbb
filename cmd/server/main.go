package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"assessmentlinks/internal/config"
	"assessmentlinks/internal/database"
	"assessmentlinks/internal/handlers"
	"assessmentlinks/internal/importer"
	"assessmentlinks/internal/logging"
	"assessmentlinks/internal/metrics"
	"assessmentlinks/internal/repository"
	"assessmentlinks/internal/security"
	"assessmentlinks/internal/service"
	"assessmentlinks/internal/session"
	"assessmentlinks/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	usedDefault, err := cfg.ResolveCSRFSecret()
	if err != nil {
		return err
	}
	if usedDefault {
		logger.Warn("CSRF_SECRET not set; using a development secret")
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("database connection established", zap.String("type", cfg.DatabaseType))

	if err := db.RunMigrations(ctx, cfg.MigrationsPath, logger); err != nil {
		return err
	}

	templates, err := handlers.LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Repositories
	registrationRepo := repository.NewRegistrationRepository(db)
	leaderRepo := repository.NewLeaderRepository(db)

	g, ctx := errgroup.WithContext(ctx)

	// Leader sessions live in Redis when configured, in the database otherwise
	var sessions service.SessionStore
	if cfg.RedisAddr != "" {
		rdb, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb)
		logger.Info("leader sessions stored in redis", zap.String("addr", cfg.RedisAddr))
	} else {
		sqlSessions := session.NewSQLStore(repository.NewSessionRepository(db), logger)
		sessions = sqlSessions
		g.Go(func() error {
			sqlSessions.RunCleanup(ctx, time.Hour)
			return nil
		})
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, logger)
	if err != nil {
		return err
	}

	archive, err := storage.NewArchive(ctx, cfg.AWSRegion, cfg.ArchiveBucket, logger)
	if err != nil {
		logger.Warn("upload archive disabled", zap.Error(err))
		archive = nil
	}

	// Services
	destinations := service.NewDestinations(cfg.ArchetypeSelfURL, cfg.ArchetypeTeamURL, cfg.MicroclimateTeamURL)
	tokenService := service.NewTokenService(registrationRepo, leaderRepo, destinations, cfg.TokenTTL, logger, m)
	dispatchService := service.NewDispatchService(registrationRepo, leaderRepo, destinations, emailService,
		cfg.AppBaseURL, cfg.EmailTimeout, cfg.EmailConcurrency, logger, m)
	leaderSessions := service.NewLeaderSessionService(tokenService, sessions, cfg.LeaderSessionTTL, logger, m)

	limiter := newRateLimiter(cfg.RateLimitPerMinute)
	if limiter == nil {
		logger.Warn("rate limiting disabled", zap.Int("per_minute", cfg.RateLimitPerMinute))
	} else {
		defer limiter.Stop()
	}
	middleware := handlers.NewMiddleware(limiter, cfg.TrustProxy, logger)

	// Setup routes
	mux := http.NewServeMux()
	handlers.Routes{
		Tokens:  handlers.NewTokenHandler(tokenService, security.NewCSRFGenerator(cfg.CSRFSecret), templates, logger),
		Leaders: handlers.NewLeaderHandler(leaderSessions, cfg.LeaderPortalURL, logger),
		Admin: handlers.NewAdminHandler(tokenService, dispatchService, importer.New(cfg.ImportMaxRows), archive, templates,
			handlers.AdminHandlerConfig{
				AppBaseURL:    cfg.AppBaseURL,
				UploadMaxSize: cfg.UploadMaxSize,
				EmailEnabled:  emailService.IsEnabled(),
			}, logger),
		Middleware: middleware,
	}.Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      middleware.Logging(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newRateLimiter returns nil, which disables limiting, when perMinute is not positive
func newRateLimiter(perMinute int) *security.RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return security.NewRateLimiter(perMinute, time.Minute)
}
