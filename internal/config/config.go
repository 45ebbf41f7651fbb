package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string
	TemplatesPath  string
	Debug          bool

	// Public base URL used to build links sent by email
	AppBaseURL string

	// Downstream destinations
	LeaderPortalURL     string
	ArchetypeSelfURL    string
	ArchetypeTeamURL    string
	MicroclimateTeamURL string

	TokenTTL         time.Duration
	LeaderSessionTTL time.Duration

	// Email (Amazon SES)
	AWSRegion        string
	SESFromEmail     string
	SESFromName      string
	EmailTimeout     time.Duration
	EmailConcurrency int

	// Leader sessions live in Redis when RedisAddr is set, in the database otherwise
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	UploadMaxSize int64
	ImportMaxRows int
	ArchiveBucket string
	CSRFSecret    string

	// Requests per minute per client IP on the public token routes; zero or less disables the limit
	RateLimitPerMinute int
	// Honour X-Forwarded-For / X-Real-IP; only enable behind a proxy that sets them
	TrustProxy bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./tokens.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		TemplatesPath:  getEnv("TEMPLATES_PATH", "./internal/templates"),
		Debug:          getEnvBool("DEBUG", false),

		AppBaseURL:          strings.TrimSuffix(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		LeaderPortalURL:     getEnv("LEADER_PORTAL_URL", "https://leadertrack.example.com/"),
		ArchetypeSelfURL:    getEnv("ARQUETIPOS_AUTO_URL", "https://formularios.example.com/arquetipos/autoavaliacao"),
		ArchetypeTeamURL:    getEnv("ARQUETIPOS_EQUIPE_URL", "https://formularios.example.com/arquetipos/equipe"),
		MicroclimateTeamURL: getEnv("MICROAMBIENTE_URL", "https://formularios.example.com/microambiente/equipe"),

		TokenTTL:         getEnvDuration("TOKEN_TTL", 48*time.Hour),
		LeaderSessionTTL: getEnvDuration("LEADER_SESSION_TTL", 12*time.Hour),

		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:     getEnv("SES_FROM_EMAIL", ""),
		SESFromName:      getEnv("SES_FROM_NAME", "Avaliações"),
		EmailTimeout:     getEnvDuration("EMAIL_TIMEOUT", 15*time.Second),
		EmailConcurrency: getEnvInt("EMAIL_CONCURRENCY", 4),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		UploadMaxSize: int64(getEnvInt("UPLOAD_MAX_SIZE", 10*1024*1024)), // 10MB
		ImportMaxRows: getEnvInt("IMPORT_MAX_ROWS", 5000),
		ArchiveBucket: getEnv("S3_ARCHIVE_BUCKET", ""),
		CSRFSecret:    getEnv("CSRF_SECRET", ""),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		TrustProxy:         getEnvBool("TRUST_PROXY", false),
	}
}

// ErrMissingCSRFSecret is returned when the server has no CSRF secret outside debug mode
var ErrMissingCSRFSecret = errors.New("CSRF_SECRET must be set when DEBUG is off")

// devCSRFSecret signs forms in debug mode only
const devCSRFSecret = "dev-only-csrf-secret"

// ResolveCSRFSecret checks the CSRF secret before the server starts. In debug
// mode an unset secret falls back to a development value and usedDefault is true.
func (c *Config) ResolveCSRFSecret() (usedDefault bool, err error) {
	if c.CSRFSecret != "" {
		return false, nil
	}
	if !c.Debug {
		return false, ErrMissingCSRFSecret
	}
	c.CSRFSecret = devCSRFSecret
	return true, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration accepts Go duration strings ("48h", "15s")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
