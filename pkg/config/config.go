package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	IntakeLimit  IntakeRateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Photos       PhotoConfig
	Similarity   SimilarityConfig
	Moderation   ModerationConfig
	MassImport   MassImportConfig
	Consent      ConsentConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"OPENARTMAP_APP_ENV" required:"true"`
	Port         string `envconfig:"OPENARTMAP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OPENARTMAP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OPENARTMAP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"OPENARTMAP_DB_DSN"`
	Driver string `envconfig:"OPENARTMAP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OPENARTMAP_DB_HOST"`
	LegacyPort     int    `envconfig:"OPENARTMAP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OPENARTMAP_DB_USER"`
	LegacyPassword string `envconfig:"OPENARTMAP_DB_PASSWORD"`
	LegacyName     string `envconfig:"OPENARTMAP_DB_NAME"`
	LegacySSLMode  string `envconfig:"OPENARTMAP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OPENARTMAP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OPENARTMAP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OPENARTMAP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OPENARTMAP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OPENARTMAP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OPENARTMAP_REDIS_ADDR"`
	Password     string        `envconfig:"OPENARTMAP_REDIS_PASSWORD"`
	DB           int           `envconfig:"OPENARTMAP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OPENARTMAP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OPENARTMAP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OPENARTMAP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OPENARTMAP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OPENARTMAP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"OPENARTMAP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"OPENARTMAP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"OPENARTMAP_JWT_EXPIRATION_MINUTES" required:"true"`
}

type IntakeRateLimitConfig struct {
	Window         time.Duration `envconfig:"OPENARTMAP_INTAKE_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit        int           `envconfig:"OPENARTMAP_INTAKE_RATE_LIMIT_IP_LIMIT" default:"20"`
	SubmitterLimit int           `envconfig:"OPENARTMAP_INTAKE_RATE_LIMIT_SUBMITTER_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OPENARTMAP_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"OPENARTMAP_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"OPENARTMAP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"OPENARTMAP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"OPENARTMAP_GCS_BUCKET_NAME" required:"true"`
}

// PhotoConfig bounds the photo lifecycle manager.
type PhotoConfig struct {
	MaxPerSubmission int           `envconfig:"OPENARTMAP_PHOTOS_MAX_PER_SUBMISSION" default:"10"`
	MaxUploadMB      int           `envconfig:"OPENARTMAP_PHOTOS_MAX_UPLOAD_MB" default:"20"`
	ProbeTimeout     time.Duration `envconfig:"OPENARTMAP_PHOTOS_PROBE_TIMEOUT" default:"10s"`
	StagedPrefix     string        `envconfig:"OPENARTMAP_PHOTOS_STAGED_PREFIX" default:"staged"`
	PermanentPrefix  string        `envconfig:"OPENARTMAP_PHOTOS_PERMANENT_PREFIX" default:"artworks"`
}

// SimilarityConfig carries the duplicate-classification thresholds. The
// upstream data never documented a derivation for these values, so they stay
// tunable rather than hardcoded.
type SimilarityConfig struct {
	RadiusMeters     float64 `envconfig:"OPENARTMAP_SIMILARITY_RADIUS_METERS" default:"100"`
	WarningThreshold float64 `envconfig:"OPENARTMAP_SIMILARITY_WARNING_THRESHOLD" default:"0.5"`
	HighThreshold    float64 `envconfig:"OPENARTMAP_SIMILARITY_HIGH_THRESHOLD" default:"0.8"`
	MaxCandidates    int     `envconfig:"OPENARTMAP_SIMILARITY_MAX_CANDIDATES" default:"25"`
}

type ModerationConfig struct {
	MaxBatchSize int `envconfig:"OPENARTMAP_MODERATION_MAX_BATCH_SIZE" default:"50"`
}

type MassImportConfig struct {
	// TokenHash is the Argon2id hash of the shared mass-import source token.
	TokenHash    string `envconfig:"OPENARTMAP_MASS_IMPORT_TOKEN_HASH"`
	MaxBatchSize int    `envconfig:"OPENARTMAP_MASS_IMPORT_MAX_BATCH_SIZE" default:"250"`
}

type ConsentConfig struct {
	Version string `envconfig:"OPENARTMAP_CONSENT_VERSION" default:"2024-01-01"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
