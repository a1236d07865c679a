package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Upload        UploadConfig
	Generation    GenerationConfig
	Marketplace   MarketplaceConfig
	Webhook       WebhookConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"BRANDINBOX_APP_ENV" required:"true"`
	Port         string `envconfig:"BRANDINBOX_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"BRANDINBOX_APP_BASE_URL"`
	LogLevel     string `envconfig:"BRANDINBOX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRANDINBOX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BRANDINBOX_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BRANDINBOX_DB_DSN"`
	Driver string `envconfig:"BRANDINBOX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BRANDINBOX_DB_HOST"`
	LegacyPort     int    `envconfig:"BRANDINBOX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BRANDINBOX_DB_USER"`
	LegacyPassword string `envconfig:"BRANDINBOX_DB_PASSWORD"`
	LegacyName     string `envconfig:"BRANDINBOX_DB_NAME"`
	LegacySSLMode  string `envconfig:"BRANDINBOX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRANDINBOX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRANDINBOX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRANDINBOX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRANDINBOX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRANDINBOX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BRANDINBOX_REDIS_ADDR"`
	Password     string        `envconfig:"BRANDINBOX_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRANDINBOX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRANDINBOX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRANDINBOX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRANDINBOX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRANDINBOX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRANDINBOX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BRANDINBOX_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BRANDINBOX_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BRANDINBOX_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"BRANDINBOX_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BRANDINBOX_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BRANDINBOX_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BRANDINBOX_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BRANDINBOX_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BRANDINBOX_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BRANDINBOX_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BRANDINBOX_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BRANDINBOX_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BRANDINBOX_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BRANDINBOX_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BRANDINBOX_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BRANDINBOX_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BRANDINBOX_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"BRANDINBOX_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BRANDINBOX_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BRANDINBOX_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BRANDINBOX_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"BRANDINBOX_GCS_BUCKET_NAME" required:"true"`
	// Object key prefixes inside the bucket.
	UploadPrefix string `envconfig:"BRANDINBOX_GCS_UPLOAD_PREFIX" default:"uploads"`
	MediaPrefix  string `envconfig:"BRANDINBOX_GCS_MEDIA_PREFIX" default:"generated"`
}

type UploadConfig struct {
	MaxUploadMB  int      `envconfig:"BRANDINBOX_MAX_UPLOAD_MB" default:"20"`
	AllowedTypes []string `envconfig:"BRANDINBOX_UPLOAD_ALLOWED_TYPES" default:"image/jpeg,image/png,image/webp"`
}

// GenerationConfig points at the external workflow engine that renders
// marketing media for a listing.
type GenerationConfig struct {
	WebhookURL     string        `envconfig:"BRANDINBOX_GENERATION_WEBHOOK_URL" required:"true"`
	AuthToken      string        `envconfig:"BRANDINBOX_GENERATION_AUTH_TOKEN"`
	RequestTimeout time.Duration `envconfig:"BRANDINBOX_GENERATION_TIMEOUT" default:"30s"`
}

type MarketplaceConfig struct {
	BaseURL             string        `envconfig:"BRANDINBOX_MARKETPLACE_BASE_URL" default:"https://api.ebay.com"`
	ListingBaseURL      string        `envconfig:"BRANDINBOX_MARKETPLACE_LISTING_BASE_URL" default:"https://www.ebay.com/itm"`
	OAuthToken          string        `envconfig:"BRANDINBOX_MARKETPLACE_OAUTH_TOKEN"`
	FulfillmentPolicyID string        `envconfig:"BRANDINBOX_MARKETPLACE_FULFILLMENT_POLICY_ID"`
	PaymentPolicyID     string        `envconfig:"BRANDINBOX_MARKETPLACE_PAYMENT_POLICY_ID"`
	ReturnPolicyID      string        `envconfig:"BRANDINBOX_MARKETPLACE_RETURN_POLICY_ID"`
	MerchantLocationKey string        `envconfig:"BRANDINBOX_MARKETPLACE_LOCATION_KEY"`
	RequestTimeout      time.Duration `envconfig:"BRANDINBOX_MARKETPLACE_TIMEOUT" default:"30s"`
}

type WebhookConfig struct {
	SharedSecret   string        `envconfig:"BRANDINBOX_WEBHOOK_SHARED_SECRET"`
	IdempotencyTTL time.Duration `envconfig:"BRANDINBOX_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"BRANDINBOX_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription string `envconfig:"BRANDINBOX_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset            string `envconfig:"BRANDINBOX_BIGQUERY_DATASET" default:"brandinbox"`
	ListingEventsTable string `envconfig:"BRANDINBOX_BIGQUERY_LISTING_TABLE" default:"listing_lifecycle"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BRANDINBOX_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BRANDINBOX_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BRANDINBOX_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
