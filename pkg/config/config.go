package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the envconfig namespace for every KL Mobile setting.
const EnvPrefix = "KLMOBILE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	JWT    JWTConfig
	GCP    GCPConfig
	PubSub PubSubConfig
	Outbox OutboxConfig
	Cron   CronConfig
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
	Env          string `envconfig:"KLMOBILE_APP_ENV" required:"true"`
	Port         string `envconfig:"KLMOBILE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"KLMOBILE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KLMOBILE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KLMOBILE_DB_DSN"`
	Driver string `envconfig:"KLMOBILE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KLMOBILE_DB_HOST"`
	LegacyPort     int    `envconfig:"KLMOBILE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KLMOBILE_DB_USER"`
	LegacyPassword string `envconfig:"KLMOBILE_DB_PASSWORD"`
	LegacyName     string `envconfig:"KLMOBILE_DB_NAME"`
	LegacySSLMode  string `envconfig:"KLMOBILE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KLMOBILE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KLMOBILE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KLMOBILE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KLMOBILE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrateDev bool   `envconfig:"KLMOBILE_DB_AUTO_MIGRATE_DEV" default:"false"`
	MigrationsDir  string `envconfig:"KLMOBILE_DB_MIGRATIONS_DIR" default:"db/migrations"`
}

// ensureDSN assembles a postgres DSN from the discrete host/port variables
// when KLMOBILE_DB_DSN is not set directly.
func (d *DBConfig) ensureDSN() error {
	if strings.TrimSpace(d.DSN) != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("either KLMOBILE_DB_DSN or KLMOBILE_DB_HOST/USER/NAME must be set")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.LegacyUser, d.LegacyPassword),
		Host:   fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:   d.LegacyName,
	}
	q := u.Query()
	q.Set("sslmode", d.LegacySSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"KLMOBILE_REDIS_URL"`
	Address      string        `envconfig:"KLMOBILE_REDIS_ADDR"`
	Password     string        `envconfig:"KLMOBILE_REDIS_PASSWORD"`
	DB           int           `envconfig:"KLMOBILE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KLMOBILE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KLMOBILE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KLMOBILE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KLMOBILE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KLMOBILE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KLMOBILE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KLMOBILE_JWT_ISSUER" default:"kl-mobile"`
	ExpirationMinutes int    `envconfig:"KLMOBILE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"KLMOBILE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"KLMOBILE_PUBSUB_DOMAIN_TOPIC" default:"kl-mobile-domain-events"`
	DomainSubscription string `envconfig:"KLMOBILE_PUBSUB_DOMAIN_SUBSCRIPTION" default:"kl-mobile-domain-events-worker"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KLMOBILE_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KLMOBILE_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KLMOBILE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"KLMOBILE_OUTBOX_RETENTION_DAYS" default:"14"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"KLMOBILE_CRON_INTERVAL" default:"1h"`
	LockKey         string        `envconfig:"KLMOBILE_CRON_LOCK_KEY" default:"klmobile:cron:lock"`
	LockTTL         time.Duration `envconfig:"KLMOBILE_CRON_LOCK_TTL" default:"55m"`
	PendingTTLHours int           `envconfig:"KLMOBILE_CRON_PENDING_BOOKING_TTL_HOURS" default:"72"`
}
