package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "COURIERHUB"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "COURIERHUB_DB_DSN"
	EnvDBHost = "COURIERHUB_DB_HOST"
	EnvDBUser = "COURIERHUB_DB_USER"
	EnvDBName = "COURIERHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Notifications NotificationsConfig
	Report        ReportConfig
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
	Env          string `envconfig:"COURIERHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"COURIERHUB_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"COURIERHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COURIERHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COURIERHUB_DB_DSN"`
	Driver string `envconfig:"COURIERHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COURIERHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"COURIERHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COURIERHUB_DB_USER"`
	LegacyPassword string `envconfig:"COURIERHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"COURIERHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"COURIERHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COURIERHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COURIERHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COURIERHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COURIERHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrateDev bool `envconfig:"COURIERHUB_DB_AUTO_MIGRATE_DEV" default:"true"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COURIERHUB_REDIS_URL"`
	Address      string        `envconfig:"COURIERHUB_REDIS_ADDR"`
	Password     string        `envconfig:"COURIERHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"COURIERHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COURIERHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COURIERHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COURIERHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COURIERHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COURIERHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"COURIERHUB_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"COURIERHUB_PUBSUB_NOTIFICATION_TOPIC" default:"courierhub-notification-events"`
}

type NotificationsConfig struct {
	Enabled bool `envconfig:"COURIERHUB_NOTIFICATIONS_ENABLED" default:"true"`
}

type ReportConfig struct {
	Interval time.Duration `envconfig:"COURIERHUB_REPORT_INTERVAL" default:"24h"`
	LockKey  string        `envconfig:"COURIERHUB_REPORT_LOCK_KEY" default:"report:daily-reconciliation"`
	LockTTL  time.Duration `envconfig:"COURIERHUB_REPORT_LOCK_TTL" default:"23h"`
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
