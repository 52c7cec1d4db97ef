package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "framesmith"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "FRAMESMITH_DB_DSN"
	EnvDBHost = "FRAMESMITH_DB_HOST"
	EnvDBUser = "FRAMESMITH_DB_USER"
	EnvDBName = "FRAMESMITH_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App    AppConfig
	DB     DBConfig
	Orders OrdersConfig
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
	Env          string   `envconfig:"FRAMESMITH_APP_ENV" required:"true"`
	Port         string   `envconfig:"FRAMESMITH_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"FRAMESMITH_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FRAMESMITH_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"FRAMESMITH_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"FRAMESMITH_DB_DSN"`

	LegacyHost     string `envconfig:"FRAMESMITH_DB_HOST"`
	LegacyPort     int    `envconfig:"FRAMESMITH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FRAMESMITH_DB_USER"`
	LegacyPassword string `envconfig:"FRAMESMITH_DB_PASSWORD"`
	LegacyName     string `envconfig:"FRAMESMITH_DB_NAME"`
	LegacySSLMode  string `envconfig:"FRAMESMITH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FRAMESMITH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FRAMESMITH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FRAMESMITH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRAMESMITH_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	TxMaxRetries   int           `envconfig:"FRAMESMITH_DB_TX_MAX_RETRIES" default:"3"`
	TxRetryBackoff time.Duration `envconfig:"FRAMESMITH_DB_TX_RETRY_BACKOFF" default:"25ms"`

	AutoMigrate bool `envconfig:"FRAMESMITH_DB_AUTO_MIGRATE" default:"false"`
}

// OrdersConfig carries order lifecycle policy knobs.
type OrdersConfig struct {
	// PrescriptionCancelWindow bounds self-service cancellation of
	// prescription orders, measured from order creation.
	PrescriptionCancelWindow time.Duration `envconfig:"FRAMESMITH_ORDERS_RX_CANCEL_WINDOW" default:"24h"`
	DefaultCancelReason      string        `envconfig:"FRAMESMITH_ORDERS_DEFAULT_CANCEL_REASON" default:"cancelled by customer"`
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
