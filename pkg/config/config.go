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
	CORS         CORSConfig
	Realtime     RealtimeConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"COMMUNA_APP_ENV" required:"true"`
	Port         string `envconfig:"COMMUNA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COMMUNA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMMUNA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"COMMUNA_DB_DSN"`
	Driver string `envconfig:"COMMUNA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COMMUNA_DB_HOST"`
	LegacyPort     int    `envconfig:"COMMUNA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COMMUNA_DB_USER"`
	LegacyPassword string `envconfig:"COMMUNA_DB_PASSWORD"`
	LegacyName     string `envconfig:"COMMUNA_DB_NAME"`
	LegacySSLMode  string `envconfig:"COMMUNA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COMMUNA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COMMUNA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COMMUNA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMMUNA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COMMUNA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COMMUNA_REDIS_ADDR"`
	Password     string        `envconfig:"COMMUNA_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMMUNA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMMUNA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMMUNA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMMUNA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMMUNA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMMUNA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COMMUNA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COMMUNA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COMMUNA_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"COMMUNA_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the access-session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"COMMUNA_CORS_ALLOWED_ORIGINS" default:"*"`
}

type RealtimeConfig struct {
	WriteWait      time.Duration `envconfig:"COMMUNA_REALTIME_WRITE_WAIT" default:"10s"`
	PongWait       time.Duration `envconfig:"COMMUNA_REALTIME_PONG_WAIT" default:"60s"`
	MaxMessageSize int64         `envconfig:"COMMUNA_REALTIME_MAX_MESSAGE_SIZE" default:"4096"`
	SendBuffer     int           `envconfig:"COMMUNA_REALTIME_SEND_BUFFER" default:"256"`
}

// PingPeriod derives the keepalive interval from the pong deadline.
func (r RealtimeConfig) PingPeriod() time.Duration {
	return r.PongWait * 9 / 10
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COMMUNA_AUTO_MIGRATE" default:"false"`
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
