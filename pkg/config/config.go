package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Payments     PaymentsConfig
	Pesapal      PesapalConfig
	Paystack     PaystackConfig
	Resend       ResendConfig
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
	Env          string `envconfig:"OPULENT_APP_ENV" required:"true"`
	Port         string `envconfig:"OPULENT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OPULENT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OPULENT_LOG_WARN_STACK" default:"false"`
	BaseURL      string `envconfig:"OPULENT_APP_BASE_URL" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"OPULENT_DB_DSN"`
	Driver string `envconfig:"OPULENT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"OPULENT_DB_HOST"`
	Port     int    `envconfig:"OPULENT_DB_PORT" default:"5432"`
	User     string `envconfig:"OPULENT_DB_USER"`
	Password string `envconfig:"OPULENT_DB_PASSWORD"`
	Name     string `envconfig:"OPULENT_DB_NAME"`
	SSLMode  string `envconfig:"OPULENT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OPULENT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OPULENT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OPULENT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OPULENT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OPULENT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OPULENT_REDIS_ADDR"`
	Password     string        `envconfig:"OPULENT_REDIS_PASSWORD"`
	DB           int           `envconfig:"OPULENT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OPULENT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OPULENT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OPULENT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OPULENT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OPULENT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OPULENT_AUTO_MIGRATE" default:"false"`
}

// PaymentsConfig carries the reconciliation knobs shared by both gateways.
type PaymentsConfig struct {
	Currency string `envconfig:"OPULENT_PAYMENTS_CURRENCY" default:"KES"`
	// AmountToleranceMinor is the absolute allowed difference, in minor
	// units, between the gateway-reported amount and the order total.
	AmountToleranceMinor int64         `envconfig:"OPULENT_PAYMENTS_AMOUNT_TOLERANCE_MINOR" default:"100"`
	GatewayTimeout       time.Duration `envconfig:"OPULENT_PAYMENTS_GATEWAY_TIMEOUT" default:"30s"`
	AdminEmail           string        `envconfig:"OPULENT_PAYMENTS_ADMIN_EMAIL" default:"admin@opulentcosmetics.com"`
}

type PesapalConfig struct {
	Env            string `envconfig:"PESAPAL_ENV" default:"live"`
	ConsumerKey    string `envconfig:"PESAPAL_CONSUMER_KEY"`
	ConsumerSecret string `envconfig:"PESAPAL_CONSUMER_SECRET"`
	IPNID          string `envconfig:"PESAPAL_IPN_ID"`
}

// Environment returns the normalized Pesapal environment (sandbox/live).
func (p PesapalConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "live"
	}
	return env
}

type PaystackConfig struct {
	SecretKey string `envconfig:"PAYSTACK_SECRET_KEY"`
}

type ResendConfig struct {
	APIKey      string `envconfig:"RESEND_API_KEY"`
	DefaultFrom string `envconfig:"RESEND_FROM_EMAIL" default:"Opulent Cosmetics <onboarding@resend.dev>"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"OPULENT_DB_HOST": db.Host,
		"OPULENT_DB_USER": db.User,
		"OPULENT_DB_NAME": db.Name,
	}
	for _, env := range []string{"OPULENT_DB_HOST", "OPULENT_DB_USER", "OPULENT_DB_NAME"} {
		if required[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either OPULENT_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
