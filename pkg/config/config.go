package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App        AppConfig
	Storage    StorageConfig
	DB         DBConfig
	Redis      RedisConfig
	StoreAPI   StoreAPIConfig
	GoogleMaps GoogleMapsConfig
	ViaCEP     ViaCEPConfig
	Delivery   DeliveryConfig
	Pix        PixConfig
	Checkout   CheckoutConfig
	Worker     WorkerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if cfg.Storage.Driver == StorageDriverSQL {
		if err := cfg.DB.EnsureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.Storage.Driver == StorageDriverRedis && cfg.Redis.URL == "" && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("%s or %s is required for the redis storage driver", EnvRedisURL, EnvRedisAddr)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ANNETOM_APP_ENV" required:"true"`
	Port         string `envconfig:"ANNETOM_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ANNETOM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ANNETOM_LOG_WARN_STACK" default:"false"`

	CORSOrigins     []string      `envconfig:"ANNETOM_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"ANNETOM_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StorageConfig selects where per-session checkout state lives.
type StorageConfig struct {
	Driver      string        `envconfig:"ANNETOM_STORAGE_DRIVER" default:"memory"`
	SessionTTL  time.Duration `envconfig:"ANNETOM_STORAGE_SESSION_TTL" default:"168h"`
	AutoMigrate bool          `envconfig:"ANNETOM_STORAGE_AUTO_MIGRATE" default:"true"`
}

func (s StorageConfig) validate() error {
	switch s.Driver {
	case StorageDriverMemory, StorageDriverRedis, StorageDriverSQL:
		return nil
	}
	return fmt.Errorf("%s must be one of %q, %q or %q", EnvStorageDriver, StorageDriverMemory, StorageDriverRedis, StorageDriverSQL)
}

type DBConfig struct {
	DSN    string `envconfig:"ANNETOM_DB_DSN"`
	Driver string `envconfig:"ANNETOM_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ANNETOM_DB_HOST"`
	Port     int    `envconfig:"ANNETOM_DB_PORT" default:"5432"`
	User     string `envconfig:"ANNETOM_DB_USER"`
	Password string `envconfig:"ANNETOM_DB_PASSWORD"`
	Name     string `envconfig:"ANNETOM_DB_NAME"`
	SSLMode  string `envconfig:"ANNETOM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ANNETOM_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"ANNETOM_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"ANNETOM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ANNETOM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the DB driver targets sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ANNETOM_REDIS_URL"`
	Address      string        `envconfig:"ANNETOM_REDIS_ADDR"`
	Password     string        `envconfig:"ANNETOM_REDIS_PASSWORD"`
	DB           int           `envconfig:"ANNETOM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ANNETOM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ANNETOM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ANNETOM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ANNETOM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ANNETOM_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"ANNETOM_REDIS_KEY_PREFIX" default:"at"`
}

// StoreAPIConfig points at the pizzeria backend (menu, customers, orders, payments).
type StoreAPIConfig struct {
	BaseURL  string        `envconfig:"ANNETOM_STORE_API_BASE_URL" default:"https://api.annetom.com"`
	APIKey   string        `envconfig:"ANNETOM_STORE_API_KEY" required:"true"`
	Timeout  time.Duration `envconfig:"ANNETOM_STORE_API_TIMEOUT" default:"15s"`
	PixPath  string        `envconfig:"ANNETOM_STORE_API_PIX_PATH" default:"/payments/pix"`
	CardPath string        `envconfig:"ANNETOM_STORE_API_CARD_PATH" default:"/payments/card"`
	MenuTTL  time.Duration `envconfig:"ANNETOM_STORE_API_MENU_TTL" default:"5m"`
}

type GoogleMapsConfig struct {
	APIKey   string        `envconfig:"ANNETOM_GOOGLE_MAPS_API_KEY"`
	BaseURL  string        `envconfig:"ANNETOM_GOOGLE_MAPS_BASE_URL"`
	Origin   string        `envconfig:"ANNETOM_DELIVERY_ORIGIN" default:"Pizzaria Anne & Tom, Alto de Santana, Sao Paulo"`
	Debounce time.Duration `envconfig:"ANNETOM_DISTANCE_DEBOUNCE" default:"500ms"`
	Timeout  time.Duration `envconfig:"ANNETOM_DISTANCE_TIMEOUT" default:"8s"`
	CacheTTL time.Duration `envconfig:"ANNETOM_DISTANCE_CACHE_TTL" default:"24h"`
}

// Enabled reports whether distance lookups can run.
func (g GoogleMapsConfig) Enabled() bool {
	return strings.TrimSpace(g.APIKey) != ""
}

type ViaCEPConfig struct {
	BaseURL string        `envconfig:"ANNETOM_VIACEP_BASE_URL" default:"https://viacep.com.br/ws"`
	Timeout time.Duration `envconfig:"ANNETOM_VIACEP_TIMEOUT" default:"5s"`
}

type DeliveryConfig struct {
	FeeBands               FeeBands          `envconfig:"ANNETOM_DELIVERY_FEE_BANDS" default:"1:3.50,2:5.90,5:8.90,8:11.90,12:14.90,15:18.90"`
	NeighborhoodFees       map[string]string `envconfig:"ANNETOM_DELIVERY_NEIGHBORHOOD_FEES"`
	DefaultNeighborhoodFee decimal.Decimal   `envconfig:"ANNETOM_DELIVERY_DEFAULT_NEIGHBORHOOD_FEE" default:"10.00"`
	MaxRadiusKm            float64           `envconfig:"ANNETOM_DELIVERY_MAX_RADIUS_KM" default:"15"`
}

type PixConfig struct {
	InvalidationEpsilon decimal.Decimal `envconfig:"ANNETOM_PIX_INVALIDATION_EPSILON" default:"0"`
	Currency            string          `envconfig:"ANNETOM_PIX_CURRENCY" default:"BRL"`
	Source              string          `envconfig:"ANNETOM_PIX_SOURCE" default:"anne-tom-app"`
}

type CheckoutConfig struct {
	Coupons       map[string]string `envconfig:"ANNETOM_CHECKOUT_COUPONS" default:"PRIMEIRA:5.00"`
	IdleTTL       time.Duration     `envconfig:"ANNETOM_CHECKOUT_IDLE_TTL" default:"30m"`
	SubmitLockTTL time.Duration     `envconfig:"ANNETOM_CHECKOUT_SUBMIT_LOCK_TTL" default:"2m"`
}

// WorkerConfig drives cmd/maintenance-worker.
type WorkerConfig struct {
	Interval    time.Duration `envconfig:"ANNETOM_WORKER_INTERVAL" default:"1h"`
	LockTTL     time.Duration `envconfig:"ANNETOM_WORKER_LOCK_TTL" default:"30m"`
	MetricsAddr string        `envconfig:"ANNETOM_WORKER_METRICS_ADDR"`
}

// EnsureDSN builds a postgres DSN from the discrete settings when none is given.
func (db *DBConfig) EnsureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:annetom.db?_busy_timeout=5000"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
