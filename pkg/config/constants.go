package config

const EnvPrefix = "ANNETOM"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverMemory = "memory"
	StorageDriverRedis  = "redis"
	StorageDriverSQL    = "sql"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv        = "ANNETOM_APP_ENV"
	EnvPort          = "ANNETOM_APP_PORT"
	EnvLogLevel      = "ANNETOM_LOG_LEVEL"
	EnvStorageDriver = "ANNETOM_STORAGE_DRIVER"
	EnvDBDSN         = "ANNETOM_DB_DSN"
	EnvDBDriver      = "ANNETOM_DB_DRIVER"
	EnvDBHost        = "ANNETOM_DB_HOST"
	EnvDBUser        = "ANNETOM_DB_USER"
	EnvDBName        = "ANNETOM_DB_NAME"
	EnvRedisURL      = "ANNETOM_REDIS_URL"
	EnvRedisAddr     = "ANNETOM_REDIS_ADDR"
	EnvStoreAPIKey   = "ANNETOM_STORE_API_KEY"
	EnvMapsAPIKey    = "ANNETOM_GOOGLE_MAPS_API_KEY"
	EnvFeeBands      = "ANNETOM_DELIVERY_FEE_BANDS"
	EnvCoupons       = "ANNETOM_CHECKOUT_COUPONS"
	EnvPixEpsilon    = "ANNETOM_PIX_INVALIDATION_EPSILON"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
