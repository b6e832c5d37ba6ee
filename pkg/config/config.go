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
	MercadoPago   MercadoPagoConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Billing       BillingConfig
	Orders        OrdersConfig
	Shipping      ShippingConfig
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
	if err := cfg.Billing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARCAROMAS_APP_ENV" required:"true"`
	Port         string `envconfig:"MARCAROMAS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARCAROMAS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARCAROMAS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MARCAROMAS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MARCAROMAS_DB_DSN"`
	Driver string `envconfig:"MARCAROMAS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MARCAROMAS_DB_HOST"`
	LegacyPort     int    `envconfig:"MARCAROMAS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARCAROMAS_DB_USER"`
	LegacyPassword string `envconfig:"MARCAROMAS_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARCAROMAS_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARCAROMAS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARCAROMAS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARCAROMAS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARCAROMAS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARCAROMAS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARCAROMAS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARCAROMAS_REDIS_ADDR"`
	Password     string        `envconfig:"MARCAROMAS_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARCAROMAS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARCAROMAS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARCAROMAS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARCAROMAS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARCAROMAS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARCAROMAS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"MARCAROMAS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"MARCAROMAS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"MARCAROMAS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"MARCAROMAS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MARCAROMAS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MARCAROMAS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MARCAROMAS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MARCAROMAS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MARCAROMAS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MARCAROMAS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MARCAROMAS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MARCAROMAS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MARCAROMAS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MARCAROMAS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MARCAROMAS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MARCAROMAS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MARCAROMAS_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"MARCAROMAS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookIdempotencyTTL time.Duration `envconfig:"MARCAROMAS_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type MercadoPagoConfig struct {
	AccessToken   string        `envconfig:"MARCAROMAS_MERCADOPAGO_ACCESS_TOKEN" required:"true"`
	WebhookSecret string        `envconfig:"MARCAROMAS_MERCADOPAGO_WEBHOOK_SECRET" required:"true"`
	BaseURL       string        `envconfig:"MARCAROMAS_MERCADOPAGO_BASE_URL" default:"https://api.mercadopago.com"`
	Timeout       time.Duration `envconfig:"MARCAROMAS_MERCADOPAGO_TIMEOUT" default:"10s"`
	MaxRetries    int           `envconfig:"MARCAROMAS_MERCADOPAGO_MAX_RETRIES" default:"2"`
	NotifyURL     string        `envconfig:"MARCAROMAS_MERCADOPAGO_NOTIFY_URL"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MARCAROMAS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MARCAROMAS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MARCAROMAS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"MARCAROMAS_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"MARCAROMAS_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	BillingTopic             string `envconfig:"MARCAROMAS_PUBSUB_BILLING_TOPIC" required:"true"`
	BillingSubscription      string `envconfig:"MARCAROMAS_PUBSUB_BILLING_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"MARCAROMAS_PUBSUB_NOTIFICATION_TOPIC" default:"ma-notification-events"`
	NotificationSubscription string `envconfig:"MARCAROMAS_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"MARCAROMAS_BIGQUERY_DATASET" default:"marcaromas"`
	OrderEventsTable string `envconfig:"MARCAROMAS_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
	BillingTable     string `envconfig:"MARCAROMAS_BIGQUERY_BILLING_TABLE" default:"billing_events"`
}

// BillingConfig carries the subscription billing policy knobs. They are
// injectable so operational changes do not require a deploy.
type BillingConfig struct {
	MaxPaymentFailures int           `envconfig:"MARCAROMAS_BILLING_MAX_PAYMENT_FAILURES" default:"3"`
	FailureAction      string        `envconfig:"MARCAROMAS_BILLING_FAILURE_ACTION" default:"pause"`
	RetryInterval      time.Duration `envconfig:"MARCAROMAS_BILLING_RETRY_INTERVAL" default:"24h"`
	TickInterval       time.Duration `envconfig:"MARCAROMAS_BILLING_TICK_INTERVAL" default:"1h"`
}

func (b BillingConfig) validate() error {
	if b.MaxPaymentFailures < 1 {
		return fmt.Errorf("%s must be >= 1", EnvBillingMaxFailures)
	}
	switch b.FailureAction {
	case BillingFailureActionPause, BillingFailureActionCancel:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvBillingFailureAction, BillingFailureActionPause, BillingFailureActionCancel)
	}
}

type OrdersConfig struct {
	AutoRefundOnCancel bool          `envconfig:"MARCAROMAS_ORDERS_AUTO_REFUND_ON_CANCEL" default:"true"`
	PendingPaymentTTL  time.Duration `envconfig:"MARCAROMAS_ORDERS_PENDING_PAYMENT_TTL" default:"48h"`
	EstimatedDelivery  time.Duration `envconfig:"MARCAROMAS_ORDERS_ESTIMATED_DELIVERY" default:"168h"`
}

type ShippingConfig struct {
	FlatRateCents      int64 `envconfig:"MARCAROMAS_SHIPPING_FLAT_RATE_CENTS" default:"1990"`
	FreeThresholdCents int64 `envconfig:"MARCAROMAS_SHIPPING_FREE_THRESHOLD_CENTS" default:"25000"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MARCAROMAS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MARCAROMAS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MARCAROMAS_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
