package config

// EnvPrefix is intentionally empty: every variable name already carries the
// MARCAROMAS_ prefix in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	BillingFailureActionPause  = "pause"
	BillingFailureActionCancel = "cancel"
)

const (
	EnvAppEnv   = "MARCAROMAS_APP_ENV"
	EnvPort     = "MARCAROMAS_APP_PORT"
	EnvLogLevel = "MARCAROMAS_LOG_LEVEL"

	EnvDBDSN  = "MARCAROMAS_DB_DSN"
	EnvDBHost = "MARCAROMAS_DB_HOST"
	EnvDBUser = "MARCAROMAS_DB_USER"
	EnvDBName = "MARCAROMAS_DB_NAME"

	EnvRedisURL = "MARCAROMAS_REDIS_URL"

	EnvJWTSecret              = "MARCAROMAS_JWT_SECRET"
	EnvJWTIssuer              = "MARCAROMAS_JWT_ISSUER"
	EnvJWTExpMins             = "MARCAROMAS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "MARCAROMAS_REFRESH_TOKEN_TTL_MINUTES"

	EnvMercadoPagoAccessToken   = "MARCAROMAS_MERCADOPAGO_ACCESS_TOKEN"
	EnvMercadoPagoWebhookSecret = "MARCAROMAS_MERCADOPAGO_WEBHOOK_SECRET"

	EnvGCPProjectID = "MARCAROMAS_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic       = "MARCAROMAS_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub         = "MARCAROMAS_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubBillingTopic      = "MARCAROMAS_PUBSUB_BILLING_TOPIC"
	EnvPubSubBillingSub        = "MARCAROMAS_PUBSUB_BILLING_SUBSCRIPTION"
	EnvPubSubNotificationSub   = "MARCAROMAS_PUBSUB_NOTIFICATION_SUBSCRIPTION"

	EnvBillingMaxFailures   = "MARCAROMAS_BILLING_MAX_PAYMENT_FAILURES"
	EnvBillingFailureAction = "MARCAROMAS_BILLING_FAILURE_ACTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
