package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with VAULTWORD_* environment variables. An
// optional .env file in the working directory is merged first; real
// environment variables take precedence over the file.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, key string) {
		if v, ok := os.LookupEnv(key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString(&config.EndpointAddr, "VAULTWORD_ADDR")
	setString(&config.DatabaseDSN, "VAULTWORD_DATABASE_DSN")
	setString(&config.ServerSecret, "VAULTWORD_SERVER_SECRET")
	setString(&config.IdentityBaseURL, "VAULTWORD_IDENTITY_URL")
	setString(&config.IdentityAnonKey, "VAULTWORD_IDENTITY_ANON_KEY")
	setString(&config.IdentityJWTSecret, "VAULTWORD_IDENTITY_JWT_SECRET")
	setString(&config.BillingBaseURL, "VAULTWORD_BILLING_URL")
	setString(&config.BillingAPISecret, "VAULTWORD_BILLING_SECRET")
	setString(&config.EntitlementName, "VAULTWORD_ENTITLEMENT_NAME")
	setDuration(&config.OutboundTimeout, "VAULTWORD_OUTBOUND_TIMEOUT")
	setDuration(&config.RetentionWindow, "VAULTWORD_RETENTION_WINDOW")
	setDuration(&config.SweepInterval, "VAULTWORD_SWEEP_INTERVAL")
	setString(&config.S3RootUser, "VAULTWORD_S3_ROOT_USER")
	setString(&config.S3RootPassword, "VAULTWORD_S3_ROOT_PASSWORD")
	setString(&config.S3Bucket, "VAULTWORD_S3_BUCKET")
	setString(&config.S3Region, "VAULTWORD_S3_REGION")
	setString(&config.S3BaseEndpoint, "VAULTWORD_S3_BASE_ENDPOINT")
}
