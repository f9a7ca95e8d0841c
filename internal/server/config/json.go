package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/afterword/vaultword/internal/flagx"
	"github.com/afterword/vaultword/internal/timex"
)

// JsonConfig is the JSON-file view of Config. Duration fields use
// timex.Duration so both "10s" strings and integer nanoseconds parse.
// Empty fields are skipped during the overlay.
type JsonConfig struct {
	EndpointAddr      string         `json:"endpoint_addr"`
	DatabaseDSN       string         `json:"database_dsn"`
	ServerSecret      string         `json:"server_secret"`
	IdentityBaseURL   string         `json:"identity_base_url"`
	IdentityAnonKey   string         `json:"identity_anon_key"`
	IdentityJWTSecret string         `json:"identity_jwt_secret"`
	BillingBaseURL    string         `json:"billing_base_url"`
	BillingAPISecret  string         `json:"billing_api_secret"`
	EntitlementName   string         `json:"entitlement_name"`
	OutboundTimeout   timex.Duration `json:"outbound_timeout"`
	RetentionWindow   timex.Duration `json:"retention_window"`
	SweepInterval     timex.Duration `json:"sweep_interval"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
}

// parseJson overlays Config with values from a JSON file named by the
// -c or -config flags. When neither flag is present nothing is loaded.
// An unreadable or invalid file panics: a config file that was asked
// for but cannot be used is a startup fault.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlayString(&config.EndpointAddr, c.EndpointAddr)
	overlayString(&config.DatabaseDSN, c.DatabaseDSN)
	overlayString(&config.ServerSecret, c.ServerSecret)
	overlayString(&config.IdentityBaseURL, c.IdentityBaseURL)
	overlayString(&config.IdentityAnonKey, c.IdentityAnonKey)
	overlayString(&config.IdentityJWTSecret, c.IdentityJWTSecret)
	overlayString(&config.BillingBaseURL, c.BillingBaseURL)
	overlayString(&config.BillingAPISecret, c.BillingAPISecret)
	overlayString(&config.EntitlementName, c.EntitlementName)
	overlayDuration(&config.OutboundTimeout, time.Duration(c.OutboundTimeout.Duration))
	overlayDuration(&config.RetentionWindow, time.Duration(c.RetentionWindow.Duration))
	overlayDuration(&config.SweepInterval, time.Duration(c.SweepInterval.Duration))
	overlayString(&config.S3RootUser, c.S3RootUser)
	overlayString(&config.S3RootPassword, c.S3RootPassword)
	overlayString(&config.S3Bucket, c.S3Bucket)
	overlayString(&config.S3Region, c.S3Region)
	overlayString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func overlayString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overlayDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
