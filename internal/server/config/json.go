package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/MobilityFirst/GNS-sub011/internal/flagx"
	"github.com/MobilityFirst/GNS-sub011/internal/timex"
)

// JsonDirectory mirrors Directory for JSON files. Pointers distinguish an
// explicit false/zero from an omitted key.
type JsonDirectory struct {
	EmailVerificationEnabled *bool          `json:"email_verification_enabled"`
	SignatureAuthEnabled     *bool          `json:"signature_auth_enabled"`
	MaxGuidsPerAccount       *int           `json:"max_guids_per_account"`
	MaxAliasesPerAccount     *int           `json:"max_aliases_per_account"`
	VerificationCodeTTL      timex.Duration `json:"verification_code_ttl"`
	StaleCommandWindow       timex.Duration `json:"stale_command_window"`
	PublicKeyCacheTTL        timex.Duration `json:"public_key_cache_ttl"`
	ApplicationName          string         `json:"application_name"`
	VerificationURLBase      string         `json:"verification_url_base"`
}

// JsonConfig is the DTO read from the JSON configuration file. Durations use
// timex.Duration so both "90s" and integer nanoseconds are accepted. Only
// keys present in the file override the current values.
type JsonConfig struct {
	EndpointAddrGRPC          string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP          string         `json:"endpoint_addr_http"`
	StoreBackend              string         `json:"store_backend"`
	DatabaseDSN               string         `json:"database_dsn"`
	RemoteStoreAddr           string         `json:"remote_store_addr"`
	SecretKey                 string         `json:"secret_key"`
	NodeID                    string         `json:"node_id"`
	NodeTokenValidityDuration timex.Duration `json:"node_token_validity_duration"`
	S3RootUser                string         `json:"s3_root_user"`
	S3RootPassword            string         `json:"s3_root_password"`
	S3Bucket                  string         `json:"s3_bucket"`
	S3Region                  string         `json:"s3_region"`
	S3BaseEndpoint            string         `json:"s3_base_endpoint"`
	SMTPAddr                  string         `json:"smtp_addr"`
	SMTPFrom                  string         `json:"smtp_from"`
	SMTPUser                  string         `json:"smtp_user"`
	SMTPPassword              string         `json:"smtp_password"`
	ReconcileInterval         timex.Duration `json:"reconcile_interval"`
	RateLimitPerSecond        float64        `json:"rate_limit_per_second"`
	RateLimitBurst            int            `json:"rate_limit_burst"`
	LogLevel                  string         `json:"log_level"`
	Directory                 JsonDirectory  `json:"directory"`
}

// parseJson loads configuration values from the file named by -c/-config
// into config. Without the flag nothing happens; an unreadable file or
// invalid JSON panics.
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

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.StoreBackend, c.StoreBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.RemoteStoreAddr, c.RemoteStoreAddr)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.NodeID, c.NodeID)
	setDuration(&config.NodeTokenValidityDuration, c.NodeTokenValidityDuration)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.SMTPAddr, c.SMTPAddr)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setDuration(&config.ReconcileInterval, c.ReconcileInterval)
	if c.RateLimitPerSecond != 0 {
		config.RateLimitPerSecond = c.RateLimitPerSecond
	}
	if c.RateLimitBurst != 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}
	setString(&config.LogLevel, c.LogLevel)

	d, jd := &config.Directory, c.Directory
	if jd.EmailVerificationEnabled != nil {
		d.EmailVerificationEnabled = *jd.EmailVerificationEnabled
	}
	if jd.SignatureAuthEnabled != nil {
		d.SignatureAuthEnabled = *jd.SignatureAuthEnabled
	}
	if jd.MaxGuidsPerAccount != nil {
		d.MaxGuidsPerAccount = *jd.MaxGuidsPerAccount
	}
	if jd.MaxAliasesPerAccount != nil {
		d.MaxAliasesPerAccount = *jd.MaxAliasesPerAccount
	}
	setDuration(&d.VerificationCodeTTL, jd.VerificationCodeTTL)
	setDuration(&d.StaleCommandWindow, jd.StaleCommandWindow)
	setDuration(&d.PublicKeyCacheTTL, jd.PublicKeyCacheTTL)
	setString(&d.ApplicationName, jd.ApplicationName)
	setString(&d.VerificationURLBase, jd.VerificationURLBase)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
