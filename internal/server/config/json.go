package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/userval/internal/flagx"
	"github.com/dmitrijs2005/userval/internal/timex"
)

// JsonConfig mirrors Config for JSON unmarshalling. Interval fields use
// timex.Duration, which accepts both strings such as "2m" and integer
// nanoseconds. Values are copied into the runtime Config afterwards.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration"`
	OTPValidityDuration          timex.Duration `json:"otp_validity_duration"`
	SMTPHost                     string         `json:"smtp_host"`
	SMTPPort                     int            `json:"smtp_port"`
	SMTPUsername                 string         `json:"smtp_username"`
	SMTPPassword                 string         `json:"smtp_password"`
	EmailFrom                    string         `json:"email_from"`
	CORSAllowedOrigin            string         `json:"cors_allowed_origin"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags, if any. Fields absent from the file keep their
// current values.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.SessionTokenValidityDuration.Duration != 0 {
		config.SessionTokenValidityDuration = time.Duration(c.SessionTokenValidityDuration.Duration)
	}
	if c.OTPValidityDuration.Duration != 0 {
		config.OTPValidityDuration = time.Duration(c.OTPValidityDuration.Duration)
	}
	if c.SMTPHost != "" {
		config.SMTPHost = c.SMTPHost
	}
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	if c.SMTPUsername != "" {
		config.SMTPUsername = c.SMTPUsername
	}
	if c.SMTPPassword != "" {
		config.SMTPPassword = c.SMTPPassword
	}
	if c.EmailFrom != "" {
		config.EmailFrom = c.EmailFrom
	}
	if c.CORSAllowedOrigin != "" {
		config.CORSAllowedOrigin = c.CORSAllowedOrigin
	}
	return nil
}
