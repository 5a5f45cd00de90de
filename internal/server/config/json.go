package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/apotek/internal/flagx"
	"github.com/dmitrijs2005/apotek/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Interval
// fields use timex.Duration, so both "5s" and integer nanoseconds parse.
type JsonConfig struct {
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC      string         `json:"endpoint_addr_grpc"`
	Backend               string         `json:"backend"`
	BackendURL            string         `json:"backend_url"`
	AnonKey               string         `json:"anon_key"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	SessionCheckTimeout   timex.Duration `json:"session_check_timeout"`
}

// parseJson overlays values from the file named by -c or -config. Keys
// missing from the file keep their current value. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.Backend, c.Backend)
	setString(&config.BackendURL, c.BackendURL)
	setString(&config.AnonKey, c.AnonKey)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.SessionCheckTimeout.Duration != 0 {
		config.SessionCheckTimeout = c.SessionCheckTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
