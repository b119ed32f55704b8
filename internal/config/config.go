package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Setting keys. Each key is bound to the environment variable in envBindings.
const (
	KeyAddr            = "addr"
	KeyHost            = "host"
	KeyClientID        = "client_id"
	KeyClientSecret    = "client_secret"
	KeyWarehouseID     = "warehouse_id"
	KeyQuery           = "sql_query"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyVerifyTimeout   = "verify_timeout"
	KeyQueryTimeout    = "query_timeout"
	KeyDirectoryScopes = "directory_scopes"
	KeyOIDCDiscovery   = "oidc_discovery"
	KeyCORSOrigins     = "cors_origins"
)

// DefaultQuery runs when SQL_QUERY is unset.
const DefaultQuery = "SELECT * FROM samples.nyctaxi.trips LIMIT 5"

var envBindings = map[string]string{
	KeyAddr:            "ADDR",
	KeyHost:            "DATABRICKS_HOST",
	KeyClientID:        "DATABRICKS_CLIENT_ID",
	KeyClientSecret:    "DATABRICKS_CLIENT_SECRET",
	KeyWarehouseID:     "DATABRICKS_WAREHOUSE_ID",
	KeyQuery:           "SQL_QUERY",
	KeyLogLevel:        "LOG_LEVEL",
	KeyLogFormat:       "LOG_FORMAT",
	KeyVerifyTimeout:   "VERIFY_TIMEOUT",
	KeyQueryTimeout:    "QUERY_TIMEOUT",
	KeyDirectoryScopes: "DIRECTORY_SCOPES",
	KeyOIDCDiscovery:   "OIDC_DISCOVERY",
	KeyCORSOrigins:     "CORS_ORIGINS",
}

// Config holds the gateway settings. It is read once at startup and never
// mutated afterwards.
type Config struct {
	Addr string

	// Identity provider / workspace host, with or without scheme.
	Host string

	// Service identity used for directory search and background queries.
	ClientID     string
	ClientSecret string

	WarehouseID string
	Query       string

	LogLevel  string
	LogFormat string // "text" or "json"

	VerifyTimeout time.Duration
	QueryTimeout  time.Duration

	DirectoryScopes []string
	// OIDCDiscovery resolves the token endpoint from {host}/oidc instead of
	// using the fixed {host}/oidc/v1/token path.
	OIDCDiscovery bool

	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS handling.
	CORSOrigins []string
}

// NewViper returns a viper instance with defaults and environment bindings.
// Flags may be bound onto the same keys by the caller.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyQuery, DefaultQuery)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyVerifyTimeout, "15s")
	v.SetDefault(KeyQueryTimeout, "60s")
	v.SetDefault(KeyDirectoryScopes, "scim")
	v.SetDefault(KeyOIDCDiscovery, false)
	for key, env := range envBindings {
		// BindEnv only fails when called without arguments.
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load reads configuration from v. Identity settings (host, client
// credentials, warehouse) are optional here; the components that need them
// report a MissingSettingError on first use.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Addr:            v.GetString(KeyAddr),
		Host:            strings.TrimSpace(v.GetString(KeyHost)),
		ClientID:        strings.TrimSpace(v.GetString(KeyClientID)),
		ClientSecret:    v.GetString(KeyClientSecret),
		WarehouseID:     strings.TrimSpace(v.GetString(KeyWarehouseID)),
		Query:           v.GetString(KeyQuery),
		LogLevel:        strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:       strings.ToLower(v.GetString(KeyLogFormat)),
		DirectoryScopes: strings.Fields(v.GetString(KeyDirectoryScopes)),
		OIDCDiscovery:   v.GetBool(KeyOIDCDiscovery),
		CORSOrigins:     splitList(v.GetString(KeyCORSOrigins)),
	}

	var err error
	if cfg.VerifyTimeout, err = parseTimeout(v, KeyVerifyTimeout); err != nil {
		return nil, err
	}
	if cfg.QueryTimeout, err = parseTimeout(v, KeyQueryTimeout); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("%s is required", envBindings[KeyAddr])
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("%s must be text or json, got %q", envBindings[KeyLogFormat], cfg.LogFormat)
	}

	return cfg, nil
}

// splitList splits a comma or space separated setting.
func splitList(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
}

func parseTimeout(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", envBindings[key], err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", envBindings[key], raw)
	}
	return d, nil
}

// BaseURL returns the identity provider base URL without a trailing slash.
// Hosts given without a scheme are assumed to be https.
func (c *Config) BaseURL() (string, error) {
	if c.Host == "" {
		return "", &MissingSettingError{Setting: envBindings[KeyHost]}
	}
	host := strings.TrimRight(c.Host, "/")
	if !strings.HasPrefix(host, "https://") && !strings.HasPrefix(host, "http://") {
		host = "https://" + host
	}
	return host, nil
}

// ServerHostname returns the bare host name used by the SQL driver.
func (c *Config) ServerHostname() (string, error) {
	if c.Host == "" {
		return "", &MissingSettingError{Setting: envBindings[KeyHost]}
	}
	host := strings.TrimPrefix(c.Host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/"), nil
}

// HTTPPath returns the SQL warehouse endpoint path.
func (c *Config) HTTPPath() (string, error) {
	if c.WarehouseID == "" {
		return "", &MissingSettingError{Setting: envBindings[KeyWarehouseID]}
	}
	return "/sql/1.0/warehouses/" + c.WarehouseID, nil
}

// ServiceConfigured reports whether a service identity can be used.
func (c *Config) ServiceConfigured() bool {
	return c.Host != "" && c.ClientID != "" && c.ClientSecret != ""
}

// RequireService returns a MissingSettingError naming the first missing
// service identity setting.
func (c *Config) RequireService() error {
	switch {
	case c.Host == "":
		return &MissingSettingError{Setting: envBindings[KeyHost]}
	case c.ClientID == "":
		return &MissingSettingError{Setting: envBindings[KeyClientID]}
	case c.ClientSecret == "":
		return &MissingSettingError{Setting: envBindings[KeyClientSecret]}
	}
	return nil
}
