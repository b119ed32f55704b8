package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// DefaultGatewayURL is used when no gateway URL is configured.
const DefaultGatewayURL = "http://localhost:8080"

// EnvConfigDir overrides the directory the token cache lives in.
const EnvConfigDir = "LAKEGATE_CONFIG_DIR"

// Tokens within expiryLeeway of their expiry count as expired.
const expiryLeeway = 30 * time.Second

const tokenCacheFile = "tokens.json"

// Config holds CLI configuration.
type Config struct {
	GatewayURL string `json:"gateway_url"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{GatewayURL: DefaultGatewayURL}
}

// TokenCache is the service identity token saved by login.
type TokenCache struct {
	AccessToken string    `json:"access_token"`
	Expiry      time.Time `json:"expiry,omitzero"`
	Host        string    `json:"host"`
	ClientID    string    `json:"client_id"`
	Scopes      []string  `json:"scopes,omitempty"`
}

// Valid reports whether the cached token can still be sent at now.
func (c *TokenCache) Valid(now time.Time) bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return c.Expiry.IsZero() || now.Add(expiryLeeway).Before(c.Expiry)
}

// tokenCachePath resolves the cache file, creating its directory.
// $LAKEGATE_CONFIG_DIR wins over ~/.config/lakegate.
func tokenCachePath() (string, error) {
	dir := os.Getenv(EnvConfigDir)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate home directory: %w", err)
		}
		dir = filepath.Join(home, ".config", "lakegate")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return filepath.Join(dir, tokenCacheFile), nil
}

// LoadTokenCache reads the cached token. A missing cache yields an error
// matching fs.ErrNotExist.
func LoadTokenCache() (*TokenCache, error) {
	path, err := tokenCachePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token cache: %w", err)
	}
	var cache TokenCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("decode token cache %s: %w", path, err)
	}
	return &cache, nil
}

// SaveTokenCache replaces the cache file atomically, readable by the owner
// only.
func SaveTokenCache(cache *TokenCache) error {
	path, err := tokenCachePath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), tokenCacheFile+".*")
	if err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// ClearTokenCache removes the cached token. Clearing an absent cache is not
// an error.
func ClearTokenCache() error {
	path, err := tokenCachePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
