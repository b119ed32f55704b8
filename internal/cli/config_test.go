package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GatewayURL != DefaultGatewayURL {
		t.Errorf("expected GatewayURL %q, got %q", DefaultGatewayURL, cfg.GatewayURL)
	}
}

func withTempHome(t *testing.T) {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("USERPROFILE", tmpDir)
	t.Setenv("HOME", tmpDir)
	t.Setenv(EnvConfigDir, "")
}

func TestSaveAndLoadTokenCache(t *testing.T) {
	withTempHome(t)

	expiry := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cache := &TokenCache{
		AccessToken: "access-token-value",
		Expiry:      expiry,
		Host:        "https://adb-1.azuredatabricks.net",
		ClientID:    "sp-client",
		Scopes:      []string{"all-apis"},
	}

	if err := SaveTokenCache(cache); err != nil {
		t.Fatalf("SaveTokenCache failed: %v", err)
	}

	loaded, err := LoadTokenCache()
	if err != nil {
		t.Fatalf("LoadTokenCache failed: %v", err)
	}

	if loaded.AccessToken != cache.AccessToken {
		t.Errorf("AccessToken: got %q, want %q", loaded.AccessToken, cache.AccessToken)
	}
	if !loaded.Expiry.Equal(expiry) {
		t.Errorf("Expiry: got %v, want %v", loaded.Expiry, expiry)
	}
	if loaded.ClientID != cache.ClientID {
		t.Errorf("ClientID: got %q, want %q", loaded.ClientID, cache.ClientID)
	}
	if len(loaded.Scopes) != 1 || loaded.Scopes[0] != "all-apis" {
		t.Errorf("Scopes: got %v", loaded.Scopes)
	}
}

func TestLoadTokenCache_NotExists(t *testing.T) {
	withTempHome(t)

	_, err := LoadTokenCache()
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist when tokens.json does not exist, got %v", err)
	}
}

func TestTokenCache_ConfigDirOverride(t *testing.T) {
	withTempHome(t)
	dir := filepath.Join(t.TempDir(), "lakegate-conf")
	t.Setenv(EnvConfigDir, dir)

	if err := SaveTokenCache(&TokenCache{AccessToken: "token"}); err != nil {
		t.Fatalf("SaveTokenCache failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "tokens.json"))
	if err != nil {
		t.Fatalf("cache not written to override dir: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("cache mode = %v, want 0600", info.Mode().Perm())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only tokens.json in %s, found %d entries", dir, len(entries))
	}
}

func TestLoadTokenCache_Corrupt(t *testing.T) {
	withTempHome(t)
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	if err := os.WriteFile(filepath.Join(dir, "tokens.json"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadTokenCache(); err == nil {
		t.Error("expected decode error for a corrupt cache")
	}
}

func TestClearTokenCache(t *testing.T) {
	withTempHome(t)

	if err := SaveTokenCache(&TokenCache{AccessToken: "token"}); err != nil {
		t.Fatalf("SaveTokenCache failed: %v", err)
	}

	if err := ClearTokenCache(); err != nil {
		t.Fatalf("ClearTokenCache failed: %v", err)
	}

	_, err := LoadTokenCache()
	if err == nil {
		t.Error("expected error after clearing token cache, got nil")
	}
}

func TestClearTokenCache_NotExists(t *testing.T) {
	withTempHome(t)

	if err := ClearTokenCache(); err != nil {
		t.Errorf("ClearTokenCache on missing file should not error, got: %v", err)
	}
}

func TestTokenCache_Valid(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		cache *TokenCache
		want  bool
	}{
		{"nil", nil, false},
		{"empty token", &TokenCache{}, false},
		{"no expiry", &TokenCache{AccessToken: "t"}, true},
		{"future expiry", &TokenCache{AccessToken: "t", Expiry: now.Add(time.Minute)}, true},
		{"inside leeway", &TokenCache{AccessToken: "t", Expiry: now.Add(10 * time.Second)}, false},
		{"expired", &TokenCache{AccessToken: "t", Expiry: now.Add(-time.Minute)}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cache.Valid(now); got != tc.want {
				t.Errorf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}
