package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./monthlify.db" {
			t.Errorf("expected database path ./monthlify.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.API.BaseURL != "http://127.0.0.1:5000" {
			t.Errorf("expected api base URL http://127.0.0.1:5000, got %s", config.API.BaseURL)
		}

		if config.API.CookieName != "spotify_access_token" {
			t.Errorf("expected cookie name spotify_access_token, got %s", config.API.CookieName)
		}

		if config.Store.Driver != "memory" {
			t.Errorf("expected memory store driver, got %s", config.Store.Driver)
		}

		if config.Credentials.Spotify.Token() != nil {
			t.Error("expected no stored token in default config")
		}
	})

	t.Run("Addresses And Durations", func(t *testing.T) {
		config := DefaultConfig()

		if got := config.Server.Addr(); got != "127.0.0.1:3000" {
			t.Errorf("expected frontend addr 127.0.0.1:3000, got %s", got)
		}
		if got := config.API.Addr(); got != "127.0.0.1:5000" {
			t.Errorf("expected api addr 127.0.0.1:5000, got %s", got)
		}
		if got := config.API.SessionTTL(); got != 720*time.Hour {
			t.Errorf("expected session TTL 720h, got %v", got)
		}

		config.Store.ResultTTLMinutes = 0
		if got := config.Store.ResultTTL(); got != time.Hour {
			t.Errorf("expected fallback result TTL 1h, got %v", got)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
host = "0.0.0.0"
port = 8080

[api]
base_url = "http://backend:9000"

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:3000/callback"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.API.BaseURL != "http://backend:9000" {
			t.Errorf("expected api base URL override, got %s", config.API.BaseURL)
		}
		if config.API.CookieName != "spotify_access_token" {
			t.Errorf("expected cookie name to keep default, got %s", config.API.CookieName)
		}
		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
	})

	t.Run("LoadConfig With Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[database\npath = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("SaveConfig Round Trips Tokens", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()

		expiry := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
		if err := config.Credentials.Spotify.Update(&oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry}); err != nil {
			t.Fatalf("failed to update token: %v", err)
		}

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		token := loaded.Credentials.Spotify.Token()
		if token == nil {
			t.Fatal("expected token after reload")
		}
		if token.AccessToken != "access" || token.RefreshToken != "refresh" {
			t.Errorf("unexpected token %+v", token)
		}
		if !token.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, token.Expiry)
		}
	})

	t.Run("Update Keeps Refresh Token", func(t *testing.T) {
		sc := SpotifyConfig{RefreshToken: "old-refresh"}
		if err := sc.Update(&oauth2.Token{AccessToken: "new-access"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sc.RefreshToken != "old-refresh" {
			t.Errorf("expected refresh token to be kept, got %s", sc.RefreshToken)
		}

		if err := sc.Update(nil); err == nil {
			t.Error("expected error for nil token")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "env-client")
		t.Setenv("MONTHLIFY_API_URL", "http://env-api:1234")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Credentials.Spotify.ClientID != "env-client" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.API.BaseURL != "http://env-api:1234" {
			t.Errorf("expected env api url, got %s", config.API.BaseURL)
		}
	})

	t.Run("LoadEnv", func(t *testing.T) {
		dir := t.TempDir()
		envPath := filepath.Join(dir, ".env")
		if err := os.WriteFile(envPath, []byte("MONTHLIFY_TEST_VALUE=from-dotenv\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Cleanup(func() { os.Unsetenv("MONTHLIFY_TEST_VALUE") })

		if err := LoadEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("MONTHLIFY_TEST_VALUE"); got != "from-dotenv" {
			t.Errorf("expected value from .env, got %q", got)
		}
	})
}
