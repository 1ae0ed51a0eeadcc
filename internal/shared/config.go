package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// ConfigEnvVar overrides the default config path when set.
const ConfigEnvVar = "MELON_CONFIG"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
	YouTube     YouTubeAPIConfig  `toml:"youtube"`
	Database    DatabaseConfig    `toml:"database"`
	HTTP        HTTPConfig        `toml:"http"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains the public client registration used for the PKCE flow.
//
// There is no client secret: the verifier stands in for it.
type SpotifyConfig struct {
	ClientID    string   `toml:"client_id"`
	RedirectURI string   `toml:"redirect_uri"`
	Scopes      []string `toml:"scopes"`
}

// YouTubeConfig contains YouTube Data API credentials.
type YouTubeConfig struct {
	APIKey string `toml:"api_key"`
}

// SpotifyAPIConfig points the clients at the accounts service and Web API.
type SpotifyAPIConfig struct {
	APIURL          string  `toml:"api_url"`
	AuthURL         string  `toml:"auth_url"`
	TokenURL        string  `toml:"token_url"`
	SearchRate      float64 `toml:"search_rate"`
	SearchCacheSize int     `toml:"search_cache_size"`
}

// YouTubeAPIConfig points the Data API client at its endpoint.
type YouTubeAPIConfig struct {
	APIURL string `toml:"api_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// HTTPConfig contains outbound HTTP client settings.
type HTTPConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the client timeout, defaulting to 30 seconds.
func (h HTTPConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// ConfigPath resolves the config file location: the flag value if set, then $MELON_CONFIG, then "config.toml".
func ConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(ConfigEnvVar); env != "" {
		return env
	}
	return "config.toml"
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes the config as TOML and writes it to path, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ValidateSpotify checks the settings the authenticator and Web API client need.
func (c *Config) ValidateSpotify() error {
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientID == "your_spotify_client_id" {
		return fmt.Errorf("%w: credentials.spotify.client_id", ErrMissingCredentials)
	}

	u, err := url.Parse(c.Credentials.Spotify.RedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: credentials.spotify.redirect_uri %q", ErrInvalidConfig, c.Credentials.Spotify.RedirectURI)
	}

	for name, raw := range map[string]string{
		"spotify.api_url":   c.Spotify.APIURL,
		"spotify.auth_url":  c.Spotify.AuthURL,
		"spotify.token_url": c.Spotify.TokenURL,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("%w: %s %q", ErrInvalidConfig, name, raw)
		}
	}
	return nil
}

// ValidateYouTube checks that a Data API key is configured.
func (c *Config) ValidateYouTube() error {
	if c.Credentials.YouTube.APIKey == "" || c.Credentials.YouTube.APIKey == "your_youtube_api_key" {
		return fmt.Errorf("%w: credentials.youtube.api_key", ErrMissingCredentials)
	}
	return nil
}
