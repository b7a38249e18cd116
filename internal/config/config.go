// Package config loads the application configuration from, in order of
// precedence: OSM_* environment variables, a .env file in the working
// directory, a yaml config file at the XDG config path, and built-in
// defaults. A missing config file is not an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"osmedit/internal/logging"

	"github.com/adrg/xdg"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const AppName = "osmedit" // application name used for config directory

// Config holds all settings for the OSM edit server.
type Config struct {
	// OSM API endpoints. The dev API is a sandbox; keep UseDevAPI true
	// until edits have been reviewed against it.
	APIBase    string `yaml:"api_base" env:"OSM_API_BASE"`
	DevAPIBase string `yaml:"dev_api_base" env:"OSM_DEV_API_BASE"`
	UseDevAPI  bool   `yaml:"use_dev_api" env:"OSM_USE_DEV_API"`

	// OAuth 2.0 client settings. The flow itself is delegated to
	// golang.org/x/oauth2; these only identify the registered client.
	OAuthClientID     string `yaml:"oauth_client_id" env:"OSM_OAUTH_CLIENT_ID"`
	OAuthClientSecret string `yaml:"oauth_client_secret" env:"OSM_OAUTH_CLIENT_SECRET"`
	OAuthRedirectURI  string `yaml:"oauth_redirect_uri" env:"OSM_OAUTH_REDIRECT_URI"`

	// External read-only services.
	OverpassAPIBase  string `yaml:"overpass_api_base" env:"OSM_OVERPASS_API_BASE"`
	NominatimAPIBase string `yaml:"nominatim_api_base" env:"OSM_NOMINATIM_API_BASE"`

	// Server identification.
	ServerName    string `yaml:"server_name" env:"OSM_MCP_SERVER_NAME"`
	ServerVersion string `yaml:"server_version" env:"OSM_MCP_SERVER_VERSION"`
	UserAgent     string `yaml:"user_agent" env:"OSM_USER_AGENT"`

	// HTTP facade.
	HTTPAddr   string `yaml:"http_addr" env:"OSM_HTTP_ADDR"`
	HTTPAPIKey string `yaml:"http_api_key" env:"OSM_HTTP_API_KEY"`

	// Changeset defaults.
	DefaultChangesetComment   string `yaml:"default_changeset_comment" env:"OSM_DEFAULT_CHANGESET_COMMENT"`
	DefaultChangesetCreatedBy string `yaml:"default_changeset_created_by" env:"OSM_DEFAULT_CHANGESET_CREATED_BY"`
	MaxChangesetSize          int    `yaml:"max_changeset_size" env:"OSM_MAX_CHANGESET_SIZE"`

	// TagStandardsFile is the JSON corpus consumed by the tag standards
	// store. Absence is not fatal; the store falls back to its built-in
	// table.
	TagStandardsFile string `yaml:"tag_standards_file" env:"OSM_TAG_STANDARDS_FILE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		APIBase:                   "https://api.openstreetmap.org/api/0.6",
		DevAPIBase:                "https://master.apis.dev.openstreetmap.org/api/0.6",
		UseDevAPI:                 true,
		OAuthRedirectURI:          "https://localhost:8080/callback",
		OverpassAPIBase:           "https://overpass-api.de/api/interpreter",
		NominatimAPIBase:          "https://nominatim.openstreetmap.org",
		ServerName:                AppName,
		ServerVersion:             "0.1.0",
		UserAgent:                 "osmedit/0.1.0",
		HTTPAddr:                  ":8000",
		DefaultChangesetComment:   "Edited via osmedit",
		DefaultChangesetCreatedBy: "osmedit/0.1.0",
		MaxChangesetSize:          50,
		TagStandardsFile:          filepath.Join("data", "osm_tag_standards.json"),
	}
}

// ConfigPath returns the standard config file path for the current platform.
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load builds the effective configuration. Each layer only overrides what it
// sets: defaults, then the yaml file (if present), then .env, then process
// environment.
func Load() (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := ConfigPath()
	if _, err := os.Stat(path); err == nil {
		if err := loadFileInto(&cfg, path); err != nil {
			return nil, err
		}
		logging.Debug("Loaded config file", "path", path)
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	return &cfg, nil
}

// LoadFrom loads config from a specific yaml file over the defaults,
// then applies the environment. Used by tests and the --config flag.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := loadFileInto(&cfg, path); err != nil {
		return nil, err
	}
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}
	return &cfg, nil
}

func loadFileInto(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Save writes the config to the standard location.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Restrictive permissions: the file may carry the OAuth client secret.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// EffectiveAPIBase returns the API base respecting the dev switch.
func (c *Config) EffectiveAPIBase() string {
	if c.UseDevAPI {
		return c.DevAPIBase
	}
	return c.APIBase
}

// KeyringService names the keyring entry for the active API environment, so
// dev and prod tokens never mix.
func (c *Config) KeyringService() string {
	if c.UseDevAPI {
		return AppName + "-dev"
	}
	return AppName + "-prod"
}
