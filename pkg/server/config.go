package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the structure of the server config file
type TOMLConfig struct {
	Server       ServerSection       `toml:"server"`
	Limits       LimitsSection       `toml:"limits"`
	Verification VerificationSection `toml:"verification"`
}

type ServerSection struct {
	HTTPPort     int    `toml:"http_port"`
	DatabasePath string `toml:"database_path"`
	BaseURL      string `toml:"base_url"`
}

type LimitsSection struct {
	PerPage                 int `toml:"per_page"`
	MaxMessageLength        int `toml:"max_message_length"`
	MaxNicknameLength       int `toml:"max_nickname_length"`
	HeartbeatTimeoutSeconds int `toml:"heartbeat_timeout_seconds"`
}

type VerificationSection struct {
	Required bool `toml:"required"`
}

// DefaultTOMLConfig returns the default TOML configuration
func DefaultTOMLConfig() TOMLConfig {
	return TOMLConfig{
		Server: ServerSection{
			HTTPPort:     8080,
			DatabasePath: "~/.roomchat/roomchat.db",
			BaseURL:      "http://localhost:8080",
		},
		Limits: LimitsSection{
			PerPage:                 10,
			MaxMessageLength:        4096,
			MaxNicknameLength:       64,
			HeartbeatTimeoutSeconds: 90,
		},
		Verification: VerificationSection{
			Required: true,
		},
	}
}

// LoadConfig loads configuration from a TOML file, creates default if not found,
// and applies environment variable overrides
func LoadConfig(path string) (TOMLConfig, error) {
	// Expand ~ in path
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return TOMLConfig{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, create default config
		config := DefaultTOMLConfig()
		if err := writeDefaultConfig(path); err != nil {
			// If we can't write, just return defaults without error
			// (might be a permissions issue, but we can still run)
			return applyEnvOverrides(config), nil
		}
		return applyEnvOverrides(config), nil
	}

	// Load from file
	config := DefaultTOMLConfig()
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	return applyEnvOverrides(config), nil
}

// applyEnvOverrides applies environment variable overrides to the config
// Environment variables follow the pattern: ROOMCHAT_SECTION_KEY
// Example: ROOMCHAT_SERVER_HTTP_PORT=9090
func applyEnvOverrides(config TOMLConfig) TOMLConfig {
	// Server section
	if val := os.Getenv("ROOMCHAT_SERVER_HTTP_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			config.Server.HTTPPort = port
		}
	}
	if val := os.Getenv("ROOMCHAT_SERVER_DATABASE_PATH"); val != "" {
		config.Server.DatabasePath = val
	}
	if val := os.Getenv("ROOMCHAT_SERVER_BASE_URL"); val != "" {
		config.Server.BaseURL = val
	}

	// Limits section
	if val := os.Getenv("ROOMCHAT_LIMITS_PER_PAGE"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Limits.PerPage = limit
		}
	}
	if val := os.Getenv("ROOMCHAT_LIMITS_MAX_MESSAGE_LENGTH"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Limits.MaxMessageLength = limit
		}
	}
	if val := os.Getenv("ROOMCHAT_LIMITS_MAX_NICKNAME_LENGTH"); val != "" {
		if limit, err := strconv.Atoi(val); err == nil {
			config.Limits.MaxNicknameLength = limit
		}
	}
	if val := os.Getenv("ROOMCHAT_LIMITS_HEARTBEAT_TIMEOUT_SECONDS"); val != "" {
		if timeout, err := strconv.Atoi(val); err == nil {
			config.Limits.HeartbeatTimeoutSeconds = timeout
		}
	}

	// Verification section
	if val := os.Getenv("ROOMCHAT_VERIFICATION_REQUIRED"); val != "" {
		if required, err := strconv.ParseBool(val); err == nil {
			config.Verification.Required = required
		}
	}

	return config
}

// writeDefaultConfig writes the default config to a file with all options documented
func writeDefaultConfig(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	content := `# Roomchat Server Configuration
# This file was auto-generated with default values
# Restart the server for changes to take effect
#
# Environment variables can override these settings:
# ROOMCHAT_SECTION_KEY (e.g., ROOMCHAT_SERVER_HTTP_PORT=9090)

[server]
# Port for the HTTP server
http_port = 8080

# Path to SQLite database file
database_path = "~/.roomchat/roomchat.db"

# Public base URL, used in verification links
base_url = "http://localhost:8080"

[limits]
# Messages per history page
per_page = 10

# Maximum message length in bytes
max_message_length = 4096

# Maximum nickname length in characters
max_nickname_length = 64

# Clients with no heartbeat for this long are dropped from the active count
heartbeat_timeout_seconds = 90

[verification]
# Require devices to verify their email address before their first post.
# When disabled any well-formed send is accepted immediately.
required = true
`

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetDatabasePath returns the database path with ~ expanded
func (c *TOMLConfig) GetDatabasePath() (string, error) {
	path := c.Server.DatabasePath
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}
	return path, nil
}
