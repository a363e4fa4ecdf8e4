// Package config handles configuration for chatdrawer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/diogo/chatdrawer/internal/models"
)

// Environment variables that override the config file
const (
	EnvEndpoint = "CHATDRAWER_ENDPOINT"
	EnvModel    = "CHATDRAWER_MODEL"
	EnvLogLevel = "CHATDRAWER_LOG_LEVEL"
	EnvTimeout  = "CHATDRAWER_TIMEOUT"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Renderer         string `json:"renderer"`          // "native", "glamour" or "plain"
	Style            string `json:"style"`             // glamour style or path to JSON theme
	Theme            string `json:"theme"`             // palette for the native renderer and TUI
	Width            int    `json:"width,omitempty"`   // 0 means terminal width
	EnableEmoji      bool   `json:"enable_emoji"`      // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"` // Preserve original line breaks
}

// Config represents the user configuration
type Config struct {
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
	// Protocol forces the response framing: "auto", "data", "sse" or "text".
	Protocol string `json:"protocol"`
	// TimeoutSeconds bounds the wait for response headers. A streaming
	// answer is never cut off by it. Zero disables the limit.
	TimeoutSeconds int               `json:"timeout_seconds"`
	Headers        map[string]string `json:"headers,omitempty"`
	// PageContext picks the suggestion set shown before the drawer opens.
	PageContext     string         `json:"page_context"`
	CopyToClipboard bool           `json:"copy_to_clipboard"`
	LogLevel        string         `json:"log_level"`
	LogFormat       string         `json:"log_format,omitempty"`
	Markdown        MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Renderer:         "native",
		Style:            "dark",
		Theme:            "tokyonight",
		EnableEmoji:      true,
		PreserveNewLines: true,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Endpoint:        models.DefaultEndpoint,
		Model:           models.DefaultModel,
		Protocol:        "auto",
		TimeoutSeconds:  300,
		PageContext:     models.ContextDashboard,
		CopyToClipboard: false,
		LogLevel:        "warn",
		LogFormat:       "console",
		Markdown:        DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".chatdrawer")
	return configDir, nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// headers may carry API keys
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadConfig loads the configuration from disk and applies environment
// overrides. Missing files yield the defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ApplyEnv(cfg), nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return ApplyEnv(cfg), nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.json")

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv returns cfg with environment overrides applied
func ApplyEnv(cfg Config) Config {
	if v := strings.TrimSpace(os.Getenv(EnvEndpoint)); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			cfg.TimeoutSeconds = seconds
		}
	}
	return cfg
}

// Validate checks values that cannot be corrected silently
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative, got %d", c.TimeoutSeconds)
	}
	switch c.Protocol {
	case "", "auto", "data", "sse", "text":
	default:
		return fmt.Errorf("protocol must be auto, data, sse or text, got %q", c.Protocol)
	}
	switch c.Markdown.Renderer {
	case "", "native", "glamour", "plain":
	default:
		return fmt.Errorf("markdown.renderer must be native, glamour or plain, got %q", c.Markdown.Renderer)
	}
	return nil
}

// AvailableContexts returns the page contexts with their own suggestions
func AvailableContexts() []string {
	return []string{
		models.ContextDashboard,
		models.ContextRecipes,
		models.ContextTodos,
		models.ContextMeetings,
		models.ContextTeam,
	}
}
