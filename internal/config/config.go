// Package config handles Life OS configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration
type Config struct {
	// Paths
	DataDir    string `json:"data_dir" yaml:"data_dir"`
	MemoryPath string `json:"memory_path" yaml:"memory_path"`

	// Transport
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`

	// Collaborators
	Todoist TodoistConfig `json:"todoist" yaml:"todoist"`
	Speech  SpeechConfig  `json:"speech" yaml:"speech"`
	Google  GoogleConfig  `json:"google" yaml:"google"`

	// Server
	Server ServerConfig `json:"server" yaml:"server"`

	// Jobs
	Reminders ReminderConfig `json:"reminders" yaml:"reminders"`

	// Features
	Features FeatureConfig `json:"features" yaml:"features"`

	// Logging
	Log LogConfig `json:"log" yaml:"log"`
}

// TelegramConfig for the bot transport
type TelegramConfig struct {
	Token       string `json:"token" yaml:"token"`
	AdminUserID int64  `json:"admin_user_id" yaml:"admin_user_id"`
	PollTimeout int    `json:"poll_timeout" yaml:"poll_timeout"` // seconds
}

// TodoistConfig for the external task service
type TodoistConfig struct {
	APIToken string `json:"api_token" yaml:"api_token"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
}

// SpeechConfig for the transcription backend
type SpeechConfig struct {
	URL      string `json:"url" yaml:"url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
	Model    string `json:"model" yaml:"model"`
	Language string `json:"language" yaml:"language"`
}

// GoogleConfig for calendar and gmail read access
type GoogleConfig struct {
	ClientID     string `json:"client_id" yaml:"client_id"`
	ClientSecret string `json:"client_secret" yaml:"client_secret"`
	RedirectURL  string `json:"redirect_url" yaml:"redirect_url"`
}

// ServerConfig for HTTP status API
type ServerConfig struct {
	Port int    `json:"port" yaml:"port"`
	Host string `json:"host" yaml:"host"`
}

// ReminderConfig for the evening prompt
type ReminderConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	ReviewAt string `json:"review_at" yaml:"review_at"` // HH:MM local time
}

// FeatureConfig for feature flags
type FeatureConfig struct {
	EnableAPI        bool `json:"enable_api" yaml:"enable_api"`
	EnableAudit      bool `json:"enable_audit" yaml:"enable_audit"`
	QuickCapture     bool `json:"quick_capture" yaml:"quick_capture"`
	NotifyAdminStart bool `json:"notify_admin_start" yaml:"notify_admin_start"`
	DebugMode        bool `json:"debug_mode" yaml:"debug_mode"`
}

// LogConfig for the logger
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file" yaml:"file"`
}

// Default returns default configuration
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".lifeos")

	return &Config{
		DataDir:    dataDir,
		MemoryPath: filepath.Join(dataDir, "memory"),
		Telegram: TelegramConfig{
			PollTimeout: 60,
		},
		Todoist: TodoistConfig{
			BaseURL: "https://api.todoist.com/rest/v2",
		},
		Speech: SpeechConfig{
			URL:      "https://api.openai.com/v1/audio/transcriptions",
			Model:    "whisper-1",
			Language: "ru",
		},
		Google: GoogleConfig{
			RedirectURL: "http://localhost:8086/oauth/callback",
		},
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Reminders: ReminderConfig{
			Enabled:  true,
			ReviewAt: "21:00",
		},
		Features: FeatureConfig{
			EnableAPI:        true,
			EnableAudit:      true,
			QuickCapture:     true,
			NotifyAdminStart: true,
			DebugMode:        false,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads config from file, falling back to defaults.
// The format follows the extension: .yaml/.yml or JSON otherwise.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Use defaults
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

// applyEnv overrides file values with the bot's environment variables
func (c *Config) applyEnv() error {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("BOT_ADMIN_USER_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("BOT_ADMIN_USER_ID: %w", err)
		}
		c.Telegram.AdminUserID = id
	}
	if v := os.Getenv("BOT_DEBUG_MODE"); v != "" {
		c.Features.DebugMode = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("TODOIST_API_TOKEN"); v != "" {
		c.Todoist.APIToken = v
	}
	if v := os.Getenv("SPEECH_API_KEY"); v != "" {
		c.Speech.APIKey = v
	}
	if v := os.Getenv("SPEECH_API_URL"); v != "" {
		c.Speech.URL = v
	}
	if v := os.Getenv("LIFEOS_MEMORY_PATH"); v != "" {
		c.MemoryPath = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		c.Google.ClientSecret = v
	}
	return nil
}

// Validate checks what the daemon cannot run without
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required (TELEGRAM_BOT_TOKEN)")
	}
	if c.MemoryPath == "" {
		return fmt.Errorf("memory path is required")
	}
	if _, _, err := ParseClock(c.Reminders.ReviewAt); c.Reminders.Enabled && err != nil {
		return fmt.Errorf("reminders.review_at: %w", err)
	}
	return nil
}

// ParseClock parses an HH:MM wall-clock time
func ParseClock(s string) (hour, minute int, err error) {
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	return hour, minute, nil
}

// DBPath is the SQLite file holding the audit trail, task links and OAuth tokens
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "lifeos.db")
}

// TodoistEnabled reports whether the task mirror is configured
func (c *Config) TodoistEnabled() bool { return c.Todoist.APIToken != "" }

// SpeechEnabled reports whether voice messages can be transcribed
func (c *Config) SpeechEnabled() bool { return c.Speech.URL != "" && c.Speech.APIKey != "" }

// GoogleEnabled reports whether calendar and gmail can be authorized
func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}

// WithoutSecrets returns a copy with tokens and keys blanked
func (c *Config) WithoutSecrets() Config {
	safe := *c
	safe.Telegram.Token = ""
	safe.Todoist.APIToken = ""
	safe.Speech.APIKey = ""
	safe.Google.ClientSecret = ""
	return safe
}

// Save saves config to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(c.DataDir, "config.yaml")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	// Don't save secrets to file
	safeCfg := c.WithoutSecrets()

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(&safeCfg)
	default:
		data, err = json.MarshalIndent(safeCfg, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
