package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv blanks every variable Load reads so host settings don't leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "BOT_ADMIN_USER_ID", "BOT_DEBUG_MODE",
		"TODOIST_API_TOKEN", "SPEECH_API_KEY", "SPEECH_API_URL",
		"LIFEOS_MEMORY_PATH", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET",
	} {
		t.Setenv(k, "")
	}
}

// =============================================================================
// Default Config Tests
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}
	if !filepath.IsAbs(cfg.DataDir) || filepath.Base(cfg.DataDir) != ".lifeos" {
		t.Errorf("DataDir = %q, want absolute path ending in .lifeos", cfg.DataDir)
	}
	if cfg.MemoryPath != filepath.Join(cfg.DataDir, "memory") {
		t.Errorf("MemoryPath = %q", cfg.MemoryPath)
	}
	if cfg.Todoist.BaseURL != "https://api.todoist.com/rest/v2" {
		t.Errorf("Todoist.BaseURL = %q", cfg.Todoist.BaseURL)
	}
	if cfg.Speech.Language != "ru" {
		t.Errorf("Speech.Language = %q, want ru", cfg.Speech.Language)
	}
	if cfg.Reminders.ReviewAt != "21:00" {
		t.Errorf("Reminders.ReviewAt = %q, want 21:00", cfg.Reminders.ReviewAt)
	}
	if !cfg.Features.QuickCapture {
		t.Error("Features.QuickCapture should be true by default")
	}
	if cfg.Features.DebugMode {
		t.Error("Features.DebugMode should be false by default")
	}
	if cfg.TodoistEnabled() || cfg.SpeechEnabled() || cfg.GoogleEnabled() {
		t.Error("no collaborator should be enabled without credentials")
	}
}

// =============================================================================
// Load Config Tests
// =============================================================================

func TestLoad_NonExistentFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("/non/existent/path/config.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for non-existent file", err)
	}
	if cfg.Server.Port != 8085 {
		t.Errorf("Server.Port = %d, want 8085 (default)", cfg.Server.Port)
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	yamlData := `
memory_path: /srv/memory
telegram:
  admin_user_id: 4242
server:
  port: 9090
reminders:
  review_at: "20:30"
features:
  quick_capture: false
`
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MemoryPath != "/srv/memory" {
		t.Errorf("MemoryPath = %q", cfg.MemoryPath)
	}
	if cfg.Telegram.AdminUserID != 4242 {
		t.Errorf("AdminUserID = %d", cfg.Telegram.AdminUserID)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Reminders.ReviewAt != "20:30" {
		t.Errorf("ReviewAt = %q", cfg.Reminders.ReviewAt)
	}
	if cfg.Features.QuickCapture {
		t.Error("QuickCapture should be overridden to false")
	}
	// Untouched sections keep defaults
	if cfg.Speech.Language != "ru" {
		t.Errorf("Speech.Language = %q, want default", cfg.Speech.Language)
	}
}

func TestLoad_JSONPartial(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")

	data, _ := json.Marshal(map[string]interface{}{
		"server": map[string]interface{}{"port": 3000},
	})
	os.WriteFile(path, data, 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoad_InvalidFiles(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
	}{
		{"config.json", "{ invalid json }"},
		{"config.yml", "server: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.name)
			os.WriteFile(path, []byte(tt.content), 0644)

			if _, err := Load(path); err == nil {
				t.Error("Load() should fail on malformed file")
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("todoist:\n  api_token: file-token\n"), 0644)

	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("BOT_ADMIN_USER_ID", "777")
	t.Setenv("BOT_DEBUG_MODE", "true")
	t.Setenv("TODOIST_API_TOKEN", "env-token")
	t.Setenv("LIFEOS_MEMORY_PATH", "/tmp/mem")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("Token = %q", cfg.Telegram.Token)
	}
	if cfg.Telegram.AdminUserID != 777 {
		t.Errorf("AdminUserID = %d", cfg.Telegram.AdminUserID)
	}
	if !cfg.Features.DebugMode {
		t.Error("DebugMode should be on")
	}
	if cfg.Todoist.APIToken != "env-token" {
		t.Errorf("env should override file token, got %q", cfg.Todoist.APIToken)
	}
	if cfg.MemoryPath != "/tmp/mem" {
		t.Errorf("MemoryPath = %q", cfg.MemoryPath)
	}
}

func TestLoad_BadAdminID(t *testing.T) {
	clearEnv(t)
	t.Setenv("BOT_ADMIN_USER_ID", "not-a-number")

	if _, err := Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("Load() should reject a non-numeric admin id")
	}
}

// =============================================================================
// Validate / ParseClock Tests
// =============================================================================

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("missing token should fail validation")
	}

	cfg.Telegram.Token = "t"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	cfg.Reminders.ReviewAt = "25:00"
	if err := cfg.Validate(); err == nil {
		t.Error("bad reminder time should fail validation")
	}

	cfg.Reminders.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled reminder time should not be checked: %v", err)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		h, m    int
		wantErr bool
	}{
		{"21:00", 21, 0, false},
		{"07:45", 7, 45, false},
		{"24:00", 0, 0, true},
		{"12:60", 0, 0, true},
		{"noon", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseClock(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseClock(%q) err = %v", tt.in, err)
			}
			if !tt.wantErr && (h != tt.h || m != tt.m) {
				t.Errorf("ParseClock(%q) = %d:%d", tt.in, h, m)
			}
		})
	}
}

// =============================================================================
// Save Config Tests
// =============================================================================

func TestSave_StripsSecrets(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", name)

			cfg := Default()
			cfg.Telegram.Token = "secret-telegram"
			cfg.Todoist.APIToken = "secret-todoist"
			cfg.Speech.APIKey = "secret-speech"
			cfg.Google.ClientSecret = "secret-google"
			cfg.Server.Port = 9999

			if err := cfg.Save(path); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if strings.Contains(string(data), "secret-") {
				t.Errorf("secrets leaked into %s:\n%s", name, data)
			}

			// Original keeps its secrets
			if cfg.Telegram.Token != "secret-telegram" {
				t.Error("Save mutated the receiver")
			}

			clearEnv(t)
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load() after Save error = %v", err)
			}
			if loaded.Server.Port != 9999 {
				t.Errorf("Server.Port = %d, want 9999", loaded.Server.Port)
			}
		})
	}
}

func TestSave_FilePermissions(t *testing.T) {
	if os.Getenv("OS") == "Windows_NT" {
		t.Skip("Skipping permission test on Windows")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := Default().Save(path); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %o, want 600", info.Mode().Perm())
	}
}
