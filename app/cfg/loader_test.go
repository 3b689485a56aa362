package cfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	original := Version
	defer func() { Version = original }()

	Version = ""
	if GetVersion() != "unknown" {
		t.Errorf("Expected 'unknown' for empty version, got %q", GetVersion())
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	cfg, err := Load([]string{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.DBDriver != "sqlite" {
		t.Errorf("Expected driver 'sqlite', got %q", cfg.DBDriver)
	}
	if cfg.DBPath != "./data/curator.db" {
		t.Errorf("Expected default db path, got %q", cfg.DBPath)
	}
	if cfg.PollMin != 12*time.Hour || cfg.PollMax != 24*time.Hour {
		t.Errorf("Expected poll bounds 12h-24h, got %v-%v", cfg.PollMin, cfg.PollMax)
	}
	if cfg.EnrichMaxChars != 1200 {
		t.Errorf("Expected enrich max chars 1200, got %d", cfg.EnrichMaxChars)
	}
	if cfg.WorkerCount != 1 {
		t.Errorf("Expected worker count 1, got %d", cfg.WorkerCount)
	}
	if cfg.Port != "" {
		t.Errorf("Expected status API disabled by default, got port %q", cfg.Port)
	}
	if cfg.FetchTimeout != 30*time.Second || cfg.EnrichTimeout != 60*time.Second {
		t.Errorf("Expected 30s/60s timeouts, got %v/%v", cfg.FetchTimeout, cfg.EnrichTimeout)
	}
	if cfg.Version != GetVersion() {
		t.Errorf("Expected version %q, got %q", GetVersion(), cfg.Version)
	}
}

func TestLoad_FlagsAndEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_MODEL", "env-model")

	cfg, err := Load([]string{
		"--db-driver", "mysql",
		"--db-host", "db.internal",
		"--db-port", "3307",
		"--openai-model", "flag-model",
		"--poll-min-hours", "1",
		"--poll-max-hours", "2",
		"--worker-count", "4",
		"--port", "8080",
		"--debug",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.DBDriver != "mysql" || cfg.DBHost != "db.internal" || cfg.DBPort != 3307 {
		t.Errorf("Expected mysql at db.internal:3307, got %s at %s:%d", cfg.DBDriver, cfg.DBHost, cfg.DBPort)
	}
	if cfg.OpenAIAPIKey != "env-key" {
		t.Errorf("Expected API key from env, got %q", cfg.OpenAIAPIKey)
	}
	if cfg.OpenAIModel != "flag-model" {
		t.Errorf("Expected flag to win over env, got %q", cfg.OpenAIModel)
	}
	if cfg.PollMin != time.Hour || cfg.PollMax != 2*time.Hour {
		t.Errorf("Expected poll bounds 1h-2h, got %v-%v", cfg.PollMin, cfg.PollMax)
	}
	if cfg.WorkerCount != 4 || cfg.Port != "8080" || !cfg.Debug {
		t.Errorf("Expected workers 4, port 8080 and debug, got %d %q %t", cfg.WorkerCount, cfg.Port, cfg.Debug)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	t.Setenv("FEEDS_FILE", "")
	os.Unsetenv("FEEDS_FILE")

	envFile := filepath.Join(t.TempDir(), "curator.env")
	content := "OPENAI_API_KEY=file-key\nFEEDS_FILE=/etc/curator/feeds.opml\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load([]string{"--env-file", envFile})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.OpenAIAPIKey != "file-key" {
		t.Errorf("Expected API key from env file, got %q", cfg.OpenAIAPIKey)
	}
	if cfg.FeedsFile != "/etc/curator/feeds.opml" {
		t.Errorf("Expected feeds file from env file, got %q", cfg.FeedsFile)
	}
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	if _, err := Load([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}); err != nil {
		t.Errorf("Expected missing env file to be ignored, got %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		args    []string
		errPart string
	}{
		{
			name:    "missing api key",
			args:    []string{},
			errPart: "api key is required",
		},
		{
			name:    "unknown driver",
			apiKey:  "k",
			args:    []string{"--db-driver", "postgres"},
			errPart: "failed to parse configuration",
		},
		{
			name:    "inverted poll bounds",
			apiKey:  "k",
			args:    []string{"--poll-min-hours", "10", "--poll-max-hours", "5"},
			errPart: "poll max hours",
		},
		{
			name:    "zero workers",
			apiKey:  "k",
			args:    []string{"--worker-count", "0"},
			errPart: "worker count",
		},
		{
			name:    "negative max chars",
			apiKey:  "k",
			args:    []string{"--enrich-max-chars", "-1"},
			errPart: "max chars",
		},
		{
			name:    "bad timezone",
			apiKey:  "k",
			args:    []string{"--timezone", "Mars/Olympus"},
			errPart: "invalid timezone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", tt.apiKey)

			_, err := Load(tt.args)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Expected error containing %q, got %v", tt.errPart, err)
			}
		})
	}
}

func TestLoad_Help(t *testing.T) {
	cfg, err := Load([]string{"--help"})
	if err != nil || cfg != nil {
		t.Errorf("Expected nil config and no error for help, got %v, %v", cfg, err)
	}
}
