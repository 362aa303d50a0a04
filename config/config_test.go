package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("CHANNELS", "@one, @two ,")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BotToken != "123:abc" || cfg.AdminID != 42 {
		t.Fatalf("unexpected credentials: %+v", cfg)
	}
	if len(cfg.Channels) != 2 || cfg.Channels[0] != "@one" || cfg.Channels[1] != "@two" {
		t.Fatalf("unexpected channels: %v", cfg.Channels)
	}
	if cfg.DBDriver != "sqlite" || cfg.ReportThreshold != 5 || cfg.CleanupDays != 30 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadTOMLOverridesEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("ADMIN_ID", "42")

	path := filepath.Join(t.TempDir(), "confighub.toml")
	toml := `bot_token = "file-token"
report_threshold = 3
channels = ["@filechan"]
`
	if err := os.WriteFile(path, []byte(toml), 0o600); err != nil {
		t.Fatalf("write toml: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BotToken != "file-token" {
		t.Fatalf("file must override env, got %q", cfg.BotToken)
	}
	if cfg.ReportThreshold != 3 {
		t.Fatalf("unexpected threshold: %d", cfg.ReportThreshold)
	}
	if len(cfg.Channels) != 1 || cfg.Channels[0] != "@filechan" {
		t.Fatalf("unexpected channels: %v", cfg.Channels)
	}
}

func TestLoadMissingTokenFails(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("ADMIN_ID", "42")

	if _, err := Load(""); err == nil {
		t.Fatal("expected an error without BOT_TOKEN")
	}
}

func TestRemark(t *testing.T) {
	cfg := &Config{BrandName: "NONEcore", BrandChannel: "@nonecorebot"}
	if got := cfg.Remark(); got != "NONEcore | تلگرام: @nonecorebot" {
		t.Fatalf("unexpected default remark: %q", got)
	}

	cfg.ConfigRemark = "custom"
	if got := cfg.Remark(); got != "custom" {
		t.Fatalf("unexpected custom remark: %q", got)
	}
}
