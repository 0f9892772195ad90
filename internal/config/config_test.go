package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
sampler:
  target_seconds: 10
  bitrate_kbps: 64
fingerprint:
  secondary: tencent
  acrcloud:
    access_key: test-key
offsets:
  primary:
    hls: -10
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sampler.TargetSeconds != 10 {
		t.Errorf("TargetSeconds = %d, want 10", cfg.Sampler.TargetSeconds)
	}
	if cfg.Fingerprint.Secondary != "tencent" {
		t.Errorf("Secondary = %q, want tencent", cfg.Fingerprint.Secondary)
	}
	if cfg.Offsets.Primary.HLS != -10 {
		t.Errorf("Primary.HLS = %v, want -10", cfg.Offsets.Primary.HLS)
	}
	// 未设置的项落到默认值
	if cfg.Sampler.HardTimeoutSeconds != 12 {
		t.Errorf("HardTimeoutSeconds default = %d, want 12", cfg.Sampler.HardTimeoutSeconds)
	}
	if cfg.Offsets.Secondary.Direct != -0.5 {
		t.Errorf("Secondary.Direct default = %v, want -0.5", cfg.Offsets.Secondary.Direct)
	}
	if cfg.Catalog.QQBaseURL != "https://c.y.qq.com" {
		t.Errorf("QQBaseURL default = %q", cfg.Catalog.QQBaseURL)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("RADIOAPP_TEST_SECRET", "  secret-value  ")

	path := writeConfig(t, `
fingerprint:
  acrcloud:
    access_secret: ${RADIOAPP_TEST_SECRET}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// 展开后两端空白会被去除
	if cfg.Fingerprint.ACRCloud.AccessSecret != "secret-value" {
		t.Errorf("AccessSecret = %q, want secret-value", cfg.Fingerprint.ACRCloud.AccessSecret)
	}
}

func TestLoad_ExplicitZeroOffsetPreserved(t *testing.T) {
	path := writeConfig(t, `
offsets:
  primary:
    hls: 0
    direct: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// 显式写的 0 不能被默认值覆盖
	if cfg.Offsets.Primary.HLS != 0 {
		t.Errorf("Primary.HLS = %v, want 0", cfg.Offsets.Primary.HLS)
	}
	if cfg.Offsets.Primary.Direct != 0 {
		t.Errorf("Primary.Direct = %v, want 0", cfg.Offsets.Primary.Direct)
	}
	// 未出现的块仍然走默认
	if cfg.Offsets.Secondary.HLS != -0.5 {
		t.Errorf("Secondary.HLS = %v, want -0.5", cfg.Offsets.Secondary.HLS)
	}
	if cfg.Offsets.Secondary.Direct != -0.5 {
		t.Errorf("Secondary.Direct = %v, want -0.5", cfg.Offsets.Secondary.Direct)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "sampler: [not a map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Sampler.TargetSeconds != 15 {
		t.Errorf("TargetSeconds = %d, want 15", cfg.Sampler.TargetSeconds)
	}
	if cfg.Fingerprint.Tencent.Region != "ap-guangzhou" {
		t.Errorf("Region = %q, want ap-guangzhou", cfg.Fingerprint.Tencent.Region)
	}
	if cfg.Offsets.Primary.HLS != -12 {
		t.Errorf("Primary.HLS = %v, want -12", cfg.Offsets.Primary.HLS)
	}
	if cfg.Database.Path == "" {
		t.Error("database path default must not be empty")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_TildeExpansion(t *testing.T) {
	path := writeConfig(t, `
database:
  path: ~/custom/radioapp.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		t.Skip("no home directory in test environment")
	}
	want := home + "/custom/radioapp.db"
	if cfg.Database.Path != want {
		t.Errorf("Path = %q, want %q", cfg.Database.Path, want)
	}
}
