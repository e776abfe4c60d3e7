package config

import (
	"os"
	"path/filepath"
	"testing"
)

type testRedis struct {
	Addr     string `mapstructure:"addr"`
	PoolSize int    `mapstructure:"pool_size"`
}

type testConfig struct {
	Reader     string    `mapstructure:"reader"`
	DefaultArg string    `mapstructure:"default_arg"`
	Redis      testRedis `mapstructure:"redis"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gears.yml", `
reader: KeysReader
default_arg: "user:*"
redis:
  addr: "cache:6379"
  pool_size: 4
`)

	var cfg testConfig
	if err := LoadConfig("gearstest", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Reader != "KeysReader" {
		t.Errorf("expected reader KeysReader, got %q", cfg.Reader)
	}
	if cfg.DefaultArg != "user:*" {
		t.Errorf("expected default_arg user:*, got %q", cfg.DefaultArg)
	}
	if cfg.Redis.Addr != "cache:6379" || cfg.Redis.PoolSize != 4 {
		t.Errorf("unexpected redis section %+v", cfg.Redis)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "gears.yml", `
redis:
  addr: "cache:6379"
`)
	t.Setenv("GEARSENV_REDIS_ADDR", "override:6380")
	t.Setenv("GEARSENV_REDIS_POOL_SIZE", "12")
	t.Setenv("GEARSENV_DEFAULT_ARG", "order:*")

	var cfg testConfig
	if err := LoadConfig("gearsenv", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Redis.Addr != "override:6380" {
		t.Errorf("expected env override for addr, got %q", cfg.Redis.Addr)
	}
	if cfg.Redis.PoolSize != 12 {
		t.Errorf("expected pool size 12, got %d", cfg.Redis.PoolSize)
	}
	if cfg.DefaultArg != "order:*" {
		t.Errorf("expected default_arg from env, got %q", cfg.DefaultArg)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "GEARSDOT_READER=StreamReader\n")
	t.Cleanup(func() { os.Unsetenv("GEARSDOT_READER") })

	var cfg testConfig
	err := LoadConfig("gearsdot", &cfg, WithConfigFile(filepath.Join(dir, "missing.yml")), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Reader != "StreamReader" {
		t.Errorf("expected reader from .env, got %q", cfg.Reader)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./config/gears.yml": true,
		"./.env":             true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("gears", LoaderConfig{})
	if files.ConfigFile != "./config/gears.yml" {
		t.Errorf("expected ./config/gears.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env" {
		t.Errorf("expected ./.env, got %q", files.EnvFile)
	}

	explicit := resolver.ResolveFiles("gears", LoaderConfig{ConfigFile: "/etc/gears.yml"})
	if explicit.ConfigFile != "/etc/gears.yml" {
		t.Errorf("expected explicit path to win, got %q", explicit.ConfigFile)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("REDIS_POOL_SIZE")
	want := map[string]bool{"redis_pool_size": true, "redis.pool.size": true, "redis.pool_size": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d variants, got %v", len(want), got)
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("unexpected variant %q", v)
		}
	}

	if single := envKeyVariants("READER"); len(single) != 1 || single[0] != "reader" {
		t.Errorf("expected [reader], got %v", single)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/gears.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithEnvPrefix("APP")(&lc)
	if lc.FileSystem == nil || lc.ConfigFile != "/path/to/gears.yml" || lc.EnvFile != "/path/to/.env" || lc.EnvPrefix != "APP" {
		t.Errorf("options not applied: %+v", lc)
	}
}
