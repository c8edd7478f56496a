package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, int64(10*1024*1024), cfg.Limits.MaxFileSizeBytes)
	assert.Equal(t, 10000, cfg.Limits.MaxFileCount)
	assert.Equal(t, 4, cfg.Limits.Concurrency)
	assert.Equal(t, 10, cfg.Scan.MaxDepth)
	assert.Contains(t, cfg.Scan.Exclude, "**/node_modules/**")
	assert.Equal(t, "flat", cfg.Analysis.CognitiveMode)
	assert.Equal(t, 100, cfg.Cache.Hot.MaxEntries)
	assert.Equal(t, 500, cfg.Cache.Secondary.MaxEntries)
	assert.Equal(t, 1000, cfg.Cache.Persistent.MaxEntries)
	assert.Equal(t, "file", cfg.Cache.Persistent.Backend)
	assert.True(t, cfg.Languages["typescript"].Enabled)

	assert.Equal(t, "5m0s", cfg.Timeout().String())
	assert.Equal(t, "30m0s", cfg.Cache.Hot.TTL().String())
	assert.Equal(t, "24h0m0s", cfg.Cache.Persistent.TTL().String())

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"version", func(c *Config) { c.Version = 99 }, "version"},
		{"file size", func(c *Config) { c.Limits.MaxFileSizeBytes = 0 }, "limits.maxFileSizeBytes"},
		{"file count", func(c *Config) { c.Limits.MaxFileCount = -1 }, "limits.maxFileCount"},
		{"timeout", func(c *Config) { c.Limits.TimeoutMs = 0 }, "limits.timeoutMs"},
		{"concurrency", func(c *Config) { c.Limits.Concurrency = 0 }, "limits.concurrency"},
		{"depth", func(c *Config) { c.Scan.MaxDepth = 0 }, "scan.maxDepth"},
		{"cognitive mode", func(c *Config) { c.Analysis.CognitiveMode = "weighted" }, "analysis.cognitiveMode"},
		{"backend", func(c *Config) { c.Cache.Persistent.Backend = "redis" }, "cache.persistent.backend"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoad_DefaultsWhenNoFiles(t *testing.T) {
	root := t.TempDir()

	cfg, err := Load(LoadOptions{ProjectRoot: root, SkipUserConfig: true})
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Limits, cfg.Limits)
	assert.Equal(t, def.Scan, cfg.Scan)
	assert.Equal(t, def.Analysis, cfg.Analysis)
	assert.Equal(t, def.Cache, cfg.Cache)
	assert.Equal(t, def.Languages["typescript"], cfg.Languages["typescript"])
}

func TestLoad_ProjectOverride(t *testing.T) {
	root := t.TempDir()
	content := `
limits:
  maxFileCount: 25
analysis:
  cognitiveMode: nested
  allowSyntaxErrors: true
cache:
  persistent:
    backend: sqlite
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".codefacts.yaml"), []byte(content), 0644))

	cfg, err := Load(LoadOptions{ProjectRoot: root, SkipUserConfig: true})
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Limits.MaxFileCount)
	assert.Equal(t, "nested", cfg.Analysis.CognitiveMode)
	assert.True(t, cfg.Analysis.AllowSyntaxErrors)
	assert.False(t, DefaultConfig().Analysis.AllowSyntaxErrors)
	assert.Equal(t, "sqlite", cfg.Cache.Persistent.Backend)
	// Untouched keys keep their defaults
	assert.Equal(t, 10, cfg.Scan.MaxDepth)
	assert.Equal(t, 100, cfg.Cache.Hot.MaxEntries)
}

func TestLoad_UserThenProject(t *testing.T) {
	userDir := t.TempDir()
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.json"),
		[]byte(`{"limits": {"maxFileCount": 50, "concurrency": 8}}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".codefacts.toml"),
		[]byte("[limits]\nmaxFileCount = 60\n"), 0644))

	cfg, err := Load(LoadOptions{UserConfigDir: userDir, ProjectRoot: root})
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Limits.MaxFileCount)
	assert.Equal(t, 8, cfg.Limits.Concurrency)
}

func TestLoad_EnvOverride(t *testing.T) {
	root := t.TempDir()
	t.Setenv("CODEFACTS_LIMITS_MAXFILECOUNT", "7")

	cfg, err := Load(LoadOptions{ProjectRoot: root, SkipUserConfig: true})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Limits.MaxFileCount)
}

func TestLoad_InvalidFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".codefacts.json"), []byte("{not json"), 0644))

	_, err := Load(LoadOptions{ProjectRoot: root, SkipUserConfig: true})
	require.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".codefacts.yaml"),
		[]byte("logging:\n  format: xml\n"), 0644))

	_, err := Load(LoadOptions{ProjectRoot: root, SkipUserConfig: true})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "logging.format", cfgErr.Field)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Limits.MaxFileCount = 1234
	cfg.Scan.MaxDepth = 6
	cfg.Logging.Level = "debug"

	path, err := cfg.Save(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".codefacts.toml"), path)

	loaded, err := Load(LoadOptions{ProjectRoot: root, SkipUserConfig: true})
	require.NoError(t, err)
	assert.Equal(t, 1234, loaded.Limits.MaxFileCount)
	assert.Equal(t, 6, loaded.Scan.MaxDepth)
	assert.Equal(t, "debug", loaded.Logging.Level)
}
