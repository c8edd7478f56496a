package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// CurrentVersion is the only config schema version understood
const CurrentVersion = 1

// EnvPrefix prefixes every environment override, e.g. CODEFACTS_LIMITS_MAXFILECOUNT
const EnvPrefix = "CODEFACTS"

// ProjectConfigName is the basename of the per-project config file
const ProjectConfigName = ".codefacts"

// Config represents the complete codefacts configuration
type Config struct {
	Version int `json:"version" mapstructure:"version" toml:"version"`

	Limits    LimitsConfig              `json:"limits" mapstructure:"limits" toml:"limits"`
	Scan      ScanConfig                `json:"scan" mapstructure:"scan" toml:"scan"`
	Security  SecurityConfig            `json:"security" mapstructure:"security" toml:"security"`
	Analysis  AnalysisConfig            `json:"analysis" mapstructure:"analysis" toml:"analysis"`
	Languages map[string]LanguageConfig `json:"languages" mapstructure:"languages" toml:"languages"`
	Cache     CacheConfig               `json:"cache" mapstructure:"cache" toml:"cache"`
	Logging   LoggingConfig             `json:"logging" mapstructure:"logging" toml:"logging"`
}

// LimitsConfig contains global resource ceilings
type LimitsConfig struct {
	MaxFileSizeBytes int64 `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes" toml:"maxFileSizeBytes"`
	MaxFileCount     int   `json:"maxFileCount" mapstructure:"maxFileCount" toml:"maxFileCount"`
	TimeoutMs        int   `json:"timeoutMs" mapstructure:"timeoutMs" toml:"timeoutMs"`
	MaxHeapBytes     int64 `json:"maxHeapBytes" mapstructure:"maxHeapBytes" toml:"maxHeapBytes"`
	Concurrency      int   `json:"concurrency" mapstructure:"concurrency" toml:"concurrency"`
}

// ScanConfig contains default traversal settings
type ScanConfig struct {
	Include        []string `json:"include" mapstructure:"include" toml:"include"`
	Exclude        []string `json:"exclude" mapstructure:"exclude" toml:"exclude"`
	MaxDepth       int      `json:"maxDepth" mapstructure:"maxDepth" toml:"maxDepth"`
	FollowSymlinks bool     `json:"followSymlinks" mapstructure:"followSymlinks" toml:"followSymlinks"`
}

// SecurityConfig contains the path allow-list
type SecurityConfig struct {
	// AllowedRoots defaults to the working directory when empty
	AllowedRoots []string `json:"allowedRoots" mapstructure:"allowedRoots" toml:"allowedRoots"`
}

// AnalysisConfig contains analyzer behavior switches
type AnalysisConfig struct {
	// CognitiveMode is "flat" (fixed weights) or "nested" (weights grow with nesting depth)
	CognitiveMode       string `json:"cognitiveMode" mapstructure:"cognitiveMode" toml:"cognitiveMode"`
	ResolveDependencies bool   `json:"resolveDependencies" mapstructure:"resolveDependencies" toml:"resolveDependencies"`
	// AllowSyntaxErrors keeps partial facts for files the parser had to recover from
	AllowSyntaxErrors bool `json:"allowSyntaxErrors" mapstructure:"allowSyntaxErrors" toml:"allowSyntaxErrors"`
}

// LanguageConfig enables a language analyzer and lists the extensions it claims
type LanguageConfig struct {
	Enabled    bool     `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	Extensions []string `json:"extensions" mapstructure:"extensions" toml:"extensions"`
}

// CacheConfig contains settings for the three cache tiers
type CacheConfig struct {
	Enabled    bool             `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	Hot        TierConfig       `json:"hot" mapstructure:"hot" toml:"hot"`
	Secondary  TierConfig       `json:"secondary" mapstructure:"secondary" toml:"secondary"`
	Persistent PersistentConfig `json:"persistent" mapstructure:"persistent" toml:"persistent"`
}

// TierConfig bounds an in-process tier
type TierConfig struct {
	MaxEntries int `json:"maxEntries" mapstructure:"maxEntries" toml:"maxEntries"`
	TtlSeconds int `json:"ttlSeconds" mapstructure:"ttlSeconds" toml:"ttlSeconds"`
}

// PersistentConfig configures the filesystem-backed tier
type PersistentConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled" toml:"enabled"`
	// Backend is "file" (one file per key) or "sqlite"
	Backend    string `json:"backend" mapstructure:"backend" toml:"backend"`
	Dir        string `json:"dir" mapstructure:"dir" toml:"dir"`
	MaxEntries int    `json:"maxEntries" mapstructure:"maxEntries" toml:"maxEntries"`
	TtlSeconds int    `json:"ttlSeconds" mapstructure:"ttlSeconds" toml:"ttlSeconds"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format     string `json:"format" mapstructure:"format" toml:"format"`
	Level      string `json:"level" mapstructure:"level" toml:"level"`
	File       string `json:"file" mapstructure:"file" toml:"file"`
	MaxSizeMB  int    `json:"maxSizeMb" mapstructure:"maxSizeMb" toml:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups" toml:"maxBackups"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Limits: LimitsConfig{
			MaxFileSizeBytes: 10 * 1024 * 1024,
			MaxFileCount:     10000,
			TimeoutMs:        5 * 60 * 1000,
			MaxHeapBytes:     512 * 1024 * 1024,
			Concurrency:      4,
		},
		Scan: ScanConfig{
			Include: []string{"**/*"},
			Exclude: []string{
				"**/node_modules/**",
				"**/.git/**",
				"**/.cache/**",
				"**/dist/**",
				"**/build/**",
				"**/coverage/**",
				"**/__pycache__/**",
				"**/.venv/**",
				"**/vendor/**",
				"**/target/**",
			},
			MaxDepth:       10,
			FollowSymlinks: false,
		},
		Security: SecurityConfig{
			AllowedRoots: []string{},
		},
		Analysis: AnalysisConfig{
			CognitiveMode:       "flat",
			ResolveDependencies: true,
		},
		Languages: map[string]LanguageConfig{
			"javascript": {
				Enabled:    true,
				Extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
			},
			"typescript": {
				Enabled:    true,
				Extensions: []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx"},
			},
			"python": {
				Enabled:    true,
				Extensions: []string{".py", ".pyi"},
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Hot: TierConfig{
				MaxEntries: 100,
				TtlSeconds: 30 * 60,
			},
			Secondary: TierConfig{
				MaxEntries: 500,
				TtlSeconds: 60 * 60,
			},
			Persistent: PersistentConfig{
				Enabled:    true,
				Backend:    "file",
				Dir:        ".cache",
				MaxEntries: 1000,
				TtlSeconds: 24 * 60 * 60,
			},
		},
		Logging: LoggingConfig{
			Format:     "human",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Timeout returns the wall-clock ceiling for a single operation
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Limits.TimeoutMs) * time.Millisecond
}

// TTL converts a tier's TtlSeconds into a duration
func (t TierConfig) TTL() time.Duration {
	return time.Duration(t.TtlSeconds) * time.Second
}

// TTL converts the persistent tier's TtlSeconds into a duration
func (p PersistentConfig) TTL() time.Duration {
	return time.Duration(p.TtlSeconds) * time.Second
}

// LoadOptions selects the config sources merged by Load
type LoadOptions struct {
	// UserConfigDir holds config.{yaml,json,toml}; defaults to $XDG_CONFIG_HOME/codefacts
	UserConfigDir string
	// ProjectRoot holds .codefacts.{yaml,json,toml} and an optional .env
	ProjectRoot string
	// SkipUserConfig disables the user layer (tests, hermetic runs)
	SkipUserConfig bool
}

// Load merges defaults, user config, project config and environment variables,
// in that order of increasing precedence.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	base, err := json.Marshal(DefaultConfig())
	if err != nil {
		return nil, err
	}
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if !opts.SkipUserConfig {
		dir := opts.UserConfigDir
		if dir == "" {
			dir = defaultUserConfigDir()
		}
		if path := findConfigFile(dir, "config"); path != "" {
			if err := mergeFile(v, path); err != nil {
				return nil, err
			}
		}
	}

	if opts.ProjectRoot != "" {
		if path := findConfigFile(opts.ProjectRoot, ProjectConfigName); path != "" {
			if err := mergeFile(v, path); err != nil {
				return nil, err
			}
		}
		envFile := filepath.Join(opts.ProjectRoot, ".env")
		if _, err := os.Stat(envFile); err == nil {
			// Existing environment variables win over .env entries
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads the configuration for a project root using the user layer
func LoadConfig(projectRoot string) (*Config, error) {
	return Load(LoadOptions{ProjectRoot: projectRoot})
}

func mergeFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	// The type must be set per layer; the defaults layer left it at json
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "yml" {
		ext = "yaml"
	}
	v.SetConfigType(ext)
	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

func findConfigFile(dir, name string) string {
	for _, ext := range []string{".yaml", ".yml", ".json", ".toml"} {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func defaultUserConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "codefacts")
}

// Save writes the configuration to <projectRoot>/.codefacts.toml
func (c *Config) Save(projectRoot string) (string, error) {
	path := filepath.Join(projectRoot, ProjectConfigName+".toml")

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, buf.Bytes(), 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Limits.MaxFileSizeBytes <= 0 {
		return &ConfigError{Field: "limits.maxFileSizeBytes", Message: "must be positive"}
	}
	if c.Limits.MaxFileCount <= 0 {
		return &ConfigError{Field: "limits.maxFileCount", Message: "must be positive"}
	}
	if c.Limits.TimeoutMs <= 0 {
		return &ConfigError{Field: "limits.timeoutMs", Message: "must be positive"}
	}
	if c.Limits.Concurrency <= 0 {
		return &ConfigError{Field: "limits.concurrency", Message: "must be positive"}
	}
	if c.Scan.MaxDepth <= 0 {
		return &ConfigError{Field: "scan.maxDepth", Message: "must be positive"}
	}
	switch c.Analysis.CognitiveMode {
	case "flat", "nested":
	default:
		return &ConfigError{Field: "analysis.cognitiveMode", Message: "must be flat or nested"}
	}
	switch c.Cache.Persistent.Backend {
	case "file", "sqlite":
	default:
		return &ConfigError{Field: "cache.persistent.backend", Message: "must be file or sqlite"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
