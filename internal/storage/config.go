package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Lin-Jiong-HDU/nlsh/internal/ai/openai"
	"github.com/Lin-Jiong-HDU/nlsh/internal/cache"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/execution"
	"github.com/Lin-Jiong-HDU/nlsh/internal/core/security"
)

const (
	ConfigFileName = "config"
	ConfigFileType = "yaml"
	DirName        = ".nlsh"
	EnvPrefix      = "NLSH"
	QueueFileName  = "tasks.db"
	PromptsDirName = "prompts"
)

// Config holds the application configuration
type Config struct {
	AI        AIConfig                `mapstructure:"ai"`
	Security  security.SecurityPolicy `mapstructure:"security"`
	Execution ExecutionConfig         `mapstructure:"execution"`
	Cache     CacheConfig             `mapstructure:"cache"`
	Log       LogConfig               `mapstructure:"log"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
	// KeySource names where the API key came from.
	KeySource string `mapstructure:"-"`
}

// AIConfig holds AI-related configuration
type AIConfig struct {
	Provider          string        `mapstructure:"provider"`
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	JSONMode          bool          `mapstructure:"json_mode"`
	Temperature       float32       `mapstructure:"temperature"`
	// Prompt names a template in the prompts directory that replaces the
	// built-in system prompt.
	Prompt string `mapstructure:"prompt"`
}

// OpenAI returns the client configuration.
func (c AIConfig) OpenAI() openai.Config {
	return openai.Config{
		APIKey:            c.APIKey,
		Model:             c.Model,
		BaseURL:           c.BaseURL,
		Timeout:           c.Timeout,
		RequestsPerMinute: c.RequestsPerMinute,
		JSONMode:          c.JSONMode,
		Temperature:       c.Temperature,
	}
}

// ExecutionConfig holds how commands are run
type ExecutionConfig struct {
	FastMode bool          `mapstructure:"fast_mode"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Shell    string        `mapstructure:"shell"`
	// DeferWhenNonInteractive queues confirmations as tasks when there is no
	// terminal to ask on.
	DeferWhenNonInteractive bool `mapstructure:"defer_when_non_interactive"`
}

// CacheConfig holds the response cache settings
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// Options returns the cache options.
func (c CacheConfig) Options() cache.Options {
	return cache.Options{TTL: c.TTL, MaxEntries: c.MaxEntries}
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Policy builds the execution policy from the security and execution
// sections.
func (c *Config) Policy() execution.Policy {
	return execution.Policy{
		SafeMode:       c.Security.SafeMode,
		DangerousCheck: c.Security.DangerousCheck,
		FastMode:       c.Execution.FastMode,
		Timeout:        c.Execution.Timeout,
		Shell:          c.Execution.Shell,
	}
}

// QueuePath is the task queue database.
func (c *Config) QueuePath() string {
	return filepath.Join(c.Dir, QueueFileName)
}

// PromptsDir holds system prompt overrides.
func (c *Config) PromptsDir() string {
	return filepath.Join(c.Dir, PromptsDirName)
}

// GetConfigDir returns the nlsh config directory path
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", openai.DefaultModel)
	v.SetDefault("ai.base_url", openai.DefaultBaseURL)
	v.SetDefault("ai.timeout", "60s")
	v.SetDefault("ai.requests_per_minute", 0)
	v.SetDefault("ai.json_mode", false)
	v.SetDefault("ai.temperature", 0)
	v.SetDefault("ai.prompt", "")

	// Security defaults
	v.SetDefault("security.safe_mode", false)
	v.SetDefault("security.dangerous_check", true)
	v.SetDefault("security.restricted_paths", []string{})
	v.SetDefault("security.readonly_paths", []string{})
	v.SetDefault("security.rules_file", "")

	v.SetDefault("execution.fast_mode", false)
	v.SetDefault("execution.timeout", execution.DefaultTimeout.String())
	v.SetDefault("execution.shell", execution.DefaultShell)
	v.SetDefault("execution.defer_when_non_interactive", false)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", cache.DefaultTTL.String())
	v.SetDefault("cache.max_entries", cache.DefaultMaxEntries)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// InitConfig loads the configuration from the default directory.
func InitConfig() (*Config, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}
	return Load(dir, "")
}

// Load reads configuration with this precedence: NLSH_* environment
// variables, then the config file, then defaults. A .env file in the working
// directory or in dir is loaded first without overriding the environment.
// file, when set, replaces <dir>/config.yaml.
func Load(dir, file string) (*Config, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	loadEnvFiles(dir)

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileType)
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Dir = dir
	cfg.resolveAPIKey(NewKeyring())
	return &cfg, nil
}

// loadEnvFiles loads .env files; variables already set win.
func loadEnvFiles(dir string) {
	for _, f := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// resolveAPIKey fills in the API key from OPENAI_API_KEY or the OS keyring
// when neither the config file nor NLSH_AI_API_KEY set one.
func (c *Config) resolveAPIKey(kr *Keyring) {
	if c.AI.APIKey != "" {
		c.KeySource = "config"
		return
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.AI.APIKey = key
		c.KeySource = "env"
		return
	}
	if key, err := kr.GetAPIKey(); err == nil && key != "" {
		c.AI.APIKey = key
		c.KeySource = "keyring"
	}
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SaveConfig writes cfg to <dir>/config.yaml. The API key is never written;
// use the keyring instead.
func SaveConfig(cfg *Config, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("ai.provider", cfg.AI.Provider)
	v.Set("ai.model", cfg.AI.Model)
	v.Set("ai.base_url", cfg.AI.BaseURL)
	v.Set("ai.timeout", cfg.AI.Timeout.String())
	v.Set("ai.requests_per_minute", cfg.AI.RequestsPerMinute)
	v.Set("ai.json_mode", cfg.AI.JSONMode)
	v.Set("ai.prompt", cfg.AI.Prompt)

	v.Set("security.safe_mode", cfg.Security.SafeMode)
	v.Set("security.dangerous_check", cfg.Security.DangerousCheck)
	v.Set("security.restricted_paths", cfg.Security.RestrictedPaths)
	v.Set("security.readonly_paths", cfg.Security.ReadOnlyPaths)
	v.Set("security.rules_file", cfg.Security.RulesFile)

	v.Set("execution.fast_mode", cfg.Execution.FastMode)
	v.Set("execution.timeout", cfg.Execution.Timeout.String())
	v.Set("execution.shell", cfg.Execution.Shell)
	v.Set("execution.defer_when_non_interactive", cfg.Execution.DeferWhenNonInteractive)

	v.Set("cache.enabled", cfg.Cache.Enabled)
	v.Set("cache.ttl", cfg.Cache.TTL.String())
	v.Set("cache.max_entries", cfg.Cache.MaxEntries)

	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("log.file", cfg.Log.File)

	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileType)
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}
