// Package config loads SnapCook settings from a config file, a .env file,
// and SNAPCOOK_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hammamikhairi/snapcook/internal/storage"
)

// EnvPrefix is prepended to every environment key: model.api_key is read
// from SNAPCOOK_MODEL_API_KEY.
const EnvPrefix = "SNAPCOOK"

// Model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config is the full application configuration.
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Store   StoreConfig   `mapstructure:"store"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Voice   VoiceConfig   `mapstructure:"voice"`
	Log     LogConfig     `mapstructure:"log"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Server  ServerConfig  `mapstructure:"server"`

	PantryFile string `mapstructure:"pantry_file"`
	Allergies  string `mapstructure:"allergies"`
}

// ModelConfig selects the language-model backend.
type ModelConfig struct {
	Provider  string        `mapstructure:"provider"`
	Endpoint  string        `mapstructure:"endpoint"`
	APIKey    string        `mapstructure:"api_key"`
	Name      string        `mapstructure:"name"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Bearer    bool          `mapstructure:"bearer"`
}

// StoreConfig locates the local cache and the remote store. An empty
// PostgresDSN keeps the remote in memory.
type StoreConfig struct {
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// ArchiveConfig configures the optional receipt archive. An empty bucket
// disables it.
type ArchiveConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PathStyle       bool   `mapstructure:"path_style"`
}

// S3 converts the archive settings for the storage package.
func (a ArchiveConfig) S3() storage.S3Config {
	return storage.S3Config{
		Bucket:          a.Bucket,
		Region:          a.Region,
		Endpoint:        a.Endpoint,
		AccessKeyID:     a.AccessKeyID,
		SecretAccessKey: a.SecretAccessKey,
		PathStyle:       a.PathStyle,
	}
}

// VoiceConfig configures dictation and notification chimes.
type VoiceConfig struct {
	WhisperBin   string        `mapstructure:"whisper_bin"`
	WhisperModel string        `mapstructure:"whisper_model"`
	Chunk        time.Duration `mapstructure:"chunk"`
	Chime        bool          `mapstructure:"chime"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// RefreshConfig controls the background pull from the remote store.
type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// ServerConfig controls the progress feed server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Options controls where Load looks.
type Options struct {
	// File is an explicit config path. When empty, snapcook.{toml,yaml}
	// is searched for in the working directory and ~/.config/snapcook.
	File string
	// EnvFile is loaded into the process environment first. Missing files
	// are ignored. Defaults to ".env".
	EnvFile string
}

// New returns a viper instance with every default and env binding set.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("model.provider", ProviderOpenAI)
	v.SetDefault("model.name", "")
	v.SetDefault("model.bearer", false)
	v.SetDefault("model.max_tokens", 800)
	v.SetDefault("model.timeout", 60*time.Second)
	v.SetDefault("store.sqlite_path", filepath.Join(dataDir(), "snapcook.db"))
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access_key_id", "")
	v.SetDefault("archive.secret_access_key", "")
	v.SetDefault("archive.path_style", false)
	v.SetDefault("voice.whisper_bin", "whisper-cli")
	v.SetDefault("voice.whisper_model", "bin/ggml-small.bin")
	v.SetDefault("voice.chunk", 2*time.Second)
	v.SetDefault("voice.chime", true)
	v.SetDefault("log.level", "normal")
	v.SetDefault("log.file", ".snapcook-logs/snapcook.log")
	v.SetDefault("refresh.interval", 5*time.Minute)
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("pantry_file", "")
	v.SetDefault("allergies", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy names from the chat assistant still work.
	_ = v.BindEnv("model.api_key", EnvPrefix+"_MODEL_API_KEY", "GPT_CHAT_KEY")
	_ = v.BindEnv("model.endpoint", EnvPrefix+"_MODEL_ENDPOINT", "GPT_CHAT_ENDPOINT")

	return v
}

// Load reads the configuration.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	v := New()
	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("snapcook")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "snapcook"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Model.Provider = strings.ToLower(strings.TrimSpace(cfg.Model.Provider))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("config: unknown model provider %q", c.Model.Provider)
	}
	if c.Refresh.Interval < 0 {
		return fmt.Errorf("config: refresh interval must not be negative")
	}
	return nil
}

// ModelReady reports whether enough is configured to call the model.
func (c *Config) ModelReady() error {
	if c.Model.APIKey == "" {
		return fmt.Errorf("config: model.api_key is not set (SNAPCOOK_MODEL_API_KEY)")
	}
	if c.Model.Provider == ProviderOpenAI && c.Model.Endpoint == "" {
		return fmt.Errorf("config: model.endpoint is not set (SNAPCOOK_MODEL_ENDPOINT)")
	}
	return nil
}

func dataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "snapcook")
	}
	return ".snapcook"
}
