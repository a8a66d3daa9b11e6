// Package config loads polychat configuration from defaults, a YAML file,
// .env files and POLYCHAT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/leofalp/polychat/providers/ai"
)

// EnvPrefix prefixes every environment override (POLYCHAT_LOG_LEVEL, ...).
const EnvPrefix = "POLYCHAT"

const defaultProfile = "default"

// Config is the runtime configuration.
type Config struct {
	// HomeDir is resolved from POLYCHAT_HOME and not read from the file.
	HomeDir string `mapstructure:"-"`

	// File is the explicit config path passed to Load, if any.
	File string `mapstructure:"-"`

	DefaultProfile string                   `mapstructure:"default_profile"`
	Profiles       map[string]ProfileConfig `mapstructure:"profiles"`
	Client         ClientConfig             `mapstructure:"client"`
	Log            LogConfig                `mapstructure:"log"`
	Attachments    AttachmentsConfig        `mapstructure:"attachments"`
	Local          LocalConfig              `mapstructure:"local"`
}

// ProfileConfig is one named provider connection.
type ProfileConfig struct {
	// Provider is a registry kind: anthropic, gemini, ollama, local,
	// openai-compatible or an OpenAI-compatible vendor name.
	Provider     string  `mapstructure:"provider"`
	APIURL       string  `mapstructure:"api_url"`
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model"`
	Temperature  float64 `mapstructure:"temperature"`
	SystemPrompt string  `mapstructure:"system_prompt"`
}

// ClientConfig tunes the client middleware chain.
type ClientConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`

	// HistoryLimit caps the messages an interactive chat resends; 0 keeps all.
	HistoryLimit int `mapstructure:"history_limit"`

	// LogLevel is the request logging verbosity: minimal, standard or verbose.
	LogLevel string `mapstructure:"log_level"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AttachmentsConfig locates attachment files.
type AttachmentsConfig struct {
	Dir string `mapstructure:"dir"`
}

// LocalConfig configures the on-device runner.
type LocalConfig struct {
	ModelsDir string   `mapstructure:"models_dir"`
	Runner    string   `mapstructure:"runner"`
	Args      []string `mapstructure:"args"`
}

var defaultConfig = Config{
	DefaultProfile: defaultProfile,
	Profiles: map[string]ProfileConfig{
		defaultProfile: {
			Provider:    "ollama",
			Model:       "llama3.2",
			Temperature: 0.7,
		},
	},
	Client: ClientConfig{
		Timeout:    10 * time.Minute,
		MaxRetries: 0,
		LogLevel:   "standard",
	},
	Log: LogConfig{
		Level:  "warn",
		Format: "text",
	},
}

// homeDir returns POLYCHAT_HOME, or ~/.polychat.
func homeDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return defaultHomePath(home), nil
}

// Load merges defaults, the config file and environment overrides in that
// order. An empty path reads $POLYCHAT_HOME/config.yaml; a missing default
// file is not an error, a missing explicit file is.
//
// .env files in the working directory and in the home directory are loaded
// first without overriding variables that are already set.
func Load(path string) (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}
	loadDotEnv(EnvFileName, filepath.Join(home, EnvFileName))

	v, err := newViper(home, path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = decodeHook()
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.HomeDir = home
	cfg.File = path

	return &cfg, nil
}

// Write renders the merged configuration as YAML.
func Write(w io.Writer, path string) error {
	if w == nil {
		return errors.New("writer is required")
	}
	home, err := homeDir()
	if err != nil {
		return err
	}
	v, err := newViper(home, path)
	if err != nil {
		return err
	}

	// Keep durations human-readable.
	v.Set("client.timeout", v.GetDuration("client.timeout").String())

	if err := v.WriteConfigTo(w); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func newViper(home, path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = homeConfigPath(home)
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if !missing || explicit {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_profile", defaultConfig.DefaultProfile)

	profile := defaultConfig.Profiles[defaultProfile]
	v.SetDefault("profiles.default.provider", profile.Provider)
	v.SetDefault("profiles.default.model", profile.Model)
	v.SetDefault("profiles.default.temperature", profile.Temperature)

	v.SetDefault("client.timeout", defaultConfig.Client.Timeout)
	v.SetDefault("client.max_retries", defaultConfig.Client.MaxRetries)
	v.SetDefault("client.log_level", defaultConfig.Client.LogLevel)
	v.SetDefault("client.history_limit", defaultConfig.Client.HistoryLimit)

	v.SetDefault("log.level", defaultConfig.Log.Level)
	v.SetDefault("log.format", defaultConfig.Log.Format)

	v.SetDefault("attachments.dir", "")
	v.SetDefault("local.models_dir", "")
	v.SetDefault("local.runner", "")
	v.SetDefault("local.args", []string{})
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		expandEnvStringHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// loadDotEnv loads each existing file; variables already in the environment
// win.
func loadDotEnv(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// Profile returns the named profile, or the default profile for "".
func (c *Config) Profile(name string) (ProfileConfig, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	profile, ok := c.Profiles[name]
	if !ok {
		return ProfileConfig{}, fmt.Errorf("unknown profile %q (available: %s)", name, strings.Join(c.ProfileNames(), ", "))
	}
	return profile, nil
}

// ProfileNames lists the configured profiles, sorted.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProviderConfig converts the profile into the per-call connection config.
func (p ProfileConfig) ProviderConfig(name string) ai.ProviderConfig {
	return ai.ProviderConfig{
		Name:   name,
		APIURL: p.APIURL,
		APIKey: p.APIKey,
		Model:  p.Model,
	}
}

// Validate checks the profile fields every provider needs.
func (p ProfileConfig) Validate() error {
	if strings.TrimSpace(p.Provider) == "" {
		return errors.New("provider is required")
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", p.Temperature)
	}
	return nil
}

// Validate returns the first fatal configuration error.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Profiles) == 0 {
		errs = append(errs, errors.New("at least one profiles.* entry is required"))
	} else if _, ok := c.Profiles[c.DefaultProfile]; !ok {
		errs = append(errs, fmt.Errorf("default_profile %q is not defined", c.DefaultProfile))
	}
	for _, name := range c.ProfileNames() {
		if err := c.Profiles[name].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("profiles.%s: %w", name, err))
		}
	}

	if c.Client.Timeout < 0 {
		errs = append(errs, errors.New("client.timeout must be >= 0"))
	}
	if c.Client.MaxRetries < 0 {
		errs = append(errs, errors.New("client.max_retries must be >= 0"))
	}
	if c.Client.HistoryLimit < 0 {
		errs = append(errs, errors.New("client.history_limit must be >= 0"))
	}
	switch c.Client.LogLevel {
	case "", "minimal", "standard", "verbose":
	default:
		errs = append(errs, fmt.Errorf("invalid client.log_level %q (allowed: minimal, standard, verbose)", c.Client.LogLevel))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log.format %q (allowed: text, json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func expandEnvStringHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}
		value, ok := data.(string)
		if !ok {
			return data, nil
		}
		return os.ExpandEnv(value), nil
	}
}
