package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "BACKDROP"

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Models   ModelsConfig   `mapstructure:"models"`
	GrabCut  GrabCutConfig  `mapstructure:"grabcut"`
	Output   OutputConfig   `mapstructure:"output"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// RuntimeConfig locates the ONNX Runtime shared library.
type RuntimeConfig struct {
	LibraryPath string `mapstructure:"library_path"`
}

type ModelsConfig struct {
	Matting string `mapstructure:"matting"`
	Selfie  string `mapstructure:"selfie"`
}

type GrabCutConfig struct {
	Padding    int `mapstructure:"padding" validate:"gte=1,lte=512"`
	Iterations int `mapstructure:"iterations" validate:"gte=1,lte=50"`
}

type OutputConfig struct {
	Format  string `mapstructure:"format" validate:"oneof=transparent-png png-white png-black jpeg"`
	Quality int    `mapstructure:"quality" validate:"gte=1,lte=100"`
	Backup  bool   `mapstructure:"backup"`
}

type PipelineConfig struct {
	Policy []string `mapstructure:"policy" validate:"min=1,dive,oneof=matting selfie grabcut"`
}

// Load reads configuration from path (optional), then BACKDROP_* environment
// variables, on top of the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	return LoadWithFlags(path, nil)
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"format":    "output.format",
	"quality":   "output.quality",
	"backup":    "output.backup",
	"log-level": "log.level",
	"policy":    "pipeline.policy",
}

// LoadWithFlags is Load with flags from fs taking precedence over every other
// source when they were set explicitly. Flags not in FlagKeys are ignored.
func LoadWithFlags(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if fs != nil {
		for name, key := range FlagKeys {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// LOG_LEVEL is honoured when the prefixed variable is unset.
	if err := v.BindEnv("log.level", envPrefix+"_LOG_LEVEL", "LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("failed to bind log level env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !isMissing(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func isMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("runtime.library_path", defaultLibraryPath())

	v.SetDefault("models.matting", "models/u2net.onnx")
	v.SetDefault("models.selfie", "models/selfie_segmentation_landscape.onnx")

	v.SetDefault("grabcut.padding", 20)
	v.SetDefault("grabcut.iterations", 5)

	v.SetDefault("output.format", "transparent-png")
	v.SetDefault("output.quality", 95)
	v.SetDefault("output.backup", true)

	v.SetDefault("pipeline.policy", []string{"matting", "selfie", "grabcut"})
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}
