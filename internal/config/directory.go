package config

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DirectoryConfig holds the runtime-tunable directory settings read from directory.yml.
type DirectoryConfig struct {
	Tiers    []TierDefinition `mapstructure:"tiers" validate:"required,min=1,dive"`
	Coverage CoverageConfig   `mapstructure:"coverage"`
}

// TierDefinition is used by the tier grouper when no subscription type row is active.
type TierDefinition struct {
	Name        string `mapstructure:"name" validate:"required,oneof=free basic enhanced premium"`
	DisplayName string `mapstructure:"display_name" validate:"required"`
	SortOrder   int    `mapstructure:"sort_order" validate:"gte=0"`
}

type CoverageConfig struct {
	FallbackEnabled bool `mapstructure:"fallback_enabled"`
}

func DefaultDirectoryConfig() DirectoryConfig {
	return DirectoryConfig{
		Tiers: []TierDefinition{
			{Name: "premium", DisplayName: "Premium", SortOrder: 1},
			{Name: "enhanced", DisplayName: "Enhanced", SortOrder: 2},
			{Name: "basic", DisplayName: "Basic", SortOrder: 3},
			{Name: "free", DisplayName: "Free", SortOrder: 4},
		},
		Coverage: CoverageConfig{
			FallbackEnabled: true,
		},
	}
}

type DirectoryConfigHolder struct {
	current atomic.Value // holds DirectoryConfig
}

// NewStaticDirectoryConfigHolder returns a holder that never reloads.
func NewStaticDirectoryConfigHolder(cfg DirectoryConfig) *DirectoryConfigHolder {
	holder := &DirectoryConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewDirectoryConfigHolder(log *zap.Logger) (*DirectoryConfigHolder, error) {
	log = log.Named("directory.config")
	v := viper.New()

	v.SetConfigName("directory")
	v.SetConfigType("yml")
	if dir := strings.TrimSpace(os.Getenv("LAWDIRECTORY_CONFIG_DIR")); dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath("/etc/lawdirectory")
	v.AddConfigPath(".")

	v.SetEnvPrefix("LAWDIRECTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDirectoryConfig()
	v.SetDefault("directory.tiers", defaults.Tiers)
	v.SetDefault("directory.coverage.fallback_enabled", defaults.Coverage.FallbackEnabled)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeDirectoryConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticDirectoryConfigHolder(cfg)
	if !fileFound {
		log.Info("directory config file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeDirectoryConfig(v)
		if err != nil {
			log.Warn("invalid directory config ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("directory config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *DirectoryConfigHolder) Get() DirectoryConfig {
	if h == nil {
		return DefaultDirectoryConfig()
	}
	cfg, ok := h.current.Load().(DirectoryConfig)
	if !ok {
		return DefaultDirectoryConfig()
	}
	return cfg
}

func decodeDirectoryConfig(v *viper.Viper) (DirectoryConfig, error) {
	var cfg DirectoryConfig
	if err := v.UnmarshalKey("directory", &cfg); err != nil {
		return DirectoryConfig{}, err
	}
	if err := ValidateDirectoryConfig(cfg); err != nil {
		return DirectoryConfig{}, err
	}
	return cfg, nil
}

func ValidateDirectoryConfig(cfg DirectoryConfig) error {
	return validator.New().Struct(cfg)
}
