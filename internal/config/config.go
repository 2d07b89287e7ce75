// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/WeirdyBenji/librohc/internal/log"
)

// Config is the top-level configuration. Maps to the `librohc:` root key in
// YAML; env vars use the LIBROHC_ prefix (e.g. LIBROHC_LOG_LEVEL).
type Config struct {
	Log    log.Config   `mapstructure:"log"`
	Decomp DecompConfig `mapstructure:"decomp"`
}

// DecompConfig configures a decompressor channel.
type DecompConfig struct {
	// Strict turns the recoverable malformed-packet diagnostics into fatal
	// parse errors.
	Strict bool `mapstructure:"strict"`

	// Profiles carries per-profile settings keyed by profile name. The raw
	// maps are decoded on demand with DecodeProfileSettings.
	Profiles map[string]map[string]any `mapstructure:"profiles"`
}

// ProfileSettings are the per-profile overrides accepted under
// `decomp.profiles.<name>`.
type ProfileSettings struct {
	// Strict overrides the channel-wide strict flag for one profile.
	Strict *bool `mapstructure:"strict"`
}

// configRoot is the wrapper matching the YAML structure `librohc: ...`.
type configRoot struct {
	Librohc Config `mapstructure:"librohc"`
}

// Load loads configuration from a file, applying env overrides and
// defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Librohc

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:    *log.DefaultConfig(),
		Decomp: DecompConfig{},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("librohc.log.level", "info")
	v.SetDefault("librohc.log.format", "text")
	v.SetDefault("librohc.log.file.enabled", false)
	v.SetDefault("librohc.log.file.path", "/var/log/librohc/rohcdump.log")
	v.SetDefault("librohc.log.file.max_size_mb", 100)
	v.SetDefault("librohc.log.file.max_age_days", 30)
	v.SetDefault("librohc.log.file.max_backups", 5)
	v.SetDefault("librohc.log.file.compress", true)

	v.SetDefault("librohc.decomp.strict", false)
}

// Validate checks field values and rejects unknown per-profile setting keys
// early. Profile names themselves are not checked.
func (cfg *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text/json)", cfg.Log.Format)
	}

	for name, raw := range cfg.Decomp.Profiles {
		var settings ProfileSettings
		if err := DecodeProfileSettings(raw, &settings); err != nil {
			return fmt.Errorf("invalid settings for profile %q: %w", name, err)
		}
	}
	return nil
}

// DecodeProfileSettings decodes one raw profile settings map into out.
func DecodeProfileSettings(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// ProfileStrict resolves the effective strict flag for one profile name.
func (cfg *Config) ProfileStrict(name string) bool {
	raw, exists := cfg.Decomp.Profiles[name]
	if !exists {
		return cfg.Decomp.Strict
	}
	var settings ProfileSettings
	if err := DecodeProfileSettings(raw, &settings); err != nil || settings.Strict == nil {
		return cfg.Decomp.Strict
	}
	return *settings.Strict
}
