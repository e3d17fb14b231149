// Package config loads zepup settings from defaults, a TOML file, the
// environment and command-line overrides, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AppName names the XDG subdirectories and the environment prefix
const AppName = "zepup"

// EnvPrefix is stripped from environment variables before mapping them to keys
const EnvPrefix = "ZEPUP_"

// Config is the complete zepup configuration
type Config struct {
	Catalog  CatalogConfig  `koanf:"catalog"`
	Install  InstallConfig  `koanf:"install"`
	Cache    CacheConfig    `koanf:"cache"`
	State    StateConfig    `koanf:"state"`
	Download DownloadConfig `koanf:"download"`
	Verify   VerifyConfig   `koanf:"verify"`
	Serve    ServeConfig    `koanf:"serve"`
	Release  ReleaseConfig  `koanf:"release"`
	Log      LogConfig      `koanf:"log"`
}

// CatalogConfig selects where descriptors come from. Dir wins over IndexURL;
// with neither set the catalog built into the binary is used.
type CatalogConfig struct {
	Dir      string `koanf:"dir"`
	IndexURL string `koanf:"index_url"`
}

type InstallConfig struct {
	Prefix       string        `koanf:"prefix"`
	SkipTest     bool          `koanf:"skip_test"`
	SmokeTimeout time.Duration `koanf:"smoke_timeout"`
}

type CacheConfig struct {
	Dir string `koanf:"dir"`
}

type StateConfig struct {
	Dir string `koanf:"dir"`
}

type DownloadConfig struct {
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries int           `koanf:"max_retries"`
}

// VerifyConfig points at an OpenPGP keyring (file path or URL). Signature
// checks are skipped when it is empty.
type VerifyConfig struct {
	Keyring string `koanf:"keyring"`
}

type ServeConfig struct {
	Addr string `koanf:"addr"`
}

type ReleaseConfig struct {
	URLTemplate       string   `koanf:"url_template"`
	ExpectedPlatforms []string `koanf:"expected_platforms"`
}

type LogConfig struct {
	File string `koanf:"file"`
}

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// File is an explicit config file; it must exist. When empty the default
	// file under the XDG config home is used if present.
	File string

	// Overrides are flat dotted keys set from command-line flags
	Overrides map[string]interface{}
}

// DefaultFile returns the default config file location
func DefaultFile() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.toml")
}

// Defaults returns the built-in settings as flat dotted keys
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"catalog.dir":                "",
		"catalog.index_url":          "",
		"install.prefix":             filepath.Join(xdg.Home, ".local"),
		"install.skip_test":          false,
		"install.smoke_timeout":      "30s",
		"cache.dir":                  filepath.Join(xdg.CacheHome, AppName),
		"state.dir":                  filepath.Join(xdg.StateHome, AppName),
		"download.timeout":           "5m",
		"download.max_retries":       3,
		"verify.keyring":             "",
		"serve.addr":                 "127.0.0.1:8080",
		"release.url_template":       "https://zep.run/releases/{version}/zep_{arch}-{os}_{version}.tar.xz",
		"release.expected_platforms": []string{"linux", "macos"},
		"log.file":                   "",
	}
}

// Load builds the configuration
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path := opts.File
	if path == "" {
		if _, err := os.Stat(DefaultFile()); err == nil {
			path = DefaultFile()
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	// 3. Environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps ZEPUP_INSTALL_SMOKE_TIMEOUT to install.smoke_timeout. Only the
// first underscore separates section from key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + rest
}

// Validate rejects settings no command can work with
func (c *Config) Validate() error {
	var problems []string
	if c.Install.Prefix == "" {
		problems = append(problems, "install.prefix must not be empty")
	}
	if c.Install.SmokeTimeout <= 0 {
		problems = append(problems, "install.smoke_timeout must be positive")
	}
	if c.Download.Timeout <= 0 {
		problems = append(problems, "download.timeout must be positive")
	}
	if c.Download.MaxRetries < 0 {
		problems = append(problems, "download.max_retries must not be negative")
	}
	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// ReceiptsDir is where install receipts are kept
func (c *Config) ReceiptsDir() string {
	return filepath.Join(c.State.Dir, "receipts")
}
