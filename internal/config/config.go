package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/iTrooz/respcache/internal/cache"
)

// Environment overrides, applied on top of the config file by Resolve.
const (
	EnvCacheDir    = "RESPCACHE_DIR"
	EnvCacheEnable = "RESPCACHE_ENABLED"
)

// Config represents the application configuration
type Config struct {
	Server ServerConfig `koanf:"server" yaml:"server"`
	Cache  CacheConfig  `koanf:"cache" yaml:"cache"`
	Rules  RulesConfig  `koanf:"rules" yaml:"rules"`
	Log    LogConfig    `koanf:"log" yaml:"log"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port  int         `koanf:"port" yaml:"port"`
	HTTPS HTTPSConfig `koanf:"https" yaml:"https"`
}

// HTTPSConfig controls TLS interception
type HTTPSConfig struct {
	// MITM intercepts CONNECT tunnels so HTTPS responses become cacheable.
	// Off, HTTPS traffic tunnels through untouched.
	MITM       bool   `koanf:"mitm" yaml:"mitm"`
	CACertFile string `koanf:"ca_cert_file" yaml:"ca_cert_file,omitempty"`
	CAKeyFile  string `koanf:"ca_key_file" yaml:"ca_key_file,omitempty"`
	// TransparentPort accepts direct TLS connections without a CONNECT
	// request when set. Requires MITM.
	TransparentPort int `koanf:"transparent_port" yaml:"transparent_port,omitempty"`
}

// CacheConfig contains cache-related configuration
type CacheConfig struct {
	Folder string `koanf:"folder" yaml:"folder"`
	// Enabled gates all cache IO. Off, the proxy still runs but every
	// request goes upstream.
	Enabled bool `koanf:"enabled" yaml:"enabled"`
	// Freshness is a Go duration ("90s", "24h"), "until-cleared" or
	// "same-day".
	Freshness string `koanf:"freshness" yaml:"freshness"`
}

// RulesConfig contains caching rules configuration
type RulesConfig struct {
	Mode  string      `koanf:"mode" yaml:"mode"` // "whitelist" or "blacklist"
	Rules []CacheRule `koanf:"rules" yaml:"rules"`
}

// CacheRule defines a caching rule
type CacheRule struct {
	BaseURI  string   `koanf:"base_uri" yaml:"base_uri"`
	Methods  []string `koanf:"methods" yaml:"methods,omitempty"`
	Statuses []string `koanf:"statuses" yaml:"statuses,omitempty"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `koanf:"level" yaml:"level"`
	// File enables rotated file logging when set; stdout stays on either
	// way.
	File       string `koanf:"file" yaml:"file,omitempty"`
	MaxSizeMB  int    `koanf:"max_size_mb" yaml:"max_size_mb,omitempty"`
	MaxBackups int    `koanf:"max_backups" yaml:"max_backups,omitempty"`
	Compress   bool   `koanf:"compress" yaml:"compress,omitempty"`
}

// Default returns the built-in configuration. It doubles as the template
// written by init-config.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8080},
		Cache: CacheConfig{
			Folder:    "cache",
			Enabled:   true,
			Freshness: "until-cleared",
		},
		Rules: RulesConfig{
			Mode: "blacklist",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// Load reads the YAML file at path on top of the built-in defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading config defaults: %w", err)
	}
	if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	return &config, nil
}

// GetFreshness parses and returns the configured freshness policy
func (c *Config) GetFreshness() (cache.Freshness, error) {
	return ParseFreshness(c.Cache.Freshness)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Cache.Folder == "" {
		return fmt.Errorf("cache folder is required")
	}

	if c.Cache.Freshness == "" {
		return fmt.Errorf("cache freshness is required")
	}

	if _, err := c.GetFreshness(); err != nil {
		return fmt.Errorf("invalid cache freshness: %w", err)
	}

	if c.Rules.Mode != "whitelist" && c.Rules.Mode != "blacklist" {
		return fmt.Errorf("rules mode must be 'whitelist' or 'blacklist', got: %s", c.Rules.Mode)
	}

	for _, rule := range c.Rules.Rules {
		for _, pattern := range rule.Statuses {
			if !validStatusPattern(pattern) {
				return fmt.Errorf("invalid status pattern %q in rule %q", pattern, rule.BaseURI)
			}
		}
	}

	https := c.Server.HTTPS
	if (https.CACertFile == "") != (https.CAKeyFile == "") {
		return fmt.Errorf("ca_cert_file and ca_key_file must be set together")
	}
	if https.TransparentPort != 0 {
		if https.TransparentPort < 0 || https.TransparentPort > 65535 {
			return fmt.Errorf("invalid transparent port: %d", https.TransparentPort)
		}
		if !https.MITM {
			return fmt.Errorf("transparent_port requires mitm to be enabled")
		}
	}

	return nil
}

// MatchesStatusCode reports whether a status code matches a pattern: an
// exact code ("200"), a class wildcard ("2xx") or "*".
func MatchesStatusCode(statusCode int, pattern string) bool {
	p := strings.ToLower(strings.TrimSpace(pattern))
	if p == "*" {
		return true
	}
	if len(p) == 3 && strings.HasSuffix(p, "xx") {
		return statusCode/100 == int(p[0]-'0')
	}
	code, err := strconv.Atoi(p)
	if err != nil {
		return false
	}
	return statusCode == code
}

func validStatusPattern(pattern string) bool {
	p := strings.ToLower(strings.TrimSpace(pattern))
	if p == "*" {
		return true
	}
	if len(p) != 3 {
		return false
	}
	if strings.HasSuffix(p, "xx") {
		return p[0] >= '1' && p[0] <= '5'
	}
	_, err := strconv.Atoi(p)
	return err == nil
}

// Resolve applies environment overrides and turns the cache section into the
// engine's runtime settings. An unset folder, or one that cannot be created,
// disables caching instead of failing, so the proxy degrades to a passthrough.
func (c *Config) Resolve() cache.Config {
	folder := c.Cache.Folder
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		folder = dir
	}
	if folder == "" {
		// filepath.Abs("") would bind the cache to the working directory.
		logrus.Warn("Disabling cache, no cache folder configured")
		return cache.Config{Disabled: true}
	}

	enabled := c.Cache.Enabled
	if v, ok := os.LookupEnv(EnvCacheEnable); ok {
		parsed, err := ParseEnabled(v)
		if err != nil {
			logrus.Warnf("Ignoring %s: %v", EnvCacheEnable, err)
		} else {
			enabled = parsed
		}
	}

	abs, err := filepath.Abs(folder)
	if err != nil {
		logrus.Warnf("Disabling cache, cannot resolve folder %q: %v", folder, err)
		return cache.Config{Disabled: true}
	}
	if enabled {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			logrus.Warnf("Disabling cache, cannot create folder %q: %v", abs, err)
			return cache.Config{Disabled: true}
		}
	}

	return cache.Config{Root: abs, Disabled: !enabled}
}

// ParseFreshness turns a freshness mode string into a cache policy. It
// accepts a positive Go duration, "until-cleared" or "same-day".
func ParseFreshness(s string) (cache.Freshness, error) {
	t := strings.TrimSpace(s)
	switch strings.ToLower(t) {
	case "until-cleared":
		return cache.UntilCleared, nil
	case "same-day":
		return cache.SameDay, nil
	}

	d, err := time.ParseDuration(t)
	if err != nil {
		return 0, fmt.Errorf("invalid freshness %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("freshness duration must be positive, got %q", s)
	}
	return cache.TTL(d), nil
}

// ParseEnabled reads a permissive boolean: true/false, 1/0, yes/no, any
// case. Empty means enabled, so an unset override keeps caching on.
func ParseEnabled(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid enabled flag: %q", s)
}

// WriteDefault writes the default configuration as a YAML template. It
// refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
