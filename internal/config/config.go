// Package config loads settings for both binaries: an optional .env file,
// built-in defaults, an optional YAML file, then EVENTDESK_* environment
// variables, each layer overriding the one before.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
)

const envPrefix = "EVENTDESK_"

// RemoteConfig locates the events API used by the UI shell.
type RemoteConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// BrowseConfig holds list and navigation defaults.
type BrowseConfig struct {
	PageSize  int    `yaml:"page_size"`
	PageSizes []int  `yaml:"page_sizes"`
	Sort      string `yaml:"sort"`
	// DeleteRedirectDelay is how long the "deleted" confirmation stays up.
	DeleteRedirectDelay time.Duration `yaml:"delete_redirect_delay"`
}

// ServerConfig configures the reference API binary.
type ServerConfig struct {
	Listen      string   `yaml:"listen"`
	DBPath      string   `yaml:"db_path"`
	Prefix      string   `yaml:"prefix"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Config is the top-level configuration.
type Config struct {
	// Listen is the UI shell's HTTP address.
	Listen    string `yaml:"listen"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// WriteLimit caps form submissions and deletes per client per minute; 0 disables.
	WriteLimit int `yaml:"write_limit"`

	Remote RemoteConfig `yaml:"remote"`
	Browse BrowseConfig `yaml:"browse"`
	Server ServerConfig `yaml:"server"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:     ":4200",
		LogLevel:   "info",
		LogFormat:  "text",
		WriteLimit: 60,
		Remote: RemoteConfig{
			BaseURL: "http://localhost:8080/gestaoEventosBackend/evento",
			Timeout: 15 * time.Second,
		},
		Browse: BrowseConfig{
			PageSize:            6,
			PageSizes:           []int{3, 6, 12, 24},
			Sort:                "dataHora,asc",
			DeleteRedirectDelay: 1500 * time.Millisecond,
		},
		Server: ServerConfig{
			Listen:      ":8080",
			DBPath:      "events.db",
			Prefix:      "/gestaoEventosBackend/evento",
			CORSOrigins: []string{"http://localhost:4200"},
		},
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// EVENTDESK_CONFIG is consulted, and with neither only defaults and
// environment apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	list := func(key string) []string {
		v, ok := lookup(envPrefix + key)
		if !ok || v == "" {
			return nil
		}
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	str("LISTEN", &c.Listen)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	num("WRITE_LIMIT", &c.WriteLimit)
	str("API_URL", &c.Remote.BaseURL)
	dur("API_TIMEOUT", &c.Remote.Timeout)
	num("PAGE_SIZE", &c.Browse.PageSize)
	str("SORT", &c.Browse.Sort)
	dur("DELETE_REDIRECT_DELAY", &c.Browse.DeleteRedirectDelay)
	str("SERVER_LISTEN", &c.Server.Listen)
	str("DB_PATH", &c.Server.DBPath)
	str("API_PREFIX", &c.Server.Prefix)

	if sizes := list("PAGE_SIZES"); sizes != nil {
		c.Browse.PageSizes = nil
		for _, s := range sizes {
			n, err := strconv.Atoi(s)
			if err != nil {
				errs = append(errs, fmt.Errorf("%sPAGE_SIZES: %w", envPrefix, err))
				continue
			}
			c.Browse.PageSizes = append(c.Browse.PageSizes, n)
		}
	}
	if origins := list("CORS_ORIGINS"); origins != nil {
		c.Server.CORSOrigins = origins
	}
	return errors.Join(errs...)
}

// Validate rejects settings the binaries cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if u, err := url.Parse(c.Remote.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("remote base url %q must be an absolute http(s) URL", c.Remote.BaseURL))
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("remote timeout %s must be positive", c.Remote.Timeout))
	}
	if c.Browse.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("page size %d must be positive", c.Browse.PageSize))
	}
	for _, n := range c.Browse.PageSizes {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("page size option %d must be positive", n))
		}
	}
	if len(c.Browse.PageSizes) > 0 && !slices.Contains(c.Browse.PageSizes, c.Browse.PageSize) {
		errs = append(errs, fmt.Errorf("page size %d is not one of the options %v", c.Browse.PageSize, c.Browse.PageSizes))
	}
	if _, err := model.ParseSort(c.Browse.Sort); err != nil {
		errs = append(errs, err)
	}
	if c.Browse.DeleteRedirectDelay < 0 {
		errs = append(errs, fmt.Errorf("delete redirect delay %s must not be negative", c.Browse.DeleteRedirectDelay))
	}
	if c.WriteLimit < 0 {
		errs = append(errs, fmt.Errorf("write limit %d must not be negative", c.WriteLimit))
	}
	if c.Server.Prefix != "" && !strings.HasPrefix(c.Server.Prefix, "/") {
		errs = append(errs, fmt.Errorf("api prefix %q must start with /", c.Server.Prefix))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SortOrder returns the parsed browse sort. Validate has already checked it.
func (c *Config) SortOrder() model.Sort {
	s, err := model.ParseSort(c.Browse.Sort)
	if err != nil {
		return model.DefaultSort
	}
	return s
}
