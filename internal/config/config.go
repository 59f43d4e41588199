package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DotEnvPath is the env file read from the working directory, if present.
const DotEnvPath = ".env"

const (
	DefaultUpdateIntervalSec = 60
	DefaultHTTPTimeoutSec    = 10
	DefaultListenAddr        = ":8050"
	DefaultLoginBurst        = 3
	DefaultLoginIntervalSec  = 1
)

type Config struct {
	Panel struct {
		BaseURL     string `yaml:"base_url"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TimeoutSec  int    `yaml:"timeout_sec"`
		TLSInsecure bool   `yaml:"tls_insecure"`
	} `yaml:"panel"`

	Auth struct {
		LoginBurst       int `yaml:"login_burst"`
		LoginIntervalSec int `yaml:"login_interval_sec"`
	} `yaml:"auth"`

	Intervals struct {
		UpdateSec int `yaml:"update_sec"`
	} `yaml:"intervals"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`

	Metrics struct {
		Namespace string `yaml:"namespace"`
		Host      bool   `yaml:"host"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// ConfigError reports a missing or unusable setting. It is fatal at startup.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// Load reads the optional YAML file at path, overlays the environment and
// applies defaults. An empty path skips the file. Variables from a .env file
// in the working directory fill in whatever the real environment leaves
// empty.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	dotenv, err := godotenv.Read(DotEnvPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("parse %s: %w", DotEnvPath, err)
	}
	if err := cfg.applyEnv(envLookup(dotenv)); err != nil {
		return nil, err
	}

	for _, req := range []struct{ key, val string }{
		{"URL", cfg.Panel.BaseURL},
		{"USERNAME", cfg.Panel.Username},
		{"PASSWORD", cfg.Panel.Password},
	} {
		if req.val == "" {
			return nil, &ConfigError{Key: req.key, Reason: "required"}
		}
	}
	if !strings.HasPrefix(cfg.Panel.BaseURL, "http://") && !strings.HasPrefix(cfg.Panel.BaseURL, "https://") {
		return nil, &ConfigError{Key: "URL", Reason: "must start with http:// or https://"}
	}
	cfg.Panel.BaseURL = strings.TrimRight(cfg.Panel.BaseURL, "/")

	if cfg.Intervals.UpdateSec == 0 {
		cfg.Intervals.UpdateSec = DefaultUpdateIntervalSec
	}
	if cfg.Intervals.UpdateSec < 0 {
		return nil, &ConfigError{Key: "UPDATE_INTERVAL", Reason: "must be positive"}
	}
	if cfg.Panel.TimeoutSec <= 0 {
		cfg.Panel.TimeoutSec = DefaultHTTPTimeoutSec
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Auth.LoginBurst <= 0 {
		cfg.Auth.LoginBurst = DefaultLoginBurst
	}
	if cfg.Auth.LoginIntervalSec <= 0 {
		cfg.Auth.LoginIntervalSec = DefaultLoginIntervalSec
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	return &cfg, nil
}

func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Intervals.UpdateSec) * time.Second
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Panel.TimeoutSec) * time.Second
}

func (c *Config) LoginInterval() time.Duration {
	return time.Duration(c.Auth.LoginIntervalSec) * time.Second
}

// envLookup prefers the process environment over the .env values.
func envLookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(dotenv[key])
	}
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString(getenv, &c.Panel.BaseURL, "URL")
	setString(getenv, &c.Panel.Username, "USERNAME")
	setString(getenv, &c.Panel.Password, "PASSWORD")
	setString(getenv, &c.Server.ListenAddr, "LISTEN_ADDR")
	setString(getenv, &c.Logging.Level, "LOG_LEVEL")
	setString(getenv, &c.Logging.Format, "LOG_FORMAT")
	setString(getenv, &c.Metrics.Namespace, "METRICS_NAMESPACE")

	for _, v := range []struct {
		key string
		dst *int
	}{
		{"UPDATE_INTERVAL", &c.Intervals.UpdateSec},
		{"HTTP_TIMEOUT", &c.Panel.TimeoutSec},
		{"LOGIN_BURST", &c.Auth.LoginBurst},
		{"LOGIN_INTERVAL", &c.Auth.LoginIntervalSec},
	} {
		if err := setInt(getenv, v.dst, v.key); err != nil {
			return err
		}
	}

	for _, v := range []struct {
		key string
		dst *bool
	}{
		{"TLS_INSECURE", &c.Panel.TLSInsecure},
		{"HOST_METRICS", &c.Metrics.Host},
	} {
		if err := setBool(getenv, v.dst, v.key); err != nil {
			return err
		}
	}
	return nil
}

func setString(getenv func(string) string, dst *string, key string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}

func setInt(getenv func(string) string, dst *int, key string) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return &ConfigError{Key: key, Reason: fmt.Sprintf("invalid integer %q", v)}
	}
	if n <= 0 {
		return &ConfigError{Key: key, Reason: "must be positive"}
	}
	*dst = n
	return nil
}

func setBool(getenv func(string) string, dst *bool, key string) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return &ConfigError{Key: key, Reason: fmt.Sprintf("invalid boolean %q", v)}
	}
	*dst = b
	return nil
}
