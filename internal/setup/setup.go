package setup

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/najahiiii/marzban-exporter/internal/config"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath  = "/etc/marzban-exporter/config.yaml"
	defaultServicePath = "/usr/lib/systemd/system/marzban-exporter.service"
	serviceName        = "marzban-exporter"
)

//go:embed assets/config.yaml
var embeddedConfig []byte

//go:embed assets/marzban-exporter.service
var embeddedService []byte

// Runner executes an external command. Tests replace it.
type Runner func(ctx context.Context, name string, args ...string) error

type Options struct {
	ConfigPath  string
	ServicePath string
	Logger      *slog.Logger
	Run         Runner
}

func (o *Options) withDefaults() {
	if o.ConfigPath == "" {
		o.ConfigPath = DefaultConfigPath
	}
	if o.ServicePath == "" {
		o.ServicePath = defaultServicePath
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Run == nil {
		o.Run = runCmd
	}
}

// Install writes the sample config (if absent) and installs and enables the
// systemd unit.
func Install(ctx context.Context, opts Options) error {
	opts.withDefaults()
	log := opts.Logger

	_, err := os.Stat(opts.ConfigPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Info("writing exporter config", "path", opts.ConfigPath)
		if err := writeFile(opts.ConfigPath, embeddedConfig, 0o600); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
	case err != nil:
		return fmt.Errorf("check config: %w", err)
	default:
		log.Info("config already exists", "path", opts.ConfigPath)
	}

	log.Info("installing systemd unit", "path", opts.ServicePath)
	if err := writeFile(opts.ServicePath, embeddedService, 0o644); err != nil {
		return fmt.Errorf("write service: %w", err)
	}

	if err := opts.Run(ctx, "systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("systemctl daemon-reload: %w", err)
	}
	if err := opts.Run(ctx, "systemctl", "enable", "--now", serviceName); err != nil {
		return fmt.Errorf("systemctl enable --now %s: %w", serviceName, err)
	}
	log.Info("exporter service installed and started")
	return nil
}

type PanelOptions struct {
	ConfigPath string
	BaseURL    string
	Username   string
	Password   string
	Logger     *slog.Logger
}

// UpdatePanel rewrites the panel.* fields of the config file, starting from
// the embedded sample when the file does not exist yet.
func UpdatePanel(opts PanelOptions) error {
	path := opts.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if opts.BaseURL == "" && opts.Username == "" && opts.Password == "" {
		return fmt.Errorf("no panel fields provided for update")
	}

	cfg, err := readConfig(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.BaseURL != "" {
		cfg.Panel.BaseURL = opts.BaseURL
	}
	if opts.Username != "" {
		cfg.Panel.Username = opts.Username
	}
	if opts.Password != "" {
		cfg.Panel.Password = opts.Password
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := writeFile(path, out, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	log.Info("updated exporter panel settings", "path", path)
	return nil
}

// readConfig decodes the file without validation so partially filled
// configs can be completed.
func readConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		data = embeddedConfig
	} else if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

func runCmd(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
