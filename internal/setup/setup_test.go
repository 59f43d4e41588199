package setup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/najahiiii/marzban-exporter/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
	fail  string
}

func (r *recorder) run(_ context.Context, name string, args ...string) error {
	call := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, call)
	if call == r.fail {
		return errors.New("exit status 1")
	}
	return nil
}

func TestInstallWritesFilesAndEnablesUnit(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	opts := Options{
		ConfigPath:  filepath.Join(dir, "etc", "config.yaml"),
		ServicePath: filepath.Join(dir, "systemd", "marzban-exporter.service"),
		Run:         rec.run,
	}

	require.NoError(t, Install(context.Background(), opts))

	cfg, err := os.ReadFile(opts.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, embeddedConfig, cfg)

	unit, err := os.ReadFile(opts.ServicePath)
	require.NoError(t, err)
	assert.Contains(t, string(unit), "ExecStart=/usr/local/bin/marzban-exporter")

	assert.Equal(t, []string{
		"systemctl daemon-reload",
		"systemctl enable --now marzban-exporter",
	}, rec.calls)
}

func TestInstallKeepsExistingConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("panel:\n  base_url: http://mine\n"), 0o600))

	rec := &recorder{}
	err := Install(context.Background(), Options{
		ConfigPath:  path,
		ServicePath: filepath.Join(dir, "unit.service"),
		Run:         rec.run,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "panel:\n  base_url: http://mine\n", string(data))
}

func TestInstallReportsSystemctlFailure(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{fail: "systemctl daemon-reload"}
	err := Install(context.Background(), Options{
		ConfigPath:  filepath.Join(dir, "config.yaml"),
		ServicePath: filepath.Join(dir, "unit.service"),
		Run:         rec.run,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon-reload")
	assert.Len(t, rec.calls, 1)
}

func TestUpdatePanelFromSample(t *testing.T) {
	for _, key := range []string{"URL", "USERNAME", "PASSWORD", "UPDATE_INTERVAL", "HTTP_TIMEOUT", "TLS_INSECURE", "LISTEN_ADDR", "LOG_LEVEL", "LOG_FORMAT", "METRICS_NAMESPACE", "HOST_METRICS", "LOGIN_BURST", "LOGIN_INTERVAL"} {
		t.Setenv(key, "")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")

	err := UpdatePanel(PanelOptions{
		ConfigPath: path,
		BaseURL:    "https://marzban.example.org/",
		Password:   "hunter2",
	})
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://marzban.example.org", cfg.Panel.BaseURL)
	assert.Equal(t, "admin", cfg.Panel.Username)
	assert.Equal(t, "hunter2", cfg.Panel.Password)
	assert.Equal(t, 60, cfg.Intervals.UpdateSec)
}

func TestUpdatePanelRequiresAField(t *testing.T) {
	err := UpdatePanel(PanelOptions{ConfigPath: filepath.Join(t.TempDir(), "config.yaml")})
	require.Error(t, err)
}
