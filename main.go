package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/najahiiii/marzban-exporter/internal/config"
	"github.com/najahiiii/marzban-exporter/internal/host"
	"github.com/najahiiii/marzban-exporter/internal/logger"
	"github.com/najahiiii/marzban-exporter/internal/metrics"
	"github.com/najahiiii/marzban-exporter/internal/panel"
	"github.com/najahiiii/marzban-exporter/internal/scheduler"
	"github.com/najahiiii/marzban-exporter/internal/server"
	"github.com/najahiiii/marzban-exporter/internal/setup"
	"github.com/najahiiii/marzban-exporter/internal/state"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		cfgPath     string
		once        bool
		install     bool
		setURL      string
		setUsername string
		setPassword string
	)
	flag.StringVar(&cfgPath, "config", "", "optional path to config.yaml; environment variables override it")
	flag.BoolVar(&once, "once", false, "run a single refresh, print the metrics and exit")
	flag.BoolVar(&install, "install", false, "write a sample config and install the systemd unit, then exit")
	flag.StringVar(&setURL, "set-url", "", "update panel.base_url in the config file and exit")
	flag.StringVar(&setUsername, "set-username", "", "update panel.username in the config file and exit")
	flag.StringVar(&setPassword, "set-password", "", "update panel.password in the config file and exit")
	flag.Parse()

	if install || setURL != "" || setUsername != "" || setPassword != "" {
		os.Exit(runSetup(cfgPath, install, setup.PanelOptions{
			BaseURL:  setURL,
			Username: setUsername,
			Password: setPassword,
		}))
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if once {
		log = logger.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	}

	var extra []prometheus.Collector
	if cfg.Metrics.Host {
		extra = append(extra, host.New(cfg.Metrics.Namespace, log))
	}
	reg, err := metrics.NewRegistry(cfg.Metrics.Namespace, extra...)
	if err != nil {
		log.Error("build metrics registry", "err", err)
		os.Exit(1)
	}

	client := panel.NewClient(cfg, log)
	status := state.New()
	sched := scheduler.New(cfg, log, client, reg, status)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if once {
		code := runOnce(ctx, sched, reg)
		cancel()
		os.Exit(code)
	}

	log.Info("exporter starting",
		"panel", cfg.Panel.BaseURL,
		"listen", cfg.Server.ListenAddr,
		"interval", cfg.UpdateInterval(),
	)

	srv := server.New(cfg, log, reg.Gatherer(), status)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil {
		log.Error("exporter stopped", "err", err)
		os.Exit(1)
	}
	log.Info("exporter stopped")
}

func runOnce(ctx context.Context, sched *scheduler.Scheduler, reg *metrics.Registry) int {
	if err := sched.RefreshOnce(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "refresh: %v\n", err)
		return 1
	}
	out, err := reg.Render()
	if err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		return 1
	}
	if _, err := os.Stdout.Write(out); err != nil {
		return 1
	}
	return 0
}

func runSetup(cfgPath string, install bool, panel setup.PanelOptions) int {
	if cfgPath == "" {
		cfgPath = setup.DefaultConfigPath
	}
	log := logger.New("info", "text")

	if panel.BaseURL != "" || panel.Username != "" || panel.Password != "" {
		panel.ConfigPath = cfgPath
		panel.Logger = log
		if err := setup.UpdatePanel(panel); err != nil {
			fmt.Fprintf(os.Stderr, "update config: %v\n", err)
			return 1
		}
	}
	if install {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if err := setup.Install(ctx, setup.Options{ConfigPath: cfgPath, Logger: log}); err != nil {
			fmt.Fprintf(os.Stderr, "install: %v\n", err)
			return 1
		}
	}
	return 0
}
