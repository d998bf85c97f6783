package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/spawnd/internal/history/factory"
	"github.com/loykin/spawnd/internal/metrics"
	"github.com/loykin/spawnd/internal/server"
	"github.com/loykin/spawnd/internal/supervisor"

	"github.com/prometheus/client_golang/prometheus"
)

// Daemon runs the control daemon for the selected instance. Unless
// foreground is set, the process re-execs itself detached first and the
// parent exits.
func (c command) Daemon(foreground bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	paths := cfg.Paths()
	if paths.Running() {
		return fmt.Errorf("daemon instance %q is already running", paths.Name)
	}
	if err := paths.Ensure(); err != nil {
		return err
	}

	if !foreground {
		// Re-exec detached; the child runs this same command in foreground
		// mode and the parent exits after recording the child PID.
		return daemonize(paths)
	}

	logger := cfg.Log.New()

	if err := paths.WritePID(os.Getpid()); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer paths.RemovePID()

	sup := supervisor.New(supervisor.Config{
		LogDir:      paths.LogDir,
		GracePeriod: cfg.GracePeriod,
		Instance:    paths.Name,
		Logger:      logger,
	})

	if sink, err := factory.FromDSN(cfg.HistoryDSN); err != nil {
		logger.Error("history sink unavailable", "dsn", cfg.HistoryDSN, "error", err)
	} else if sink != nil {
		sup.SetHistorySinks(sink)
		defer func() { _ = sink.Close() }()
	}

	if cfg.MetricsListen != "" {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			logger.Error("metrics registration failed", "error", err)
		} else {
			ms := metrics.NewServer(cfg.MetricsListen)
			defer func() { _ = ms.Close() }()
			logger.Info("metrics server listening", "addr", cfg.MetricsListen)
		}
	}

	srv := server.New(paths.Socket, sup, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig.String())
		srv.Stop()
	}()

	logger.Info("starting daemon", "instance", paths.Name, "dir", paths.Dir)
	return srv.Serve()
}
