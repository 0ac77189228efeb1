package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/netmonitor/internal/api"
	"github.com/dgnsrekt/netmonitor/internal/capture"
	"github.com/dgnsrekt/netmonitor/internal/cdp"
	"github.com/dgnsrekt/netmonitor/internal/config"
	"github.com/dgnsrekt/netmonitor/internal/monitor"
	"github.com/dgnsrekt/netmonitor/internal/netutil"
	"github.com/dgnsrekt/netmonitor/internal/notify"
	"github.com/dgnsrekt/netmonitor/internal/relay"
	"github.com/dgnsrekt/netmonitor/internal/snapshot"
	"github.com/dgnsrekt/netmonitor/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load monitor config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("monitor config loaded",
		"bind_addr", cfg.BindAddr,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"domains", cfg.Domains,
		"rules_file", cfg.RulesFile,
		"max_body_bytes", cfg.MaxBodyBytes,
		"redact", cfg.Redact,
		"export_dir", cfg.ExportDir,
		"snapshot_dir", cfg.SnapshotDir,
		"cdp_enabled", cfg.CDPEnabled,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	redactor, err := buildRedactor(cfg)
	if err != nil {
		slog.Error("invalid redaction rules", "error", err)
		os.Exit(1)
	}

	var snapshots *snapshot.Store
	if cfg.SnapshotDir != "" {
		snapshots, err = snapshot.NewStore(cfg.SnapshotDir)
		if err != nil {
			slog.Error("failed to open snapshot store", "dir", cfg.SnapshotDir, "error", err)
			os.Exit(1)
		}
	}

	svc := monitor.New(monitor.Options{
		Domains:      cfg.Domains,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Redactor:     redactor,
		Snapshots:    snapshots,
	})

	broker := relay.NewBroker()
	svc.Store().Observe(broker.PublishChange)

	if cfg.ExportDir != "" {
		registry := storage.NewWriterRegistry(cfg.ExportDir, cfg.ExportBufferSize, cfg.ExportMaxSizeMB)
		exporter := storage.NewExporter(registry)
		svc.Store().Observe(exporter.OnChange)
		defer func() { _ = exporter.Close() }()
		slog.Info("JSONL export enabled", "dir", cfg.ExportDir)
	}

	var serverOpts []api.Option
	if cfg.NotifyURL != "" {
		// A plain client, so notifications never enter the request log.
		notifier := notify.NewNotifier(&http.Client{Timeout: 10 * time.Second}, cfg.NotifyURL, 100)
		svc.Store().Observe(notifier.OnChange)
		defer notifier.Close()
		serverOpts = append(serverOpts, api.WithNotifier(notifier))
		slog.Info("failure notifications enabled", "endpoint", cfg.NotifyURL)
	}

	if cfg.CDPEnabled {
		tabRegistry := cdp.NewTabRegistry()
		browserCapture := capture.NewBrowserCapture(svc.Recorder(), tabRegistry)
		defer browserCapture.Close()

		cdpClient := cdp.NewClient(cdp.Config{CDPURL: cfg.GetCDPURL(), TabURLFilter: cfg.TabURLFilter}, browserCapture, tabRegistry)
		if err := cdpClient.Connect(context.Background()); err != nil {
			slog.Error("failed to connect browser bridge", "cdp_url", cfg.GetCDPURL(), "error", err)
			os.Exit(1)
		}
		defer func() { _ = cdpClient.Close() }()
		serverOpts = append(serverOpts, api.WithBrowser(cdpClient, browserCapture))
	}

	if cfg.ActivateOnStart {
		if err := svc.Activate(); err != nil {
			slog.Error("failed to activate monitor", "error", err)
			os.Exit(1)
		}
		slog.Info("monitor activated", "domains", svc.Domains())
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.ProbeURL != "" {
		go svc.RunProbe(ctx, cfg.ProbeURL, time.Duration(cfg.ProbeIntervalMS)*time.Millisecond)
	}

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}
	bindAddr := ln.Addr().String()

	srv := &http.Server{Handler: api.NewServer(svc, broker, serverOpts...)}

	go func() {
		slog.Info("monitor listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("monitor server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	stop()
	if svc.Active() {
		if err := svc.Deactivate(); err != nil {
			slog.Error("monitor deactivate failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("monitor shutdown failed", "error", err)
	}
}

// buildRedactor returns nil when redaction is off. Rules that leave a list
// empty keep the built-in defaults for it.
func buildRedactor(cfg *config.Config) (*capture.Redactor, error) {
	if !cfg.Redact {
		return nil, nil
	}
	if cfg.Redaction == nil {
		return capture.DefaultRedactor(), nil
	}
	rc := capture.RedactorConfig{
		SensitiveHeaders: cfg.Redaction.Headers,
		ValuePatterns:    cfg.Redaction.ValuePatterns,
		BodyPaths:        cfg.Redaction.BodyPaths,
		Replacement:      cfg.Redaction.Replacement,
	}
	if len(rc.SensitiveHeaders) == 0 {
		rc.SensitiveHeaders = capture.DefaultSensitiveHeaders
	}
	if len(rc.BodyPaths) == 0 {
		rc.BodyPaths = capture.DefaultBodyPaths
	}
	return capture.NewRedactor(rc)
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
