package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"nivel_exporter/internal/api"
	"nivel_exporter/internal/collector"
	"nivel_exporter/internal/config"
	"nivel_exporter/internal/mapper"
	"nivel_exporter/internal/poller"
	"nivel_exporter/internal/publish"
	"nivel_exporter/internal/server"
	"nivel_exporter/internal/stream"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	order, err := cfg.Order()
	if err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting Nivel Exporter",
		"listen_addr", cfg.ListenAddr,
		"api", cfg.APIBaseURL,
		"order", order.String(),
		"tank", cfg.TankName,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create and register Prometheus collector
	nivelCollector := collector.NewNivelCollector(cfg.TankName)
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		nivelCollector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Live stream hub
	hub := stream.NewHub(logger, server.OriginChecker(cfg.CORSOrigins))
	go hub.Run(ctx)

	sinks := []poller.Sink{hub}
	var closers []io.Closer

	if len(cfg.KafkaBrokers) > 0 {
		kp, err := publish.NewKafkaPublisher(publish.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Key:     cfg.TankName,
		}, logger)
		if err != nil {
			logger.Error("Failed to create Kafka publisher", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, kp)
		closers = append(closers, kp)
	}

	if cfg.MQTTBroker != "" {
		mp, err := publish.NewMQTTPublisher(publish.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		}, logger)
		if err != nil {
			logger.Error("Failed to create MQTT publisher", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, mp)
		closers = append(closers, mp)
	}

	// Poll the telemetry API
	apiClient := api.NewAPIClient(cfg.APIBaseURL, order, cfg.RequestTimeout, logger)
	p := poller.New(apiClient, poller.Options{
		Interval:       cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
		UseBuckets:     cfg.UseBuckets,
		Labels:         mapper.LabelsFor(cfg.StatusLang),
		Sinks:          sinks,
		Observer:       nivelCollector,
	}, logger)
	nivelCollector.SetSource(p)

	if err := p.Start(ctx); err != nil {
		logger.Error("Failed to start poller", "error", err)
		os.Exit(1)
	}

	// Setup HTTP server
	handler := server.NewRouter(server.Options{
		Source:      p,
		Gatherer:    registry,
		Stream:      http.HandlerFunc(hub.ServeWS),
		CORSOrigins: cfg.CORSOrigins,
		AccessLog:   os.Stdout,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	logger.Info("Shutting down gracefully...")

	p.Stop()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}

	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Warn("Failed to close sink", "error", err)
		}
	}

	logger.Info("Exporter stopped")
}

// setupLogger creates a structured logger based on configuration.
func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler

	logLevel := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("component", "nivel-exporter")
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
