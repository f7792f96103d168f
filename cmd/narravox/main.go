package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxline/narravox/internal/api"
	"github.com/voxline/narravox/internal/artifact"
	"github.com/voxline/narravox/internal/audio"
	"github.com/voxline/narravox/internal/config"
	"github.com/voxline/narravox/internal/jobs"
	"github.com/voxline/narravox/internal/logging"
	"github.com/voxline/narravox/internal/observe"
	"github.com/voxline/narravox/internal/tts"
	"github.com/voxline/narravox/internal/tts/elevenlabs"
	"github.com/voxline/narravox/internal/tts/openai"
	"github.com/voxline/narravox/internal/tts/piper"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Use stderr before logger is initialized
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
	logger.Info("starting narravox", "version", "0.1.0")

	if cfg.AuthDisabled() {
		logger.Warn("HTTP bearer authentication is disabled (BEARER_TOKEN is empty)")
	}

	logger.Info("configuration loaded",
		"log_level", cfg.Server.LogLevel,
		"log_format", cfg.Server.LogFormat,
		"listen_addr", cfg.Server.ListenAddr,
		"max_text_length", cfg.Synthesis.MaxTextLength,
		"artifact_dir", cfg.Storage.ArtifactDir,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	// Metrics provider with Prometheus bridge for /metrics.
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "narravox",
		ServiceVersion: "0.1.0",
	})
	if err != nil {
		logger.Error("failed to initialize metrics", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics", "error", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// Provider registry. Cloud providers register even without credentials
	// so the API can report them as present-but-unconfigured; Piper only
	// registers when a model is installed.
	registry := tts.NewRegistry()
	registerProvider(registry, logger, openai.New(cfg.Providers.OpenAI.APIKey, logger,
		openai.WithModel(cfg.Providers.OpenAI.Model)))
	registerProvider(registry, logger, elevenlabs.New(cfg.Providers.ElevenLabs.APIKey, logger,
		elevenlabs.WithModelID(cfg.Providers.ElevenLabs.ModelID)))

	if cfg.Providers.Piper.ModelPath != "" {
		piperProvider, err := piper.New(piper.Config{
			BinaryPath:   cfg.Providers.Piper.BinaryPath,
			ModelPath:    cfg.Providers.Piper.ModelPath,
			DefaultVoice: cfg.Providers.Piper.DefaultVoice,
		}, logger)
		if err != nil {
			logger.Warn("failed to initialize Piper TTS", "error", err)
		} else {
			registerProvider(registry, logger, piperProvider)
		}
	}

	if cfg.Synthesis.DefaultProvider != "" {
		if err := registry.SetDefault(cfg.Synthesis.DefaultProvider); err != nil {
			logger.Error("default provider is not registered", "provider", cfg.Synthesis.DefaultProvider)
			os.Exit(1)
		}
	}

	artifacts, err := artifact.NewStore(cfg.Storage.ArtifactDir, logger)
	if err != nil {
		logger.Error("failed to create artifact store", "error", err)
		os.Exit(1)
	}

	stitcher := audio.NewStitcher()
	stitcher.SilenceBetweenMS = *cfg.Synthesis.SilenceBetweenMS
	stitcher.CrossfadeMS = cfg.Synthesis.CrossfadeMS

	manager := jobs.NewManager(registry, jobs.NewStore(), artifacts, stitcher, metrics, logger, jobs.ManagerConfig{
		MaxRetries:     *cfg.Synthesis.MaxRetries,
		InitialBackoff: cfg.Synthesis.InitialBackoff,
	})

	server := api.New(cfg, logger, manager, registry)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		manager.Sweep(gctx, cfg.Storage.SweepInterval, cfg.Storage.Retention)
		return nil
	})
	g.Go(func() error {
		artifacts.Sweep(gctx, cfg.Storage.SweepInterval, cfg.Storage.Retention)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, c := context.WithTimeout(context.Background(), 10*time.Second)
		defer c()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", "error", err)
		}

		// Let in-flight jobs finish writing artifacts.
		manager.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func registerProvider(registry *tts.Registry, logger *slog.Logger, provider tts.Provider) {
	if err := registry.Register(provider); err != nil {
		logger.Warn("failed to register provider", "provider", provider.Name(), "error", err)
		return
	}
	logger.Info("provider registered", "provider", provider.Name(), "configured", provider.Configured())
}
