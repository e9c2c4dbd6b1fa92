package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"voice-nav/config"
	"voice-nav/internal/application"
	"voice-nav/internal/infra"
	"voice-nav/internal/infra/audio"
	"voice-nav/internal/infra/gemini"
	"voice-nav/internal/infra/httpapi"
	"voice-nav/internal/infra/location"
	"voice-nav/internal/infra/maps"
	"voice-nav/internal/infra/pushover"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to dotenv file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("loading env file", "path", *envPath, "error", err)
	}

	cfg, err := config.Load(*configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("config file not found, using defaults", "path", *configPath)
		cfg = config.Default()
	case err != nil:
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	retry := retryConfig(cfg.Retry, logger)

	geminiClient := gemini.NewClient(cfg.Gemini.APIKey)
	if cfg.Gemini.BaseURL != "" {
		geminiClient = gemini.NewClientWithURL(cfg.Gemini.APIKey, cfg.Gemini.BaseURL)
	}
	geminiClient.WithRetryConfig(retry)
	if !geminiClient.HasCredential() {
		logger.Warn("API_KEY not set, voice and route features are disabled")
	}

	liveLogger := logger.With("component", "gemini-live")
	liveClient := gemini.NewLiveClient(cfg.Gemini.APIKey, cfg.Gemini.LiveModel, liveLogger)
	if cfg.Gemini.LiveURL != "" {
		liveClient = gemini.NewLiveClientWithURL(cfg.Gemini.APIKey, cfg.Gemini.LiveModel, cfg.Gemini.LiveURL, liveLogger)
	}

	mapsLogger := logger.With("component", "maps")
	mapsProvider := maps.NewProvider(cfg.Maps.APIKey, mapsLogger)
	if cfg.Maps.BaseURL != "" {
		mapsProvider = maps.NewProviderWithURL(cfg.Maps.APIKey, cfg.Maps.BaseURL, mapsLogger)
	}
	mapsProvider.WithRetryConfig(retry)

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey).WithRetryConfig(retry)
	} else {
		notifier = &application.NoopNotifier{}
	}

	services := application.Services{
		Live:    liveClient,
		Capture: createCapture(cfg.Audio, logger),
		Resolver: gemini.NewDirectionsService(geminiClient, cfg.Gemini.DirectionsModel,
			logger.With("component", "directions")),
		Speech: gemini.NewSpeechService(geminiClient, cfg.Gemini.SpeechModel, cfg.Gemini.Voice,
			logger.With("component", "speech")),
		Player:   createPlayer(cfg.Audio, logger),
		Locator:  createLocator(cfg.Location, logger),
		Maps:     mapsProvider,
		Notifier: notifier,
	}

	navigator := application.NewNavigator(ctx, services, logger)
	defer navigator.Close()

	server := httpapi.NewServer(cfg.HTTP.Addr, cfg.HTTP.AuthToken, navigator, logger.With("component", "http"))
	server.TrustProxyHeaders(cfg.HTTP.TrustProxy)

	logger.Info("starting voice navigator",
		"capture", cfg.Audio.Capture,
		"player", cfg.Audio.Player,
		"location", cfg.Location.Source,
		"http_addr", cfg.HTTP.Addr,
	)

	if err := server.Start(ctx); err != nil {
		logger.Error("starting HTTP server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()

	if err := server.Stop(); err != nil {
		logger.Error("stopping HTTP server", "error", err)
	}
}

func createCapture(cfg config.AudioConfig, logger *slog.Logger) application.AudioCapture {
	switch cfg.Capture {
	case "microphone":
		return audio.NewMicrophoneCapture(logger.With("component", "microphone"))
	case "file":
		return audio.NewFileCapture(cfg.InputDir, logger.With("component", "file-capture"))
	default:
		logger.Warn("unknown capture source, using microphone", "capture", cfg.Capture)
		return audio.NewMicrophoneCapture(logger.With("component", "microphone"))
	}
}

func createPlayer(cfg config.AudioConfig, logger *slog.Logger) application.AudioPlayer {
	switch cfg.Player {
	case "speaker":
		return audio.NewSpeaker(logger.With("component", "speaker"))
	case "file":
		return audio.NewFilePlayer(cfg.OutputDir, logger.With("component", "file-player"))
	default:
		logger.Warn("unknown audio player, using speaker", "player", cfg.Player)
		return audio.NewSpeaker(logger.With("component", "speaker"))
	}
}

func createLocator(cfg config.LocationConfig, logger *slog.Logger) application.LocationProvider {
	switch cfg.Source {
	case "static":
		return location.NewStatic(cfg.Latitude, cfg.Longitude)
	case "ip":
		lookupURL := cfg.LookupURL
		if lookupURL == "" {
			lookupURL = location.DefaultIPLookupURL
		}
		return location.NewIPLookupWithURL(lookupURL, logger.With("component", "location"))
	case "none":
		return nil
	default:
		logger.Warn("unknown location source, using ip lookup", "source", cfg.Source)
		return location.NewIPLookup(logger.With("component", "location"))
	}
}

func retryConfig(cfg config.RetryConfig, logger *slog.Logger) infra.RetryConfig {
	retry := infra.DefaultRetryConfig()
	initial, maxDelay, err := cfg.Delays()
	if err != nil {
		logger.Warn("invalid retry delays, using defaults", "error", err)
		return retry
	}
	retry.MaxAttempts = cfg.MaxAttempts
	retry.InitialDelay = initial
	retry.MaxDelay = maxDelay
	return retry
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
