package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wainbox/internal/config"
	"wainbox/internal/constants"
	"wainbox/internal/database"
	"wainbox/internal/metrics"
	"wainbox/internal/models"
	"wainbox/internal/service"
	"wainbox/internal/tracing"
	"wainbox/pkg/circuitbreaker"
	pkgconstants "wainbox/pkg/constants"
	"wainbox/pkg/whatsapp"
	"wainbox/pkg/whatsapp/types"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sender numbers and names)")
	configPath = flag.String("config", "", "Path to JSON configuration file (defaults and environment only when empty)")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("wainbox %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting wainbox")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	configureLogLevel(logger, cfg.LogLevel, *verbose)

	tracingManager := tracing.NewTracingManager(tracingConfig(cfg), logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	db, err := database.New(cfg.Database.Path, &cfg.Database, database.EncryptionConfig{
		Enabled: cfg.Security.EncryptAtRest,
		Secret:  cfg.Security.SecretKey,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.WithFields(logrus.Fields{
		"path":            cfg.Database.Path,
		"encrypt_at_rest": cfg.Security.EncryptAtRest,
	}).Info("Database ready")

	location, err := inboxLocation(cfg.Inbox.Timezone)
	if err != nil {
		return err
	}

	if cfg.WhatsApp.AccessToken == "" || cfg.WhatsApp.PhoneNumberID == "" {
		logger.Warn("WHATSAPP_TOKEN or WHATSAPP_PHONE_NUMBER_ID is not set; template sends will be refused")
	}

	breaker := circuitbreaker.New("whatsapp",
		pkgconstants.DefaultBreakerMaxFailures,
		time.Duration(pkgconstants.DefaultBreakerCooldownSec)*time.Second,
		logger)
	waClient := whatsapp.NewClient(types.ClientConfig{
		BaseURL:        cfg.WhatsApp.APIBaseURL,
		AccessToken:    cfg.WhatsApp.AccessToken,
		PhoneNumberID:  cfg.WhatsApp.PhoneNumberID,
		Timeout:        time.Duration(cfg.WhatsApp.TimeoutSec) * time.Second,
		CircuitBreaker: breaker,
	})

	registry := metrics.NewRegistry()
	server := NewServer(cfg,
		service.NewWebhookIngestor(db, logger, location, registry),
		service.NewTemplateDispatcher(dispatcherConfig(cfg), db, waClient, logger, registry),
		service.NewInboxService(db, cfg.Inbox.ListLimit),
		db,
		registry,
		logger,
		*verbose,
	)

	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

func configureLogLevel(logger *logrus.Logger, configured string, verbose bool) {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sender details will be logged")
		return
	}

	level, err := logrus.ParseLevel(configured)
	if err != nil {
		logger.Warnf("Invalid log level %q, defaulting to info", configured)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func tracingConfig(cfg *models.Config) tracing.TracingConfig {
	tc := tracing.DefaultTracingConfig()
	tc.Enabled = cfg.Tracing.Enabled
	tc.UseStdout = cfg.Tracing.UseStdout
	if cfg.Tracing.ServiceName != "" {
		tc.ServiceName = cfg.Tracing.ServiceName
	}
	if cfg.Tracing.ServiceVersion != "" {
		tc.ServiceVersion = cfg.Tracing.ServiceVersion
	} else {
		tc.ServiceVersion = Version
	}
	if cfg.Tracing.Environment != "" {
		tc.Environment = cfg.Tracing.Environment
	}
	if cfg.Tracing.OTLPEndpoint != "" {
		tc.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	}
	if cfg.Tracing.SampleRate > 0 {
		tc.SampleRate = cfg.Tracing.SampleRate
	}
	return tc
}

func dispatcherConfig(cfg *models.Config) service.DispatcherConfig {
	return service.DispatcherConfig{
		AccessToken:     cfg.WhatsApp.AccessToken,
		PhoneNumberID:   cfg.WhatsApp.PhoneNumberID,
		DefaultTemplate: cfg.WhatsApp.DefaultTemplate,
		LanguageCode:    cfg.WhatsApp.LanguageCode,
	}
}

// inboxLocation resolves the zone received timestamps are rendered in
func inboxLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid inbox timezone %q: %w", name, err)
	}
	return loc, nil
}
