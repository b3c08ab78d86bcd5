package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/fixflow/fixflow/internal/application/dispatcher"
	"github.com/fixflow/fixflow/internal/application/notification"
	"github.com/fixflow/fixflow/internal/application/port"
	"github.com/fixflow/fixflow/internal/application/service"
	"github.com/fixflow/fixflow/internal/config"
	"github.com/fixflow/fixflow/internal/infrastructure/external/discord"
	"github.com/fixflow/fixflow/internal/infrastructure/external/lark"
	"github.com/fixflow/fixflow/internal/infrastructure/persistence/repository"
	"github.com/fixflow/fixflow/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/fixflow/fixflow/internal/interfaces/http"
	"github.com/fixflow/fixflow/pkg/database"
	"github.com/fixflow/fixflow/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Load .env before the config layer reads the environment.
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting request lifecycle engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories and transaction manager
	txManager := sqlite.NewDB(db.DB, logger)
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	logRepo := repository.NewRequestLogRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	categoryRepo := repository.NewCategoryRepository(db.DB, logger)
	locationRepo := repository.NewLocationRepository(db.DB, logger)

	kvLogger := utils.NewKVLogger(logger)

	// Initialize event dispatcher and notification channels
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(kvLogger))

	var channels []port.NotificationChannel
	if cfg.Discord.Enabled {
		channels = append(channels, discord.NewWebhookChannel(discord.Config{
			WebhookURL: cfg.Discord.WebhookURL,
			Username:   cfg.Discord.Username,
			Timeout:    cfg.Discord.Timeout,
		}, logger))
	}
	if cfg.Lark.Enabled {
		larkClient := lark.NewClient(lark.Config{
			AppID:         cfg.Lark.AppID,
			AppSecret:     cfg.Lark.AppSecret,
			ReceiveIDType: cfg.Lark.ReceiveIDType,
			ReceiveID:     cfg.Lark.ReceiveID,
		}, logger)
		channels = append(channels, lark.NewChannel(larkClient, logger))
	}
	notification.RegisterChannels(d, notification.Policy{
		MaxAttempts: cfg.Notification.MaxAttempts,
		Backoff:     cfg.Notification.Backoff,
	}, channels...)

	logger.Info("Notification channels registered", zap.Int("count", len(channels)))

	// Initialize the lifecycle service
	requestService := service.NewRequestService(
		requestRepo,
		logRepo,
		userRepo,
		categoryRepo,
		locationRepo,
		txManager,
		d,
		kvLogger,
	)

	// Initialize HTTP server
	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, requestService, userRepo, kvLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down server...")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	// Drain in-flight notification deliveries before exit.
	if err := d.Close(); err != nil {
		logger.Error("Dispatcher shutdown failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
