package main

import (
	"log"
	"strings"

	"go.uber.org/zap"

	"github.com/InQaaaaGit/filerelay/internal/app"
	"github.com/InQaaaaGit/filerelay/internal/buildinfo"
	"github.com/InQaaaaGit/filerelay/internal/config"
	"github.com/InQaaaaGit/filerelay/internal/telegram"
)

// Заполняются при сборке через ldflags
var (
	buildVersion = "N/A"
	buildDate    = "N/A"
	buildCommit  = "N/A"
)

func main() {
	buildinfo.NewInfo(buildVersion, buildDate, buildCommit).Print()

	// Инициализация логгера
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("Error syncing logger: %v", err)
		}
	}()

	// Инициализация конфигурации
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatal("Error loading config", zap.Error(err))
	}

	// Подключение к Bot API
	client, err := telegram.NewClient(cfg.BotToken, cfg.StorageChannel, logger)
	if err != nil {
		logger.Fatal("Error connecting to Bot API", zap.Error(err))
	}

	botName := cfg.BotUsername
	if botName == "" {
		botName = client.Username()
	}

	// Регистрация вебхука, если задан публичный URL
	if cfg.WebhookBaseURL != "" {
		webhookURL := strings.TrimRight(cfg.WebhookBaseURL, "/") + "/webhook/" + cfg.WebhookSecret
		if err := client.RegisterWebhook(webhookURL); err != nil {
			logger.Fatal("Error registering webhook", zap.Error(err))
		}
		logger.Info("Webhook registered")
	}

	// Создание приложения и запуск сервера
	application := app.NewApp(cfg, client, botName, logger)
	server := application.GetServer()

	logger.Info("Server starting",
		zap.String("address", cfg.ServerAddress),
		zap.String("bot", botName))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("Server failed to start", zap.Error(err))
	}
}
