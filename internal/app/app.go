// Package app содержит основную структуру приложения и логику инициализации.
// Предоставляет точку входа для запуска HTTP сервера вебхука с настроенными
// маршрутами и middleware.
package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/InQaaaaGit/filerelay/internal/config"
	"github.com/InQaaaaGit/filerelay/internal/handler"
	"github.com/InQaaaaGit/filerelay/internal/middleware"
	"github.com/InQaaaaGit/filerelay/internal/service"
	"github.com/InQaaaaGit/filerelay/internal/shortener"
	"github.com/InQaaaaGit/filerelay/internal/storage"
)

// App представляет приложение бота-пересыльщика файлов.
// Инкапсулирует конфигурацию, HTTP роутер, логгер и обработчик вебхука.
type App struct {
	config  *config.Config
	router  *chi.Mux
	logger  *zap.Logger
	handler *handler.Handler
}

// NewApp создает и инициализирует новый экземпляр приложения.
// Привязка к платформе передается извне: production использует
// telegram.Client, тесты - заглушку.
func NewApp(cfg *config.Config, messenger service.Messenger, botName string, logger *zap.Logger) *App {
	provider := shortener.New(cfg.ShortenerDomain, cfg.ShortenerKey, logger)
	relay := service.NewRelay(cfg, botName, messenger, provider,
		storage.NewBatchStore(logger), storage.NewSessionStore(), logger)

	a := &App{
		config:  cfg,
		router:  chi.NewRouter(),
		logger:  logger,
		handler: handler.NewHandler(relay, cfg, logger),
	}
	a.setupRoutes()
	return a
}

// setupRoutes настраивает HTTP маршруты и middleware приложения.
func (a *App) setupRoutes() {
	// Middleware
	a.router.Use(middleware.LoggerMiddleware(a.logger))

	// Routes
	a.router.Post("/webhook/{secret}", a.handler.HandleWebhook)
	a.router.Get("/ping", a.handler.HandlePing)
}

// GetServer создает и возвращает настроенный HTTP сервер.
// Использует текущий роутер приложения как обработчик запросов.
func (a *App) GetServer() *http.Server {
	return &http.Server{
		Addr:         a.config.ServerAddress,
		Handler:      a.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
