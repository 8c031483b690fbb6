// Package config отвечает за конфигурацию бота.
// Значения читаются из флагов командной строки и переменных окружения;
// переменные окружения имеют наивысший приоритет.
package config

import (
	"flag"
	"strings"

	"github.com/caarlos0/env/v6"
)

// Config хранит конфигурацию приложения.
type Config struct {
	ServerAddress   string `env:"SERVER_ADDRESS"`     // Адрес для запуска HTTP-сервера
	BotToken        string `env:"BOT_TOKEN"`          // Токен Telegram-бота
	BotUsername     string `env:"BOT_USERNAME"`       // Имя бота для глубоких ссылок (без @)
	WebhookSecret   string `env:"WEBHOOK_SECRET"`     // Секретный сегмент пути вебхука
	WebhookBaseURL  string `env:"WEBHOOK_BASE_URL"`   // Публичный базовый URL вебхука (пусто - не регистрировать)
	StorageChannel  int64  `env:"STORAGE_CHANNEL_ID"` // Канал-хранилище копий файлов
	AdminID         int64  `env:"ADMIN_ID"`           // Идентификатор администратора
	ForceSubRaw     string `env:"FORCE_SUB_CHANNELS"` // Обязательные каналы через запятую
	ShortenerDomain string `env:"SHORTENER_DOMAIN"`   // Домен сервиса сокращения ссылок
	ShortenerKey    string `env:"SHORTENER_KEY"`      // Ключ API сервиса сокращения ссылок
}

// NewConfig инициализирует конфигурацию, читая флаги и переменные окружения.
func NewConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: ":8080", // Значение по умолчанию
	}

	// 1. Определение флагов командной строки
	flag.StringVar(&cfg.ServerAddress, "a", cfg.ServerAddress, "Адрес запуска HTTP-сервера (env: SERVER_ADDRESS)")
	flag.StringVar(&cfg.WebhookSecret, "s", cfg.WebhookSecret, "Секретный сегмент пути вебхука (env: WEBHOOK_SECRET)")
	flag.StringVar(&cfg.WebhookBaseURL, "u", cfg.WebhookBaseURL, "Публичный базовый URL вебхука (env: WEBHOOK_BASE_URL)")

	// 2. Парсинг флагов командной строки
	flag.Parse()

	// 3. Парсинг переменных окружения (имеет наивысший приоритет)
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ForceSubChannels возвращает список обязательных каналов: строка
// "id1, id2" разбивается по запятым, пробелы и пустые элементы отбрасываются.
func (c *Config) ForceSubChannels() []string {
	var channels []string
	for _, part := range strings.Split(c.ForceSubRaw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			channels = append(channels, part)
		}
	}
	return channels
}
