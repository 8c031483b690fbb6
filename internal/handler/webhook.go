// Package handler принимает обновления Bot API по вебхуку и
// маршрутизирует их в оркестратор.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/InQaaaaGit/filerelay/internal/config"
	"github.com/InQaaaaGit/filerelay/internal/service"
)

// Relay - операции оркестратора, нужные транспорту.
type Relay interface {
	Start(ctx context.Context, chat, userID int64, payload string) error
	Upload(ctx context.Context, chat, userID int64, messageID int, rawCaption string) error
	ToggleMode(ctx context.Context, chat, userID int64) error
	PublishBatch(ctx context.Context, chat, userID int64) error
	ArmShortener(ctx context.Context, chat, userID int64) error
	PlainText(ctx context.Context, chat, userID int64, text string) error
	Callback(ctx context.Context, cb service.CallbackRef) error
}

// Handler обрабатывает HTTP-запросы вебхука.
type Handler struct {
	relay  Relay
	cfg    *config.Config
	logger *zap.Logger
}

// NewHandler создает новый Handler.
func NewHandler(relay Relay, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		relay:  relay,
		cfg:    cfg,
		logger: logger,
	}
}

// HandleWebhook принимает одно обновление за вызов. Любой внутренний сбой
// гасится здесь: транспорту всегда отвечаем 200, иначе Bot API начнет
// бесконечно перепосылать то же обновление.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "secret") != h.cfg.WebhookSecret {
		http.NotFound(w, r)
		return
	}

	defer func() {
		if err := r.Body.Close(); err != nil {
			h.logger.Error("Error closing request body", zap.Error(err))
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("Panic while handling update", zap.Any("panic", rec))
		}
		w.WriteHeader(http.StatusOK)
	}()

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.logger.Warn("Error decoding update", zap.Error(err))
		return
	}

	if err := h.dispatch(r.Context(), update); err != nil {
		h.logger.Error("Error handling update",
			zap.Int("update_id", update.UpdateID), zap.Error(err))
	}
}

// HandlePing - проверка живости сервиса.
func (h *Handler) HandlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		h.logger.Error("Error writing response", zap.Error(err))
	}
}

// dispatch разбирает обновление и вызывает нужную операцию оркестратора.
func (h *Handler) dispatch(ctx context.Context, update tgbotapi.Update) error {
	if cb := update.CallbackQuery; cb != nil && cb.Message != nil {
		return h.relay.Callback(ctx, service.CallbackRef{
			ID:        cb.ID,
			Chat:      cb.Message.Chat.ID,
			MessageID: cb.Message.MessageID,
			UserID:    cb.From.ID,
			Data:      cb.Data,
		})
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return nil
	}
	chat, user := msg.Chat.ID, msg.From.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return h.relay.Start(ctx, chat, user, msg.CommandArguments())
		case "mode":
			return h.relay.ToggleMode(ctx, chat, user)
		case "done":
			return h.relay.PublishBatch(ctx, chat, user)
		case "setshort":
			return h.relay.ArmShortener(ctx, chat, user)
		default:
			return nil
		}
	}

	if msg.Document != nil || msg.Video != nil || msg.Audio != nil {
		return h.relay.Upload(ctx, chat, user, msg.MessageID, displayName(msg))
	}

	if msg.Text != "" {
		return h.relay.PlainText(ctx, chat, user, msg.Text)
	}

	return nil
}

// displayName возвращает подпись файла, а при ее отсутствии - имя файла
// соответствующего типа вложения.
func displayName(msg *tgbotapi.Message) string {
	if msg.Caption != "" {
		return msg.Caption
	}
	switch {
	case msg.Document != nil:
		return msg.Document.FileName
	case msg.Video != nil:
		if msg.Video.FileName != "" {
			return msg.Video.FileName
		}
		return "Video"
	case msg.Audio != nil:
		if msg.Audio.FileName != "" {
			return msg.Audio.FileName
		}
		return "Audio"
	}
	return ""
}
