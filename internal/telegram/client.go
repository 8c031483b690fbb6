// Package telegram реализует привязку к Bot API: тонкую обертку над
// go-telegram-bot-api, закрывающую поверхность service.Messenger.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/InQaaaaGit/filerelay/internal/gate"
	"github.com/InQaaaaGit/filerelay/internal/models"
)

// Client - клиент Bot API, привязанный к каналу-хранилищу.
type Client struct {
	bot            *tgbotapi.BotAPI
	storageChannel int64
	logger         *zap.Logger
}

// NewClient авторизуется в Bot API и возвращает готовый клиент.
func NewClient(botToken string, storageChannel int64, logger *zap.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("error authorizing bot: %w", err)
	}

	logger.Info("Bot authorized", zap.String("username", bot.Self.UserName))

	return &Client{
		bot:            bot,
		storageChannel: storageChannel,
		logger:         logger,
	}, nil
}

// Username возвращает имя бота для построения глубоких ссылок.
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// RegisterWebhook регистрирует URL вебхука в Bot API.
func (c *Client) RegisterWebhook(webhookURL string) error {
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("error building webhook config: %w", err)
	}
	if _, err := c.bot.Request(wh); err != nil {
		return fmt.Errorf("error registering webhook: %w", err)
	}
	return nil
}

// CopyToStorage копирует сообщение в канал-хранилище без пометки
// о пересылке и возвращает идентификатор копии.
func (c *Client) CopyToStorage(_ context.Context, fromChat int64, messageID int) (int, error) {
	copied, err := c.bot.CopyMessage(tgbotapi.NewCopyMessage(c.storageChannel, fromChat, messageID))
	if err != nil {
		return 0, fmt.Errorf("error copying message to storage: %w", err)
	}
	return copied.MessageID, nil
}

// CopyFromStorage выдает пользователю копию сохраненного сообщения.
func (c *Client) CopyFromStorage(_ context.Context, storedID int, toChat int64) error {
	if _, err := c.bot.CopyMessage(tgbotapi.NewCopyMessage(toChat, c.storageChannel, storedID)); err != nil {
		return fmt.Errorf("error copying message from storage: %w", err)
	}
	return nil
}

// Send отправляет HTML-сообщение с опциональной inline-клавиатурой.
func (c *Client) Send(_ context.Context, chat int64, text string, buttons [][]models.Button) error {
	msg := tgbotapi.NewMessage(chat, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if len(buttons) > 0 {
		msg.ReplyMarkup = toMarkup(buttons)
	}

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}
	return nil
}

// Edit заменяет текст ранее отправленного сообщения.
func (c *Client) Edit(_ context.Context, chat int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chat, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := c.bot.Request(edit); err != nil {
		return fmt.Errorf("error editing message: %w", err)
	}
	return nil
}

// Delete удаляет сообщение.
func (c *Client) Delete(_ context.Context, chat int64, messageID int) error {
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chat, messageID)); err != nil {
		return fmt.Errorf("error deleting message: %w", err)
	}
	return nil
}

// AnswerCallback подтверждает нажатие inline-кнопки.
func (c *Client) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	if _, err := c.bot.Request(cb); err != nil {
		return fmt.Errorf("error answering callback: %w", err)
	}
	return nil
}

// MembershipStatus возвращает статус пользователя в канале.
func (c *Client) MembershipStatus(_ context.Context, channel string, userID int64) (string, error) {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID},
	}
	applyChannel(&cfg.ChatConfigWithUser.ChatID, &cfg.ChatConfigWithUser.SuperGroupUsername, channel)

	member, err := c.bot.GetChatMember(cfg)
	if err != nil {
		return "", fmt.Errorf("error getting chat member: %w", err)
	}
	return member.Status, nil
}

// ChannelInfo возвращает название и ссылку-приглашение канала.
// Для публичного канала без invite-ссылки строится ссылка по его имени.
func (c *Client) ChannelInfo(_ context.Context, channel string) (gate.ChannelInfo, error) {
	cfg := tgbotapi.ChatInfoConfig{}
	applyChannel(&cfg.ChatConfig.ChatID, &cfg.ChatConfig.SuperGroupUsername, channel)

	chat, err := c.bot.GetChat(cfg)
	if err != nil {
		return gate.ChannelInfo{}, fmt.Errorf("error getting chat info: %w", err)
	}

	link := chat.InviteLink
	if link == "" && chat.UserName != "" {
		link = "https://t.me/" + chat.UserName
	}

	return gate.ChannelInfo{Title: chat.Title, InviteLink: link}, nil
}

// applyChannel заполняет адресацию канала: "@handle" идет как имя,
// числовая строка - как идентификатор чата.
func applyChannel(chatID *int64, username *string, channel string) {
	if strings.HasPrefix(channel, "@") {
		*username = channel
		return
	}
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		*chatID = id
		return
	}
	// Не @handle и не число: передаем как имя, пусть API решает
	*username = channel
}

// toMarkup переводит абстрактные кнопки в inline-клавиатуру Bot API.
func toMarkup(buttons [][]models.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.CallbackData))
			}
		}
		rows = append(rows, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
