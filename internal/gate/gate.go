// Package gate решает, можно ли выдавать пользователю контент,
// исходя из его членства в обязательных каналах.
package gate

import (
	"context"

	"go.uber.org/zap"
)

// HomePayload - данные retry-кнопки, когда исходный запрос не нес кода доступа.
const HomePayload = "home"

// retryPrefix - префикс callback-данных кнопки повторной проверки.
const retryPrefix = "checksub_"

// ChannelInfo описывает канал для кнопки приглашения.
type ChannelInfo struct {
	Title      string
	InviteLink string
}

// MemberLister - коллаборатор, предоставляющий сведения о каналах
// и членстве пользователей в них.
type MemberLister interface {
	// MembershipStatus возвращает статус пользователя в канале
	// (member, administrator, left, kicked и т.д.).
	MembershipStatus(ctx context.Context, channel string, userID int64) (string, error)

	// ChannelInfo возвращает название и ссылку-приглашение канала.
	ChannelInfo(ctx context.Context, channel string) (ChannelInfo, error)
}

// JoinButton - одна кнопка приглашения в канал.
type JoinButton struct {
	Title string
	URL   string
}

// Checker проверяет членство пользователя в наборе обязательных каналов.
// Результаты не кэшируются: каждая проверка опрашивает каналы заново.
type Checker struct {
	channels []string
	adminID  int64
	members  MemberLister
	logger   *zap.Logger
}

// NewChecker создает Checker для заданного набора каналов.
func NewChecker(channels []string, adminID int64, members MemberLister, logger *zap.Logger) *Checker {
	return &Checker{
		channels: channels,
		adminID:  adminID,
		members:  members,
		logger:   logger,
	}
}

// Allowed сообщает, удовлетворяет ли пользователь требованиям подписки.
// Администратор и пустой набор каналов проходят без единого запроса.
// Статусы left/kicked/restricted означают отказ. Ошибка запроса по любому
// каналу (в том числе нехватка прав самого бота) тоже означает отказ:
// политика fail-closed, доступ при сомнении не выдается.
func (c *Checker) Allowed(ctx context.Context, userID int64) bool {
	if userID == c.adminID {
		return true
	}
	if len(c.channels) == 0 {
		return true
	}

	for _, channel := range c.channels {
		status, err := c.members.MembershipStatus(ctx, channel, userID)
		if err != nil {
			// fail-closed: ошибку трактуем как "не подписан"
			c.logger.Warn("Membership check failed",
				zap.String("channel", channel),
				zap.Int64("user_id", userID),
				zap.Error(err))
			return false
		}
		switch status {
		case "left", "kicked", "restricted":
			return false
		}
	}

	return true
}

// JoinButtons собирает по одной кнопке приглашения на каждый канал,
// метаданные которого удалось получить. Недоступные каналы молча
// пропускаются - это не фатальная ошибка.
func (c *Checker) JoinButtons(ctx context.Context) []JoinButton {
	var buttons []JoinButton
	for _, channel := range c.channels {
		info, err := c.members.ChannelInfo(ctx, channel)
		if err != nil || info.InviteLink == "" {
			c.logger.Warn("Channel info unavailable, omitting join button",
				zap.String("channel", channel),
				zap.Error(err))
			continue
		}
		buttons = append(buttons, JoinButton{Title: info.Title, URL: info.InviteLink})
	}
	return buttons
}

// RetryData возвращает callback-данные retry-кнопки, несущие исходный
// код доступа, чтобы после вступления запрос можно было продолжить.
func RetryData(payload string) string {
	if payload == "" {
		payload = HomePayload
	}
	return retryPrefix + payload
}

// RetryPayload извлекает код доступа из callback-данных retry-кнопки.
func RetryPayload(data string) (string, bool) {
	if len(data) <= len(retryPrefix) || data[:len(retryPrefix)] != retryPrefix {
		return "", false
	}
	return data[len(retryPrefix):], true
}
