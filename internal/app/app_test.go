package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/InQaaaaGit/filerelay/internal/config"
	"github.com/InQaaaaGit/filerelay/internal/gate"
	"github.com/InQaaaaGit/filerelay/internal/models"
)

// nopMessenger - минимальная заглушка платформы для сквозных тестов.
type nopMessenger struct {
	sent []string
}

func (m *nopMessenger) CopyToStorage(context.Context, int64, int) (int, error) { return 42, nil }
func (m *nopMessenger) CopyFromStorage(context.Context, int, int64) error     { return nil }
func (m *nopMessenger) Edit(context.Context, int64, int, string) error        { return nil }
func (m *nopMessenger) Delete(context.Context, int64, int) error              { return nil }
func (m *nopMessenger) AnswerCallback(context.Context, string, string, bool) error {
	return nil
}
func (m *nopMessenger) MembershipStatus(context.Context, string, int64) (string, error) {
	return "member", nil
}
func (m *nopMessenger) ChannelInfo(context.Context, string) (gate.ChannelInfo, error) {
	return gate.ChannelInfo{}, nil
}
func (m *nopMessenger) Send(_ context.Context, _ int64, text string, _ [][]models.Button) error {
	m.sent = append(m.sent, text)
	return nil
}

func newTestApp(messenger *nopMessenger) *App {
	cfg := &config.Config{
		ServerAddress: ":8080",
		AdminID:       1,
		WebhookSecret: "topsecret",
	}
	return NewApp(cfg, messenger, "testbot", zap.NewNop())
}

func TestApp_Ping(t *testing.T) {
	a := newTestApp(&nopMessenger{})
	srv := httptest.NewServer(a.GetServer().Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// Сквозной сценарий: загрузка администратора через вебхук дает ответ
// с нормализованной подписью и глубокой ссылкой.
func TestApp_UploadFlow(t *testing.T) {
	messenger := &nopMessenger{}
	a := newTestApp(messenger)
	srv := httptest.NewServer(a.GetServer().Handler)
	defer srv.Close()

	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 5,
			Chat:      &tgbotapi.Chat{ID: 10},
			From:      &tgbotapi.User{ID: 1},
			Caption:   "Inception (2010) 1080p",
			Document:  &tgbotapi.Document{FileName: "inception.mkv"},
		},
	}
	body, err := json.Marshal(update)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/webhook/topsecret", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, messenger.sent, 1)
	assert.Contains(t, messenger.sent[0], "Inception (2010) 1080p")
	assert.Contains(t, messenger.sent[0], "https://t.me/testbot?start=")
}

func TestApp_GetServer(t *testing.T) {
	a := newTestApp(&nopMessenger{})
	server := a.GetServer()

	assert.Equal(t, ":8080", server.Addr)
	assert.NotNil(t, server.Handler)
}
