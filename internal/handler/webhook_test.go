package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/InQaaaaGit/filerelay/internal/config"
	"github.com/InQaaaaGit/filerelay/internal/service"
)

type call struct {
	op      string
	chat    int64
	userID  int64
	payload string
}

// fakeRelay записывает вызовы оркестратора.
type fakeRelay struct {
	calls     []call
	callbacks []service.CallbackRef
	panicOn   string
}

func (f *fakeRelay) record(op string, chat, userID int64, payload string) error {
	if f.panicOn == op {
		panic("boom")
	}
	f.calls = append(f.calls, call{op: op, chat: chat, userID: userID, payload: payload})
	return nil
}

func (f *fakeRelay) Start(_ context.Context, chat, userID int64, payload string) error {
	return f.record("start", chat, userID, payload)
}

func (f *fakeRelay) Upload(_ context.Context, chat, userID int64, _ int, rawCaption string) error {
	return f.record("upload", chat, userID, rawCaption)
}

func (f *fakeRelay) ToggleMode(_ context.Context, chat, userID int64) error {
	return f.record("mode", chat, userID, "")
}

func (f *fakeRelay) PublishBatch(_ context.Context, chat, userID int64) error {
	return f.record("done", chat, userID, "")
}

func (f *fakeRelay) ArmShortener(_ context.Context, chat, userID int64) error {
	return f.record("setshort", chat, userID, "")
}

func (f *fakeRelay) PlainText(_ context.Context, chat, userID int64, text string) error {
	return f.record("text", chat, userID, text)
}

func (f *fakeRelay) Callback(_ context.Context, cb service.CallbackRef) error {
	if f.panicOn == "callback" {
		panic("boom")
	}
	f.callbacks = append(f.callbacks, cb)
	return nil
}

func newTestServer(relay *fakeRelay) *httptest.Server {
	cfg := &config.Config{WebhookSecret: "topsecret"}
	h := NewHandler(relay, cfg, zap.NewNop())

	router := chi.NewRouter()
	router.Post("/webhook/{secret}", h.HandleWebhook)
	router.Get("/ping", h.HandlePing)
	return httptest.NewServer(router)
}

func postUpdate(t *testing.T, srv *httptest.Server, secret string, update tgbotapi.Update) *http.Response {
	t.Helper()
	body, err := json.Marshal(update)
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("%s/webhook/%s", srv.URL, secret),
		"application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp
}

// commandMessage собирает сообщение-команду с корректной entity,
// без которой Bot API не считает текст командой.
func commandMessage(chat, user int64, text string) *tgbotapi.Message {
	cmdLen := len(text)
	if i := strings.Index(text, " "); i > 0 {
		cmdLen = i
	}
	return &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chat},
		From:      &tgbotapi.User{ID: user},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}
}

func TestHandleWebhook_WrongSecret(t *testing.T) {
	relay := &fakeRelay{}
	srv := newTestServer(relay)
	defer srv.Close()

	resp := postUpdate(t, srv, "wrong", tgbotapi.Update{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, relay.calls)
}

func TestHandleWebhook_MalformedBodyStill200(t *testing.T) {
	relay := &fakeRelay{}
	srv := newTestServer(relay)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/webhook/topsecret", "application/json",
		strings.NewReader("не json"))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, relay.calls)
}

func TestHandleWebhook_StartCommand(t *testing.T) {
	relay := &fakeRelay{}
	srv := newTestServer(relay)
	defer srv.Close()

	resp := postUpdate(t, srv, "topsecret", tgbotapi.Update{
		Message: commandMessage(10, 555, "/start RmlsZV80Ml9TZWN1cmU"),
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, relay.calls, 1)
	assert.Equal(t, call{op: "start", chat: 10, userID: 555, payload: "RmlsZV80Ml9TZWN1cmU"}, relay.calls[0])
}

func TestHandleWebhook_AdminCommands(t *testing.T) {
	tests := []struct {
		text   string
		wantOp string
	}{
		{text: "/mode", wantOp: "mode"},
		{text: "/done", wantOp: "done"},
		{text: "/setshort", wantOp: "setshort"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			relay := &fakeRelay{}
			srv := newTestServer(relay)
			defer srv.Close()

			resp := postUpdate(t, srv, "topsecret", tgbotapi.Update{
				Message: commandMessage(10, 1, tt.text),
			})

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			require.Len(t, relay.calls, 1)
			assert.Equal(t, tt.wantOp, relay.calls[0].op)
		})
	}
}

func TestHandleWebhook_UnknownCommandIgnored(t *testing.T) {
	relay := &fakeRelay{}
	srv := newTestServer(relay)
	defer srv.Close()

	resp := postUpdate(t, srv, "topsecret", tgbotapi.Update{
		Message: commandMessage(10, 1, "/unknown"),
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, relay.calls)
}

func TestHandleWebhook_DocumentUpload(t *testing.T) {
	relay := &fakeRelay{}
	srv := newTestServer(relay)
	defer srv.Close()

	resp := postUpdate(t, srv, "topsecret", tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: 10},
			From:      &tgbotapi.User{ID: 1},
			Caption:   "Inception (2010) 1080p",
			Document:  &tgbotapi.Document{FileName: "inception.mkv"},
		},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, relay.calls, 1)
	assert.Equal(t, call{op: "upload", chat: 10, userID: 1, payload: "Inception (2010) 1080p"}, relay.calls[0])
}

func TestHandleWebhook_DocumentWithoutCaptionUsesFileName(t *testing.T) {
	relay := &fakeRelay{}
	srv := newTestServer(relay)
	defer srv.Close()

	postUpdate(t, srv, "topsecret", tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: 10},
			From:      &tgbotapi.User{ID: 1},
			Document:  &tgbotapi.Document{FileName: "inception.mkv"},
		},
	})

	require.Len(t, relay.calls, 1)
	assert.Equal(t, "inception.mkv", relay.calls[0].payload)
}

func TestHandleWebhook_VideoWithoutNameFallsBack(t *testing.T) {
	relay := &fakeRelay{}
	srv := newTestServer(relay)
	defer srv.Close()

	postUpdate(t, srv, "topsecret", tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: 10},
			From:      &tgbotapi.User{ID: 1},
			Video:     &tgbotapi.Video{},
		},
	})

	require.Len(t, relay.calls, 1)
	assert.Equal(t, "Video", relay.calls[0].payload)
}

func TestHandleWebhook_CallbackQuery(t *testing.T) {
	relay := &fakeRelay{}
	srv := newTestServer(relay)
	defer srv.Close()

	resp := postUpdate(t, srv, "topsecret", tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb42",
			From: &tgbotapi.User{ID: 555},
			Data: "checksub_home",
			Message: &tgbotapi.Message{
				MessageID: 9,
				Chat:      &tgbotapi.Chat{ID: 10},
			},
		},
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, relay.callbacks, 1)
	cb := relay.callbacks[0]
	assert.Equal(t, "cb42", cb.ID)
	assert.Equal(t, int64(10), cb.Chat)
	assert.Equal(t, 9, cb.MessageID)
	assert.Equal(t, int64(555), cb.UserID)
	assert.Equal(t, "checksub_home", cb.Data)
}

func TestHandleWebhook_PlainText(t *testing.T) {
	relay := &fakeRelay{}
	srv := newTestServer(relay)
	defer srv.Close()

	postUpdate(t, srv, "topsecret", tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: 10},
			From:      &tgbotapi.User{ID: 1},
			Text:      "gplinks.com | abc123",
		},
	})

	require.Len(t, relay.calls, 1)
	assert.Equal(t, call{op: "text", chat: 10, userID: 1, payload: "gplinks.com | abc123"}, relay.calls[0])
}

// Паника внутри обработки не должна дойти до транспорта: всегда 200.
func TestHandleWebhook_PanicRecovered(t *testing.T) {
	relay := &fakeRelay{panicOn: "start"}
	srv := newTestServer(relay)
	defer srv.Close()

	resp := postUpdate(t, srv, "topsecret", tgbotapi.Update{
		Message: commandMessage(10, 555, "/start x"),
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlePing(t *testing.T) {
	relay := &fakeRelay{}
	srv := newTestServer(relay)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
