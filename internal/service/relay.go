// Package service содержит оркестратор пересылки файлов: прием загрузок
// администратора, выдачу файлов по глубоким ссылкам и пакетную публикацию.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/InQaaaaGit/filerelay/internal/caption"
	"github.com/InQaaaaGit/filerelay/internal/config"
	"github.com/InQaaaaGit/filerelay/internal/gate"
	"github.com/InQaaaaGit/filerelay/internal/models"
	"github.com/InQaaaaGit/filerelay/internal/shortener"
	"github.com/InQaaaaGit/filerelay/internal/storage"
	"github.com/InQaaaaGit/filerelay/internal/token"
	"go.uber.org/zap"
)

const shortenPrefix = "shorten_"

// Тексты ответов бота.
const (
	accessDeniedMsg     = "⛔ Access Denied! Only Admin can add files."
	storeFailMsg        = "❌ Error: Check Channel ID & Bot Admin Rights."
	storedFmt           = "✅ Stored!\n📂 %s\n🔗 %s"
	batchAddFmt         = "📦 Added to batch (%d files). Send /done to publish."
	emptyBatchMsg       = "⚠️ No files in batch."
	processingMsg       = "⚙️ Processing batch..."
	groupFailFmt        = "❌ Error sending group: %s"
	batchDoneMsg        = "✅ Batch published!"
	restrictedMsg       = "⚠️ Access Restricted\n\nPlease join our channels to access files."
	invalidLinkMsg      = "❌ Invalid Link."
	unavailableMsg      = "❌ File unavailable."
	welcomeMsg          = "👋 Welcome! You are verified."
	notJoinedAlert      = "⚠️ You have not joined yet!"
	adminPanelFmt       = "👋 Admin Panel\nCurrent Mode: %s\n\n/mode - Switch mode\n/done - Publish batch\n/setshort - Configure shortener"
	userGreetingMsg     = "🤖 File Store Bot\nSend me a valid link to get files."
	modeChangedFmt      = "🔄 Mode changed!\n\nCurrent mode: %s\n%s"
	modeBatchHint       = "Files will be stored. Send /done to publish."
	modeSingleHint      = "Files will be processed immediately."
	// Без угловых скобок: текст уходит с parse_mode=HTML
	setShortPromptMsg   = "Send shortener config as: domain | key"
	shortConfiguredFmt  = "✅ Shortener configured: %s"
	shortFormatErrMsg   = "❌ Wrong format. Expected: domain | key"
	shortNotConfigMsg   = "⚠️ Shortener is not configured. Use /setshort."
	shortFailedMsg      = "⚠️ Could not shorten, keeping original link."
	shortenButtonText   = "🔗 Shorten this link"
	retryButtonText     = "🔄 Try Again / Verified"
)

// Messenger - поверхность платформы обмена сообщениями, потребляемая
// оркестратором. Реализуется пакетом telegram; тесты подставляют заглушку.
type Messenger interface {
	// CopyToStorage копирует сообщение администратора в канал-хранилище
	// и возвращает идентификатор созданной копии.
	CopyToStorage(ctx context.Context, fromChat int64, messageID int) (int, error)

	// CopyFromStorage выдает пользователю копию сохраненного сообщения.
	CopyFromStorage(ctx context.Context, storedID int, toChat int64) error

	// Send отправляет сообщение с опциональными inline-кнопками.
	Send(ctx context.Context, chat int64, text string, buttons [][]models.Button) error

	// Edit заменяет текст ранее отправленного сообщения.
	Edit(ctx context.Context, chat int64, messageID int, text string) error

	// Delete удаляет сообщение.
	Delete(ctx context.Context, chat int64, messageID int) error

	// AnswerCallback подтверждает нажатие inline-кнопки.
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error

	gate.MemberLister
}

// CallbackRef описывает нажатие inline-кнопки.
type CallbackRef struct {
	ID        string // идентификатор callback-запроса
	Chat      int64  // чат с сообщением, несущим кнопку
	MessageID int    // сообщение, несущее кнопку
	UserID    int64  // нажавший пользователь
	Data      string // callback-данные кнопки
}

// Relay связывает кодек токенов, нормализацию подписей, проверку подписки,
// очередь пакетов и сокращатель ссылок в единый поток обработки обновлений.
type Relay struct {
	cfg       *config.Config
	botName   string
	messenger Messenger
	gate      *gate.Checker
	shortener *shortener.Provider
	batches   *storage.BatchStore
	sessions  *storage.SessionStore
	logger    *zap.Logger
}

// NewRelay создает оркестратор. Все зависимости передаются явно,
// чтобы тесты могли изолировать состояние.
func NewRelay(cfg *config.Config, botName string, messenger Messenger,
	provider *shortener.Provider, batches *storage.BatchStore,
	sessions *storage.SessionStore, logger *zap.Logger) *Relay {
	return &Relay{
		cfg:       cfg,
		botName:   botName,
		messenger: messenger,
		gate:      gate.NewChecker(cfg.ForceSubChannels(), cfg.AdminID, messenger, logger),
		shortener: provider,
		batches:   batches,
		sessions:  sessions,
		logger:    logger,
	}
}

// Upload обрабатывает загрузку файла: копирует его в канал-хранилище,
// чеканит токен и, в зависимости от режима, сразу публикует ссылку
// либо ставит запись в очередь пакета.
func (r *Relay) Upload(ctx context.Context, chat, userID int64, messageID int, rawCaption string) error {
	if userID != r.cfg.AdminID {
		return r.messenger.Send(ctx, chat, accessDeniedMsg, nil)
	}

	storedID, err := r.messenger.CopyToStorage(ctx, chat, messageID)
	if err != nil {
		r.logger.Error("Error copying file to storage channel", zap.Error(err))
		return r.messenger.Send(ctx, chat, storeFailMsg, nil)
	}

	tok := token.Encode(storedID)
	rec := models.FileRecord{
		RawCaption: rawCaption,
		Caption:    caption.Normalize(rawCaption),
		StoredID:   storedID,
		Token:      tok,
		Link:       r.deepLink(tok),
	}

	if r.sessions.Mode(userID) == models.ModeBatch {
		r.batches.Add(userID, rec)
		return r.messenger.Send(ctx, chat, fmt.Sprintf(batchAddFmt, r.batches.Len(userID)), nil)
	}

	buttons := [][]models.Button{{{Text: shortenButtonText, CallbackData: shortenPrefix + tok}}}
	text := fmt.Sprintf(storedFmt, sanitize(rec.Caption), rec.Link)
	return r.messenger.Send(ctx, chat, text, buttons)
}

// Start обрабатывает /start: сначала проверка подписки, затем разбор
// кода доступа и выдача файла. Порядок фиксирован - до прохождения
// проверки токен даже не декодируется.
func (r *Relay) Start(ctx context.Context, chat, userID int64, payload string) error {
	if !r.gate.Allowed(ctx, userID) {
		return r.sendJoinPrompt(ctx, chat, payload)
	}

	if payload != "" {
		return r.deliver(ctx, chat, payload)
	}

	if userID == r.cfg.AdminID {
		mode := strings.ToUpper(string(r.sessions.Mode(userID)))
		return r.messenger.Send(ctx, chat, fmt.Sprintf(adminPanelFmt, mode), nil)
	}
	return r.messenger.Send(ctx, chat, userGreetingMsg, nil)
}

// ToggleMode переключает режим single/batch. Переход в single всегда
// очищает накопленный пакет. Команды не от администратора игнорируются.
func (r *Relay) ToggleMode(ctx context.Context, chat, userID int64) error {
	if userID != r.cfg.AdminID {
		return nil
	}

	newMode := r.sessions.ToggleMode(userID)
	hint := modeBatchHint
	if newMode == models.ModeSingle {
		r.batches.Clear(userID)
		hint = modeSingleHint
	}

	text := fmt.Sprintf(modeChangedFmt, strings.ToUpper(string(newMode)), hint)
	return r.messenger.Send(ctx, chat, text, nil)
}

// PublishBatch консолидирует очередь в группы по ключу подписи и
// отправляет по одному сообщению на группу. Очередь очищается ровно один
// раз и только после того, как все группы были отправлены или хотя бы
// попытались отправиться.
func (r *Relay) PublishBatch(ctx context.Context, chat, userID int64) error {
	if userID != r.cfg.AdminID {
		return nil
	}

	records := r.batches.Records(userID)
	if len(records) == 0 {
		if err := r.messenger.Send(ctx, chat, emptyBatchMsg, nil); err != nil {
			r.logger.Error("Error sending empty batch notice", zap.Error(err))
		}
		return ErrEmptyBatch
	}

	if err := r.messenger.Send(ctx, chat, processingMsg, nil); err != nil {
		r.logger.Error("Error sending processing notice", zap.Error(err))
	}

	// Группировка с сохранением порядка первого появления ключа
	var order []string
	groups := make(map[string][]models.FileRecord)
	for _, rec := range records {
		key := caption.GroupKey(rec.RawCaption)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	// Одинаковые длинные ссылки сокращаются одним запросом,
	// разные - параллельно
	links := make([]string, 0, len(records))
	for _, rec := range records {
		links = append(links, rec.Link)
	}
	shortened := r.shortener.ShortenAll(ctx, links)

	for _, key := range order {
		text := renderGroup(groups[key], shortened)
		if err := r.messenger.Send(ctx, chat, text, nil); err != nil {
			// Сбой одной группы не прерывает остальные
			r.logger.Error("Error sending group", zap.String("group", key), zap.Error(err))
			if sendErr := r.messenger.Send(ctx, chat, fmt.Sprintf(groupFailFmt, key), nil); sendErr != nil {
				r.logger.Error("Error reporting group failure", zap.Error(sendErr))
			}
		}
	}

	r.batches.Clear(userID)
	return r.messenger.Send(ctx, chat, batchDoneMsg, nil)
}

// ArmShortener взводит ожидание конфигурации сокращателя (/setshort).
func (r *Relay) ArmShortener(ctx context.Context, chat, userID int64) error {
	if userID != r.cfg.AdminID {
		return nil
	}

	r.sessions.SetAwaitingShortener(userID, true)
	return r.messenger.Send(ctx, chat, setShortPromptMsg, nil)
}

// PlainText обрабатывает свободный текст. Он значим только как
// конфигурация сокращателя, пока взведен флаг ожидания; прочий текст
// игнорируется.
func (r *Relay) PlainText(ctx context.Context, chat, userID int64, text string) error {
	if userID != r.cfg.AdminID || !r.sessions.AwaitingShortener(userID) {
		return nil
	}

	domain, key, ok := shortener.ParseConfigText(text)
	if !ok {
		// Флаг остается взведенным: администратор может повторить ввод
		return r.messenger.Send(ctx, chat, shortFormatErrMsg, nil)
	}

	r.shortener.Configure(domain, key)
	r.sessions.SetAwaitingShortener(userID, false)
	return r.messenger.Send(ctx, chat, fmt.Sprintf(shortConfiguredFmt, domain), nil)
}

// Callback маршрутизирует нажатия inline-кнопок.
func (r *Relay) Callback(ctx context.Context, cb CallbackRef) error {
	if payload, ok := gate.RetryPayload(cb.Data); ok {
		return r.retryCheck(ctx, cb, payload)
	}
	if strings.HasPrefix(cb.Data, shortenPrefix) {
		return r.shortenLink(ctx, cb, strings.TrimPrefix(cb.Data, shortenPrefix))
	}

	r.logger.Warn("Unknown callback data", zap.String("data", cb.Data))
	return r.messenger.AnswerCallback(ctx, cb.ID, "", false)
}

// retryCheck - повторная проверка подписки по кнопке "Try Again".
// При успехе приглашение удаляется и исходный запрос продолжается.
func (r *Relay) retryCheck(ctx context.Context, cb CallbackRef, payload string) error {
	if !r.gate.Allowed(ctx, cb.UserID) {
		return r.messenger.AnswerCallback(ctx, cb.ID, notJoinedAlert, true)
	}

	if err := r.messenger.AnswerCallback(ctx, cb.ID, "", false); err != nil {
		r.logger.Warn("Error answering callback", zap.Error(err))
	}
	if err := r.messenger.Delete(ctx, cb.Chat, cb.MessageID); err != nil {
		r.logger.Warn("Error deleting join prompt", zap.Error(err))
	}

	if payload == gate.HomePayload {
		return r.messenger.Send(ctx, cb.Chat, welcomeMsg, nil)
	}
	return r.deliver(ctx, cb.Chat, payload)
}

// shortenLink - одноразовая кнопка "сократить ссылку" в single-режиме.
func (r *Relay) shortenLink(ctx context.Context, cb CallbackRef, tok string) error {
	if cb.UserID != r.cfg.AdminID {
		return r.messenger.AnswerCallback(ctx, cb.ID, "", false)
	}

	if !r.shortener.Configured() {
		return r.messenger.AnswerCallback(ctx, cb.ID, shortNotConfigMsg, true)
	}

	short, ok := r.shortener.Shorten(ctx, r.deepLink(tok))
	if !ok {
		return r.messenger.AnswerCallback(ctx, cb.ID, shortFailedMsg, true)
	}

	if err := r.messenger.AnswerCallback(ctx, cb.ID, "", false); err != nil {
		r.logger.Warn("Error answering callback", zap.Error(err))
	}
	return r.messenger.Edit(ctx, cb.Chat, cb.MessageID, fmt.Sprintf("✅ Stored!\n🔗 %s", short))
}

// deliver декодирует код доступа и выдает файл из канала-хранилища.
// Невалидный код и сбой платформенной доставки превращаются в понятные
// пользователю сообщения, а не в ошибки.
func (r *Relay) deliver(ctx context.Context, chat int64, payload string) error {
	storedID, ok := token.Decode(payload)
	if !ok {
		return r.messenger.Send(ctx, chat, invalidLinkMsg, nil)
	}

	if err := r.messenger.CopyFromStorage(ctx, storedID, chat); err != nil {
		r.logger.Warn("Stored file delivery failed",
			zap.Int("stored_id", storedID), zap.Error(err))
		return r.messenger.Send(ctx, chat, unavailableMsg, nil)
	}
	return nil
}

// sendJoinPrompt отправляет приглашение подписаться: по кнопке на каждый
// доступный канал плюс ровно одна retry-кнопка с исходным кодом доступа.
func (r *Relay) sendJoinPrompt(ctx context.Context, chat int64, payload string) error {
	joins := r.gate.JoinButtons(ctx)
	rows := make([][]models.Button, 0, len(joins)+1)
	for _, jb := range joins {
		rows = append(rows, []models.Button{{Text: "Join " + jb.Title, URL: jb.URL}})
	}
	rows = append(rows, []models.Button{{Text: retryButtonText, CallbackData: gate.RetryData(payload)}})

	return r.messenger.Send(ctx, chat, restrictedMsg, rows)
}

func (r *Relay) deepLink(tok string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", r.botName, tok)
}

// renderGroup собирает HTML-текст одной консолидированной группы.
// Сокращенная ссылка подставляется точной заменой подстроки в уже
// отрендеренном тексте; длинная ссылка при этом не сохраняется.
func renderGroup(records []models.FileRecord, shortened map[string]string) string {
	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "🔹 <a href=\"%s\">%s</a>\n\n", rec.Link, sanitize(rec.Caption))
	}

	text := b.String()
	for long, short := range shortened {
		text = strings.ReplaceAll(text, long, short)
	}
	return text
}

// sanitize вычищает из подписи символы разметки перед подстановкой в HTML.
func sanitize(s string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}
