// Package shortener реализует опциональный адаптер внешнего
// сервиса сокращения ссылок. Неполная конфигурация и любая ошибка
// провайдера означают "работаем с исходной ссылкой", а не отказ.
package shortener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Provider обращается к внешнему API сокращения ссылок.
// Конфигурация изменяема на лету и защищена мьютексом; при перезапуске
// процесса она возвращается к значениям из статической конфигурации.
type Provider struct {
	mu     sync.RWMutex
	domain string
	key    string
	client *http.Client
	logger *zap.Logger
}

// apiResponse покрывает оба известных формата ответа провайдера:
// с явным флагом статуса и с одним лишь полем сокращенной ссылки.
type apiResponse struct {
	Status       string `json:"status"`
	ShortenedURL string `json:"shortenedUrl"`
}

// New создает Provider с начальной конфигурацией.
// Пустые domain и key означают выключенный сокращатель.
func New(domain, key string, logger *zap.Logger) *Provider {
	return &Provider{
		domain: strings.TrimSpace(domain),
		key:    strings.TrimSpace(key),
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// Configured сообщает, заданы ли оба обязательных поля конфигурации.
func (p *Provider) Configured() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.domain != "" && p.key != ""
}

// Configure целиком заменяет конфигурацию провайдера.
func (p *Provider) Configure(domain, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.domain = strings.TrimSpace(domain)
	p.key = strings.TrimSpace(key)
}

// Domain возвращает текущий домен провайдера.
func (p *Provider) Domain() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.domain
}

// ParseConfigText разбирает текст конфигурации фиксированной формы
// "<domain> | <key>": ровно один разделитель, обе части непустые после
// обрезки пробелов.
func ParseConfigText(text string) (domain, key string, ok bool) {
	parts := strings.Split(text, "|")
	if len(parts) != 2 {
		return "", "", false
	}

	domain = strings.TrimSpace(parts[0])
	key = strings.TrimSpace(parts[1])
	if domain == "" || key == "" {
		return "", "", false
	}

	return domain, key, true
}

// Shorten запрашивает у провайдера короткую ссылку для longURL.
// При неполной конфигурации возвращает ("", false) без сетевого вызова.
// Любая ошибка транспорта, неуспешный статус или нечитаемый ответ тоже
// дают ("", false): вызывающий продолжает работу с исходной ссылкой.
func (p *Provider) Shorten(ctx context.Context, longURL string) (string, bool) {
	p.mu.RLock()
	domain, key := p.domain, p.key
	p.mu.RUnlock()

	if domain == "" || key == "" {
		return "", false
	}

	base := domain
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	endpoint := fmt.Sprintf("%s/api?api=%s&url=%s",
		base, url.QueryEscape(key), url.QueryEscape(longURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		p.logger.Error("Error building shortener request", zap.Error(err))
		return "", false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("Shortener request failed", zap.Error(err))
		return "", false
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.logger.Error("Error closing shortener response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("Shortener returned non-OK status", zap.Int("status", resp.StatusCode))
		return "", false
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		p.logger.Warn("Error decoding shortener response", zap.Error(err))
		return "", false
	}

	// Успехом считается явный флаг либо само наличие короткой ссылки.
	if body.ShortenedURL == "" || (body.Status != "" && body.Status != "success") {
		return "", false
	}

	return body.ShortenedURL, true
}

// ShortenAll сокращает набор ссылок: одинаковые длинные ссылки схлопываются
// в один запрос, запросы к разным ссылкам выполняются параллельно.
// В результирующей карте присутствуют только успешно сокращенные ссылки.
func (p *Provider) ShortenAll(ctx context.Context, urls []string) map[string]string {
	seen := make(map[string]struct{}, len(urls))
	uniq := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			uniq = append(uniq, u)
		}
	}

	var mu sync.Mutex
	out := make(map[string]string, len(uniq))

	g, gctx := errgroup.WithContext(ctx)
	for _, longURL := range uniq {
		longURL := longURL
		g.Go(func() error {
			if short, ok := p.Shorten(gctx, longURL); ok {
				mu.Lock()
				out[longURL] = short
				mu.Unlock()
			}
			return nil
		})
	}
	// Горутины ошибок не возвращают: неудачные ссылки просто не попадают в карту.
	_ = g.Wait()

	return out
}
