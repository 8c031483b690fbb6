// Package caption очищает подписи файлов от рекламного мусора и
// вычисляет ключ группировки для пакетной публикации.
package caption

import (
	"regexp"
	"strings"
)

const (
	// Placeholder подставляется вместо пустой или полностью вычищенной подписи
	Placeholder = "Untitled File"
	// UnknownGroup - ключ группировки для подписей без единого слова
	UnknownGroup = "unknown"
)

// Порядок правил важен: сначала точный баннер целиком, затем общие правила.
// Если общее правило сработает раньше, от баннера останется обрывок,
// который точное правило уже не распознает.
var (
	bannerRe  = regexp.MustCompile(`⭕️\s*Main Channel\s*:\s*@\S+\s*⭕️`)
	mentionRe = regexp.MustCompile(`@\w+`)
	promoRe   = regexp.MustCompile(`(?i)(?:main channel|join channel)[^\n]*`)
	spacesRe  = regexp.MustCompile(`[ \t]{2,}`)
)

// Normalize возвращает подпись без рекламных вставок.
// Пустой вход и подпись, состоящая из одной рекламы, дают Placeholder:
// результат никогда не бывает пустой строкой.
func Normalize(text string) string {
	cleaned := clean(text)
	if cleaned == "" {
		return Placeholder
	}
	return cleaned
}

// GroupKey возвращает ключ консолидации: первые два слова очищенной
// подписи в нижнем регистре. Ключ намеренно груб - разные названия с
// одинаковым началом склеиваются, это снижает ручную работу оператора.
func GroupKey(rawCaption string) string {
	words := strings.Fields(clean(rawCaption))
	switch len(words) {
	case 0:
		return UnknownGroup
	case 1:
		return strings.ToLower(words[0])
	default:
		return strings.ToLower(words[0] + " " + words[1])
	}
}

func clean(text string) string {
	text = bannerRe.ReplaceAllString(text, " ")
	text = mentionRe.ReplaceAllString(text, " ")
	text = promoRe.ReplaceAllString(text, " ")
	text = spacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
