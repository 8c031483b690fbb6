// Package token реализует обратимое кодирование идентификатора файла
// в непрозрачный код, пригодный для подстановки в query-параметр ссылки.
// Код не является криптографической защитой: структурный тег лишь
// отсекает чужие и поврежденные коды.
package token

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	payloadPrefix = "File"
	payloadSuffix = "Secure"
	partsCount    = 3
)

// Encode кодирует неотрицательный идентификатор сохраненного файла
// в URL-безопасный код без символов заполнения.
func Encode(id int) string {
	payload := fmt.Sprintf("%s_%d_%s", payloadPrefix, id, payloadSuffix)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// Decode восстанавливает идентификатор из кода.
// Никогда не паникует: для любого некорректного входа (мусор вместо base64,
// неверный структурный тег, нечисловой или отрицательный идентификатор)
// возвращает (0, false).
func Decode(code string) (int, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return 0, false
	}

	parts := strings.Split(string(raw), "_")
	if len(parts) != partsCount || parts[0] != payloadPrefix || parts[2] != payloadSuffix {
		return 0, false
	}

	id, err := strconv.Atoi(parts[1])
	if err != nil || id < 0 {
		return 0, false
	}

	return id, true
}
