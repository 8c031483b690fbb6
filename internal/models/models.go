// Package models содержит общие структуры данных бота.
package models

// Mode определяет режим обработки загрузок администратора.
type Mode string

const (
	// ModeSingle - каждый файл публикуется сразу после загрузки
	ModeSingle Mode = "single"
	// ModeBatch - файлы накапливаются и публикуются командой /done
	ModeBatch Mode = "batch"
)

// FileRecord представляет один загруженный администратором файл.
// Создается при загрузке и после этого не изменяется.
type FileRecord struct {
	RawCaption string // исходная подпись (или имя файла), до очистки
	Caption    string // нормализованная подпись для отображения
	StoredID   int    // идентификатор копии в канале-хранилище
	Token      string // код доступа, кодирующий StoredID
	Link       string // глубокая ссылка вида https://t.me/<bot>?start=<token>
}

// AdminSession хранит volatile-состояние диалога с администратором.
type AdminSession struct {
	Mode              Mode
	AwaitingShortener bool // ожидается ли ввод конфигурации сокращателя
}

// Button описывает одну inline-кнопку исходящего сообщения.
// Заполняется либо URL, либо CallbackData, но не оба поля сразу.
type Button struct {
	Text         string
	URL          string
	CallbackData string
}
