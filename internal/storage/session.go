package storage

import (
	"sync"

	"github.com/InQaaaaGit/filerelay/internal/models"
)

// SessionStore хранит состояние диалога по идентификатору администратора.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]models.AdminSession
}

// NewSessionStore создает новый экземпляр SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]models.AdminSession),
	}
}

// Mode возвращает текущий режим администратора. По умолчанию - ModeSingle.
func (ss *SessionStore) Mode(adminID int64) models.Mode {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	if s, ok := ss.sessions[adminID]; ok && s.Mode != "" {
		return s.Mode
	}
	return models.ModeSingle
}

// SetMode устанавливает режим администратора.
func (ss *SessionStore) SetMode(adminID int64, mode models.Mode) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s := ss.sessions[adminID]
	s.Mode = mode
	ss.sessions[adminID] = s
}

// ToggleMode переключает режим single <-> batch и возвращает новый режим.
func (ss *SessionStore) ToggleMode(adminID int64) models.Mode {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s := ss.sessions[adminID]
	if s.Mode == models.ModeBatch {
		s.Mode = models.ModeSingle
	} else {
		s.Mode = models.ModeBatch
	}
	ss.sessions[adminID] = s
	return s.Mode
}

// AwaitingShortener сообщает, ожидается ли от администратора
// конфигурация сокращателя ссылок.
func (ss *SessionStore) AwaitingShortener(adminID int64) bool {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.sessions[adminID].AwaitingShortener
}

// SetAwaitingShortener взводит или сбрасывает флаг ожидания конфигурации.
func (ss *SessionStore) SetAwaitingShortener(adminID int64, awaiting bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	s := ss.sessions[adminID]
	s.AwaitingShortener = awaiting
	ss.sessions[adminID] = s
}
