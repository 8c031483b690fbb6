// Package storage реализует in-memory хранилища состояния бота.
// Все данные живут только в памяти процесса и теряются при его
// перезапуске - это осознанное ограничение, а не недоработка.
package storage

import (
	"sync"

	"github.com/InQaaaaGit/filerelay/internal/models"
	"go.uber.org/zap"
)

// BatchStore хранит очереди загруженных файлов по идентификатору администратора.
type BatchStore struct {
	mu      sync.RWMutex
	batches map[int64][]models.FileRecord
	logger  *zap.Logger
}

// NewBatchStore создает новый экземпляр BatchStore.
func NewBatchStore(logger *zap.Logger) *BatchStore {
	return &BatchStore{
		batches: make(map[int64][]models.FileRecord),
		logger:  logger,
	}
}

// Add добавляет запись в конец очереди администратора,
// создавая очередь при первом обращении.
func (bs *BatchStore) Add(adminID int64, rec models.FileRecord) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	bs.batches[adminID] = append(bs.batches[adminID], rec)
	bs.logger.Debug("Record queued",
		zap.Int64("admin_id", adminID),
		zap.Int("queue_len", len(bs.batches[adminID])))
}

// Records возвращает копию очереди администратора в порядке добавления.
func (bs *BatchStore) Records(adminID int64) []models.FileRecord {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	recs := bs.batches[adminID]
	out := make([]models.FileRecord, len(recs))
	copy(out, recs)
	return out
}

// Len возвращает текущую длину очереди администратора.
func (bs *BatchStore) Len(adminID int64) int {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return len(bs.batches[adminID])
}

// Clear полностью удаляет очередь администратора.
func (bs *BatchStore) Clear(adminID int64) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	delete(bs.batches, adminID)
}
