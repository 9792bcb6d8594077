package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// FileCache — локальный кэш записей одного типа: JSON-массив целиком
// в одном файле. Аналог localStorage исходной системы: чтение никогда
// не возвращает ошибку вызывающему, запись заменяет всю коллекцию.
type FileCache[T any] struct {
	path   string
	logger *zap.Logger
}

// NewFileCache создает кэш, хранящий записи в <dir>/<name>.json.
func NewFileCache[T any](dir, name string, logger *zap.Logger) *FileCache[T] {
	return &FileCache[T]{
		path:   filepath.Join(dir, name+".json"),
		logger: logger.Named("file_cache").With(zap.String("file", name)),
	}
}

// Load читает и декодирует сохраненные записи. Отсутствующий файл
// и битый JSON дают пустой срез: кэш — последняя линия, падать ему некуда.
func (c *FileCache[T]) Load() []T {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("Не удалось прочитать файл кэша", zap.Error(err))
		}
		return []T{}
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		c.logger.Warn("Файл кэша поврежден, начинаем с пустого списка", zap.Error(err))
		return []T{}
	}
	if records == nil {
		return []T{}
	}
	return records
}

// Save записывает всю коллекцию, полностью заменяя прежнее содержимое.
// Пишем во временный файл и переименовываем, чтобы не оставить
// полузаписанный JSON при падении процесса.
func (c *FileCache[T]) Save(records []T) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("ошибка сериализации кэша: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("ошибка создания директории кэша: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("ошибка записи кэша: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("ошибка замены файла кэша: %w", err)
	}
	return nil
}
