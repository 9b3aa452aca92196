package storage

import (
	"context"
	"sync"

	"partnerapp/internal/model"
)

// MemoryTable таблица в памяти процесса. Для тестов и APP_IS_TEST_MODE
type MemoryTable struct {
	mu      sync.RWMutex
	columns []string
	rows    [][]string
}

func NewMemoryTable(columns []string) *MemoryTable {
	return &MemoryTable{columns: columns}
}

// NewMemoryTables создает пустые таблицы со схемой приложения
func NewMemoryTables() *Tables {
	return build(func(kind model.Kind) Table {
		return NewMemoryTable(model.Columns(kind))
	})
}

func (t *MemoryTable) Read(_ context.Context) ([]Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return toRecords(t.columns, t.rows, 2), nil
}

func (t *MemoryTable) Append(_ context.Context, values []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, append([]string(nil), values...))
	return nil
}

func (t *MemoryTable) Update(_ context.Context, rowIndex int, values []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := rowIndex - 2
	if i < 0 || i >= len(t.rows) {
		return ErrRowOutOfRange
	}
	t.rows[i] = append([]string(nil), values...)
	return nil
}

func (t *MemoryTable) Delete(_ context.Context, rowIndex int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := rowIndex - 2
	if i < 0 || i >= len(t.rows) {
		return ErrRowOutOfRange
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}
