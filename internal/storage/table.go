package storage

import (
	"context"
	"errors"

	"partnerapp/internal/model"
)

var ErrRowOutOfRange = errors.New("строки с таким номером нет")

// Record строка таблицы. Index - номер строки с 1, заголовок занимает строку 1,
// поэтому первая строка с данными имеет Index 2
type Record struct {
	Index  int
	Fields map[string]string
}

func (r Record) Get(field string) string {
	return r.Fields[field]
}

// Table построчный доступ к одной таблице. Нумерация строк скрыта за Record.Index
type Table interface {
	Read(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, values []string) error
	Update(ctx context.Context, rowIndex int, values []string) error
	Delete(ctx context.Context, rowIndex int) error
}

// Tables набор таблиц приложения
type Tables struct {
	Users      Table
	Admins     Table
	Partners   Table
	Clicks     Table
	Broadcasts Table
	Archive    Table
}

// Names имена листов (или ключей в БД) для каждой таблицы
type Names map[model.Kind]string

func (n Names) name(kind model.Kind) string {
	if v, ok := n[kind]; ok && v != "" {
		return v
	}
	return string(kind)
}

func build(open func(kind model.Kind) Table) *Tables {
	return &Tables{
		Users:      open(model.KindUsers),
		Admins:     open(model.KindAdmins),
		Partners:   open(model.KindPartners),
		Clicks:     open(model.KindClicks),
		Broadcasts: open(model.KindBroadcasts),
		Archive:    open(model.KindArchive),
	}
}

// toRecords превращает строки с заголовком в записи
func toRecords(header []string, rows [][]string, firstIndex int) []Record {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		fields := make(map[string]string, len(header))
		for j, name := range header {
			if name == "" {
				continue
			}
			if j < len(row) {
				fields[name] = row[j]
			} else {
				fields[name] = ""
			}
		}
		records = append(records, Record{Index: firstIndex + i, Fields: fields})
	}
	return records
}
