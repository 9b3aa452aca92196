package storage

import (
	"context"
	"strings"

	"partnerapp/internal/model"
)

// RowClient построчный клиент Google таблицы (pkg/googlesheet.Client)
type RowClient interface {
	ReadRows(ctx context.Context, sheet string) ([][]string, error)
	AppendRow(ctx context.Context, sheet string, values []string) error
	UpdateRow(ctx context.Context, sheet string, row int, values []string) error
	DeleteRow(ctx context.Context, sheet string, row int) error
}

// SheetTable таблица на листе Google таблицы. Имена полей берутся из первой строки листа
type SheetTable struct {
	client RowClient
	sheet  string
}

func NewSheetTable(client RowClient, sheet string) *SheetTable {
	return &SheetTable{client: client, sheet: sheet}
}

// NewSheetTables открывает все таблицы приложения на листах одной Google таблицы
func NewSheetTables(client RowClient, names Names) *Tables {
	return build(func(kind model.Kind) Table {
		return NewSheetTable(client, names.name(kind))
	})
}

func (t *SheetTable) Read(ctx context.Context) ([]Record, error) {
	rows, err := t.client.ReadRows(ctx, t.sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, name := range rows[0] {
		header[i] = strings.TrimSpace(name)
	}
	return toRecords(header, rows[1:], 2), nil
}

func (t *SheetTable) Append(ctx context.Context, values []string) error {
	return t.client.AppendRow(ctx, t.sheet, values)
}

func (t *SheetTable) Update(ctx context.Context, rowIndex int, values []string) error {
	if rowIndex < 2 {
		return ErrRowOutOfRange
	}
	return t.client.UpdateRow(ctx, t.sheet, rowIndex, values)
}

func (t *SheetTable) Delete(ctx context.Context, rowIndex int) error {
	if rowIndex < 2 {
		return ErrRowOutOfRange
	}
	return t.client.DeleteRow(ctx, t.sheet, rowIndex)
}
