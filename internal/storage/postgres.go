package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"partnerapp/internal/model"
	pkgmodel "partnerapp/pkg/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresTable таблица в postgres (sheet_rows). Адресация строк такая же, как у листа:
// строка с данными номер N лежит на позиции N-2 в порядке Position
type PostgresTable struct {
	db      *gorm.DB
	sheet   string
	columns []string
}

func NewPostgresTable(db *gorm.DB, sheet string, columns []string) *PostgresTable {
	return &PostgresTable{db: db, sheet: sheet, columns: columns}
}

// NewPostgresTables открывает все таблицы приложения в одной базе
func NewPostgresTables(db *gorm.DB, names Names) *Tables {
	return build(func(kind model.Kind) Table {
		return NewPostgresTable(db, names.name(kind), model.Columns(kind))
	})
}

func (t *PostgresTable) ordered(tx *gorm.DB) ([]pkgmodel.SheetRow, error) {
	var rows []pkgmodel.SheetRow
	err := tx.Where("sheet = ?", t.sheet).Order("position ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (t *PostgresTable) Read(ctx context.Context) ([]Record, error) {
	rows, err := t.ordered(t.db.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать таблицу %s: %w", t.sheet, err)
	}

	values := make([][]string, 0, len(rows))
	for _, row := range rows {
		var cells []string
		if err := json.Unmarshal([]byte(row.Values), &cells); err != nil {
			return nil, fmt.Errorf("битая строка %d таблицы %s: %w", row.ID, t.sheet, err)
		}
		values = append(values, cells)
	}
	return toRecords(t.columns, values, 2), nil
}

func (t *PostgresTable) Append(ctx context.Context, values []string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last pkgmodel.SheetRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("sheet = ?", t.sheet).
			Order("position DESC").
			Limit(1).
			Find(&last).Error
		if err != nil {
			return err
		}

		position := int64(0)
		if last.ID != 0 {
			position = last.Position + 1
		}
		row := pkgmodel.SheetRow{Sheet: t.sheet, Position: position, Values: string(data)}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("не удалось добавить строку в таблицу %s: %w", t.sheet, err)
		}
		return nil
	})
}

// locate находит строку по номеру в таблице
func (t *PostgresTable) locate(tx *gorm.DB, rowIndex int) (pkgmodel.SheetRow, error) {
	rows, err := t.ordered(tx)
	if err != nil {
		return pkgmodel.SheetRow{}, err
	}
	i := rowIndex - 2
	if i < 0 || i >= len(rows) {
		return pkgmodel.SheetRow{}, ErrRowOutOfRange
	}
	return rows[i], nil
}

func (t *PostgresTable) Update(ctx context.Context, rowIndex int, values []string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := t.locate(tx, rowIndex)
		if err != nil {
			return err
		}
		return tx.Model(&row).Update("cells", string(data)).Error
	})
}

func (t *PostgresTable) Delete(ctx context.Context, rowIndex int) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := t.locate(tx, rowIndex)
		if err != nil {
			return err
		}
		res := tx.Delete(&pkgmodel.SheetRow{}, row.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("строка уже удалена")
		}
		return nil
	})
}
