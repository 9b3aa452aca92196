package model

import "time"

// SheetRow строка таблицы, хранимая в postgres вместо листа Google таблицы
type SheetRow struct {
	ID        uint      `gorm:"primaryKey"`
	Sheet     string    `gorm:"type:varchar(255);not null;index:idx_sheet_position,priority:1"` // Имя таблицы (листа)
	Position  int64     `gorm:"type:bigint;not null;index:idx_sheet_position,priority:2"`      // Порядок строки внутри таблицы
	Values    string    `gorm:"column:cells;type:text;not null"`                               // Значения ячеек, json массив строк
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName задает имя таблицы для модели SheetRow
func (SheetRow) TableName() string {
	return "sheet_rows"
}
