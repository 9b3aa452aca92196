package utils

import (
	"fmt"
	"time"

	"partnerapp/internal/infrastructure/logger"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// HandlerError логгирует ошибку в случае ее наличия и возвращает ее
func HandleError(err error) error {
	if err != nil {
		logger.Error(err)
		return err
	}
	return nil
}

// InitGlobalLocationTime устанавливает часовой пояс по умолчанию для time.Local.
// Даты в таблицах пишутся в этом поясе
func InitGlobalLocationTime(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("ошибка при смене локации на %s: %w", name, err)
	}
	time.Local = loc
	return nil
}

// Date возвращает дату в формате таблиц
func Date(t time.Time) string {
	return t.In(time.Local).Format(DateLayout)
}

// Clock возвращает время в формате таблиц
func Clock(t time.Time) string {
	return t.In(time.Local).Format(TimeLayout)
}
