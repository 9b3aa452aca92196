package db

import (
	"partnerapp/internal/config"
	"partnerapp/pkg/db"
	"partnerapp/pkg/model"

	"gorm.io/gorm"
)

// Open подключается к postgres и создает таблицу строк
func Open(conf config.DataBaseConfig) (*gorm.DB, error) {
	conn, err := db.NewDatabase(db.Config{
		Host:     conf.Host,
		Port:     conf.Port,
		UserName: conf.UserName,
		DBName:   conf.DBName,
		Password: conf.Password,
		SSLMode:  conf.SSLMode,
	})
	if err != nil {
		return nil, err
	}

	if err := conn.AutoMigrate(&model.SheetRow{}); err != nil {
		return nil, err
	}
	return conn, nil
}
