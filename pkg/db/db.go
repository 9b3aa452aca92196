package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config структура для хранения параметров конфигурации базы данных
type Config struct {
	Host     string
	Port     string
	UserName string
	DBName   string
	Password string
	SSLMode  string
}

// DSN строка подключения для драйвера postgres
func (conf Config) DSN() string {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s password=%s sslmode=%s", conf.Host, conf.UserName, conf.DBName, conf.Password, conf.SSLMode)
	if conf.Port != "" {
		dsn += " port=" + conf.Port
	}
	return dsn
}

// NewDatabase создает новое подключение к базе данных и проверяет его
func NewDatabase(conf Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(conf.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}

	return db, nil
}
