package logger

import (
	"os"

	"partnerapp/internal/config"
	"partnerapp/pkg/logger"
	"partnerapp/pkg/logger/interfaces"

	"github.com/rs/zerolog"
)

// Log глобальный логгер приложения. До вызова Init пишет в stdout
var Log interfaces.Logger = logger.NewWithWriter(os.Stdout, zerolog.InfoLevel)

// Init настраивает глобальный логгер по конфигурации
func Init(cfg config.LoggerConfig) error {
	l, err := logger.New(logger.Config{
		LogDir:         cfg.LogDir,
		LogMaxFileSize: cfg.MaxFileSize,
		LogTimeFormat:  cfg.TimeFormat,
		LogFilePattern: cfg.FilePattern,
		Level:          cfg.Level,
	})
	if err != nil {
		return err
	}
	Log = l
	return nil
}

// Методы без форматирования
func Info(args ...interface{})  { Log.Info(args...) }
func Error(args ...interface{}) { Log.Error(args...) }
func Debug(args ...interface{}) { Log.Debug(args...) }
func Warn(args ...interface{})  { Log.Warn(args...) }

// Методы с форматированием
func Infof(format string, args ...interface{})  { Log.Infof(format, args...) }
func Errorf(format string, args ...interface{}) { Log.Errorf(format, args...) }
func Debugf(format string, args ...interface{}) { Log.Debugf(format, args...) }
func Warnf(format string, args ...interface{})  { Log.Warnf(format, args...) }

// With возвращает логгер с полями
func With(fields map[string]interface{}) interfaces.Logger { return Log.WithFields(fields) }
