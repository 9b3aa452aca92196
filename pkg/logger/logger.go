package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"partnerapp/pkg/logger/interfaces"

	"github.com/rs/zerolog"
)

// Config конфигурация для создания логгера
// LogDir - директория для логов, пустая строка - только stdout
// LogMaxFileSize - максимальный размер файла лога в байтах
// LogTimeFormat - формат времени для имени файла
// LogFilePattern - шаблон имени файла
// Level - минимальный уровень (debug, info, warn, error)
type Config struct {
	LogDir         string
	LogMaxFileSize int64
	LogTimeFormat  string
	LogFilePattern string
	Level          string
}

// ZerologLogger реализация логгера на основе zerolog
type ZerologLogger struct {
	log zerolog.Logger
}

// createLogFile создает файл для логирования с учетом ротации
func createLogFile(cfg Config) (io.Writer, error) {
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию для логов: %w", err)
	}

	logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf(cfg.LogFilePattern, time.Now().Format(cfg.LogTimeFormat)))

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл логов: %w", err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("не удалось получить информацию о файле: %w", err)
	}

	// Файл с тем же именем уже переполнен, начинаем новый с суффиксом
	if cfg.LogMaxFileSize > 0 && fileInfo.Size() >= cfg.LogMaxFileSize {
		file.Close()
		rotated := fmt.Sprintf(cfg.LogFilePattern, time.Now().Format(cfg.LogTimeFormat)+fmt.Sprintf("_%d", time.Now().UnixNano()))
		file, err = os.OpenFile(filepath.Join(cfg.LogDir, rotated), os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("не удалось создать новый файл логов: %w", err)
		}
	}

	return file, nil
}

// New создает логгер, который пишет в файл и в stdout
func New(cfg Config) (interfaces.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("неизвестный уровень логирования %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var writer io.Writer = os.Stdout
	if cfg.LogDir != "" {
		fileWriter, err := createLogFile(cfg)
		if err != nil {
			return nil, err
		}
		writer = io.MultiWriter(fileWriter, os.Stdout)
	}

	return NewWithWriter(writer, level), nil
}

// NewWithWriter создает логгер поверх произвольного writer'а
func NewWithWriter(w io.Writer, level zerolog.Level) interfaces.Logger {
	return &ZerologLogger{
		log: zerolog.New(w).Level(level).With().Timestamp().Logger(),
	}
}

func (l *ZerologLogger) Print(v ...interface{}) {
	l.Info(v...)
}

func (l *ZerologLogger) Printf(format string, v ...interface{}) {
	l.Infof(format, v...)
}

func (l *ZerologLogger) Info(args ...interface{}) {
	l.log.Info().Msg(fmt.Sprint(args...))
}

func (l *ZerologLogger) Error(args ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(args...))
}

func (l *ZerologLogger) Debug(args ...interface{}) {
	l.log.Debug().Msg(fmt.Sprint(args...))
}

func (l *ZerologLogger) Warn(args ...interface{}) {
	l.log.Warn().Msg(fmt.Sprint(args...))
}

func (l *ZerologLogger) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *ZerologLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

// WithFields реализация интерфейса ContextLogger
func (l *ZerologLogger) WithFields(fields map[string]interface{}) interfaces.Logger {
	return &ZerologLogger{log: l.log.With().Fields(fields).Logger()}
}

func (l *ZerologLogger) WithError(err error) interfaces.Logger {
	return &ZerologLogger{log: l.log.With().Err(err).Logger()}
}
