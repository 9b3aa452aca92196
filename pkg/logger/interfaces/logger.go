package interfaces

// BasicLogger определяет базовый интерфейс для простого логирования.
type BasicLogger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
}

// LevelLogger определяет интерфейс для логирования с уровнями.
type LevelLogger interface {
	Info(args ...interface{})
	Error(args ...interface{})
	Debug(args ...interface{})
	Warn(args ...interface{})
}

// FormattedLevelLogger определяет интерфейс для форматированного логирования с уровнями.
type FormattedLevelLogger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// ContextLogger возвращает логгер с дополнительными полями.
type ContextLogger interface {
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger
}

// Logger объединяет все интерфейсы логирования.
type Logger interface {
	BasicLogger
	LevelLogger
	FormattedLevelLogger
	ContextLogger
}

// SimpleLogger объединяет только уровни, без контекста.
type SimpleLogger interface {
	LevelLogger
	FormattedLevelLogger
}
