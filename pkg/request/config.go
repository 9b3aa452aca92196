package request

import "partnerapp/pkg/logger/interfaces"

// Config определяет параметры конфигурации для RequestHandler.
type Config struct {
	// BufferSize определяет размер каналов для запросов.
	BufferSize int

	// Logger для ошибок выполнения запросов. nil - логирование отключено.
	Logger interfaces.SimpleLogger
}

// DefaultConfig возвращает конфигурацию с буфером в 1000 запросов и без логирования.
func DefaultConfig() Config {
	return Config{
		BufferSize: 1000,
	}
}
