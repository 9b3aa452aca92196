package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/tidwall/gjson"
)

const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	WebConfig
	TelegramConfig
	GoogleSheetConfig
	StorageConfig
	DataBaseConfig
	CacheConfig
	SchedulerConfig
	LoggerConfig
}

type WebConfig struct {
	APPIP              string  `envconfig:"APP_IP" default:"0.0.0.0"`                     // IP адрес приложения
	APPPORT            string  `envconfig:"APP_PORT" default:"8080"`                      // Порт приложения
	PublicURL          string  `envconfig:"APP_PUBLIC_URL" required:"true"`               // Внешний адрес сервиса, от него строятся ссылки /r/...
	Version            string  `envconfig:"APP_VERSION" default:"3.0.0"`                  // Версия, отдается в /api/health
	Mode               string  `envconfig:"APP_MODE" default:"production"`                // Режим, отдается в /api/health
	Timezone           string  `envconfig:"APP_TIMEZONE" default:"UTC"`                   // Часовой пояс для дат в таблицах
	RateLimitRPS       float64 `envconfig:"APP_RATE_LIMIT_RPS" default:"10"`              // Запросов в секунду с одного IP
	RateLimitBurst     int     `envconfig:"APP_RATE_LIMIT_BURST" default:"20"`            // Всплеск запросов с одного IP
	RequireInitData    bool    `envconfig:"APP_REQUIRE_INIT_DATA" default:"false"`        // Проверять ли initData мини приложения
	InternalToken      string  `envconfig:"APP_INTERNAL_TOKEN" default:""`                // Токен для /internal/sweep. Пустой - маршрут выключен
	ShutdownTimeoutSec int     `envconfig:"APP_SHUTDOWN_TIMEOUT_SEC" default:"15"`        // Сколько ждать завершения запросов при остановке
	IsTestMode         bool    `envconfig:"APP_IS_TEST_MODE" default:"false"`             // Тестовый запуск: фоновые задачи отключены
}

type TelegramConfig struct {
	Token              string  `envconfig:"TELEGRAM_TOKEN" required:"true"`                       // Токен бота
	WebAppURL          string  `envconfig:"TELEGRAM_WEB_APP_URL" required:"true"`                 // URL мини приложения
	UseWebhook         bool    `envconfig:"TELEGRAM_USE_WEBHOOK" default:"true"`                  // false - long polling
	AdminChatIDs       []int64 `envconfig:"TELEGRAM_ADMIN_CHAT_IDS"`                              // Куда слать сообщения о запуске и фатальных ошибках
	RequestPause       int     `envconfig:"TELEGRAM_REQUEST_PAUSE_MS" default:"35"`               // Пауза между запросами к Telegram API
	BroadcastPause     int     `envconfig:"TELEGRAM_BROADCAST_PAUSE_MS" default:"100"`            // Пауза между сообщениями рассылки
	MsgBufferSize      int     `envconfig:"TELEGRAM_MESSAGE_BUFFER_SIZE" default:"100"`           // Размер буфера для сообщений
	OperatorRetryCount int     `envconfig:"TELEGRAM_OPERATOR_RETRY_COUNT" default:"3"`            // Повторы отправки служебных сообщений
}

type GoogleSheetConfig struct {
	CredentialsFile  string `envconfig:"SHEET_CREDENTIALS_FILE" default:""`          // Путь к json сервисного аккаунта
	CredentialsJSON  string `envconfig:"SHEET_CREDENTIALS_JSON" default:""`          // Содержимое json сервисного аккаунта
	SpreadsheetID    string `envconfig:"SHEET_ID" default:""`                        // ID таблицы
	RequestPause     int    `envconfig:"SHEET_REQUEST_PAUSE_MS" default:"0"`         // Пауза между запросами к Sheets API
	BufferSize       int    `envconfig:"SHEET_BUFFER_SIZE" default:"100"`            // Размер буфера очереди запросов
	UsersListName    string `envconfig:"SHEET_USERS_LIST_NAME" default:"users"`      // Лист пользователей
	AdminsListName   string `envconfig:"SHEET_ADMINS_LIST_NAME" default:"admins"`    // Лист админов
	PartnersListName string `envconfig:"SHEET_PARTNERS_LIST_NAME" default:"partners"` // Лист партнеров
	ClicksListName   string `envconfig:"SHEET_CLICKS_LIST_NAME" default:"clicks"`    // Лист кликов
	BroadcastsList   string `envconfig:"SHEET_BROADCASTS_LIST_NAME" default:"broadcasts"`
	ArchiveListName  string `envconfig:"SHEET_ARCHIVE_LIST_NAME" default:"inactive"` // Лист отписавшихся
}

type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" default:"sheets"` // sheets | postgres | memory
}

type DataBaseConfig struct {
	Host     string `envconfig:"DBHOST" default:""` // IP адресс для подключение к БД
	Port     string `envconfig:"DBPORT" default:""` // Port для подключение к БД
	DBName   string `envconfig:"DBNAME" default:""` // Имя базы данных
	UserName string `envconfig:"DBUSER" default:""` // Имя пользователя
	Password string `envconfig:"DBPASS" default:""` // Пароль пользователя
	SSLMode  string `envconfig:"DBSSLMODE" default:"disable"`
}

type CacheConfig struct {
	DraftTTL       time.Duration `envconfig:"CACHE_DRAFT_TTL" default:"1h"`        // Время жизни черновика рассылки
	PromoRetention time.Duration `envconfig:"CACHE_PROMO_RETENTION" default:"24h"` // Через сколько удалять сообщение с промокодом
}

type SchedulerConfig struct {
	Interval  time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"1h"`         // Период фоновой проверки. 0 - выключено
	UserPause int           `envconfig:"SCHEDULER_USER_PAUSE_MS" default:"50"`    // Пауза между пользователями при проверке
}

type LoggerConfig struct {
	LogDir      string `envconfig:"LOG_DIR" default:"./log/partner_bot"`
	MaxFileSize int64  `envconfig:"LOG_MAX_FILE_SIZE" default:"10485760"` // 10MB в байтах
	TimeFormat  string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02_15-04-05"`
	FilePattern string `envconfig:"LOG_FILE_PATTERN" default:"partner_bot_%s.log"`
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
}

var File *Config

// Load читает .env (если он есть) и переменные окружения
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("не удалось прочитать %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора переменных окружения: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	File = cfg
	return cfg, nil
}

// Validate проверяет только наличие параметров, без обращения к внешним сервисам
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSheets:
		if c.SpreadsheetID == "" {
			return errors.New("не задан SHEET_ID")
		}
		creds, err := c.Credentials()
		if err != nil {
			return err
		}
		if err := ValidateCredentials(creds); err != nil {
			return err
		}
	case BackendPostgres:
		if c.DataBaseConfig.Host == "" || c.DataBaseConfig.DBName == "" {
			return errors.New("для STORAGE_BACKEND=postgres нужны DBHOST и DBNAME")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("неизвестный STORAGE_BACKEND: %q", c.Backend)
	}
	return nil
}

// Credentials возвращает json сервисного аккаунта из переменной или файла
func (c *Config) Credentials() ([]byte, error) {
	if c.CredentialsJSON != "" {
		return []byte(c.CredentialsJSON), nil
	}
	if c.CredentialsFile == "" {
		return nil, errors.New("не заданы SHEET_CREDENTIALS_JSON или SHEET_CREDENTIALS_FILE")
	}
	data, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл учетных данных: %w", err)
	}
	return data, nil
}

// ValidateCredentials проверяет, что в json есть client_email и private_key
func ValidateCredentials(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("учетные данные сервисного аккаунта не являются json")
	}
	for _, field := range []string{"client_email", "private_key"} {
		if gjson.GetBytes(data, field).String() == "" {
			return fmt.Errorf("в учетных данных нет поля %s", field)
		}
	}
	return nil
}
