package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"partnerapp/internal/broadcast"
	"partnerapp/internal/cache"
	"partnerapp/internal/config"
	"partnerapp/internal/infrastructure/db"
	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/model"
	"partnerapp/internal/scheduler"
	"partnerapp/internal/storage"
	"partnerapp/internal/tg"
	"partnerapp/internal/tracking"
	"partnerapp/internal/users"
	u "partnerapp/internal/utils"
	"partnerapp/internal/web"
	"partnerapp/pkg/googlesheet"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var telegramBot *tg.Bot

func main() {
	cfg, err := config.Load(envFile())
	HandleFatalError(err)
	HandleFatalError(logger.Init(cfg.LoggerConfig))
	HandleFatalError(u.InitGlobalLocationTime(cfg.Timezone))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tables, closeTables, err := openTables(ctx, cfg)
	HandleFatalError(err)
	defer closeTables()

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	HandleFatalError(err)
	logger.Infof("Авторизован бот @%s", api.Self.UserName)

	telegramBot, err = tg.NewBot(api, tg.Options{
		WebAppURL:       cfg.WebAppURL,
		AdminChatIDs:    cfg.AdminChatIDs,
		RequestPause:    millis(cfg.TelegramConfig.RequestPause),
		BufferSize:      cfg.MsgBufferSize,
		OperatorRetries: cfg.OperatorRetryCount,
	})
	HandleFatalError(err)
	defer telegramBot.Close()

	kv := cache.NewKV()
	userService := users.NewService(tables, millis(cfg.UserPause))
	executor := broadcast.NewExecutor(userService, tables.Broadcasts, telegramBot, cfg.PublicURL, millis(cfg.BroadcastPause))
	clicks := tracking.NewClicks(tables, userService, telegramBot, cache.NewPromoTicketStore(kv, cfg.PromoRetention), cfg.PromoRetention)

	telegramBot.Bind(tg.Services{
		Users:    userService,
		Drafts:   cache.NewDraftStore(kv, cfg.DraftTTL),
		Executor: executor,
		Stats:    broadcast.NewStats(tables.Broadcasts),
		Clicks:   clicks,
	})

	sched := scheduler.New(userService, telegramBot, clicks, cfg.Interval)
	webApp := web.NewWebApp(web.Deps{
		Users:     userService,
		Clicks:    clicks,
		Tracker:   tracking.NewTracker(tables.Broadcasts),
		Executor:  executor,
		Bot:       telegramBot,
		Scheduler: sched,
	}, web.Options{
		BotToken:        cfg.Token,
		Version:         cfg.Version,
		Mode:            cfg.Mode,
		RequireInitData: cfg.RequireInitData,
		InternalToken:   cfg.InternalToken,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
	})

	HandleFatalError(setupUpdates(ctx, api, cfg))

	if cfg.IsTestMode {
		logger.Info("Тестовый режим: фоновая проверка отключена")
	} else {
		go sched.Run(ctx)
	}

	telegramBot.SendAllAdmins(ctx, fmt.Sprintf("✅ Сервис запущен. Версия %s, хранилище %s", cfg.Version, cfg.Backend))

	HandleFatalError(webApp.Serve(ctx, cfg.APPIP+":"+cfg.APPPORT, time.Duration(cfg.ShutdownTimeoutSec)*time.Second))

	telegramBot.Wait()
	logger.Info("Сервис остановлен")
}

func envFile() string {
	if name := os.Getenv("ENV_FILE"); name != "" {
		return name
	}
	return ".env"
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// openTables открывает таблицы выбранного хранилища. Возвращает функцию закрытия
func openTables(ctx context.Context, cfg *config.Config) (*storage.Tables, func(), error) {
	names := storage.Names{
		model.KindUsers:      cfg.UsersListName,
		model.KindAdmins:     cfg.AdminsListName,
		model.KindPartners:   cfg.PartnersListName,
		model.KindClicks:     cfg.ClicksListName,
		model.KindBroadcasts: cfg.BroadcastsList,
		model.KindArchive:    cfg.ArchiveListName,
	}

	switch cfg.Backend {
	case config.BackendSheets:
		creds, err := cfg.Credentials()
		if err != nil {
			return nil, nil, err
		}
		client, err := googlesheet.New(ctx, googlesheet.Config{
			SpreadsheetID: cfg.SpreadsheetID,
			Credentials:   creds,
			BufferSize:    cfg.GoogleSheetConfig.BufferSize,
			RequestPause:  millis(cfg.GoogleSheetConfig.RequestPause),
			Logger:        logger.Log,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("не удалось подключиться к Google таблице: %w", err)
		}
		logger.Infof("Хранилище: Google таблица %s", cfg.SpreadsheetID)
		return storage.NewSheetTables(client, names), client.Close, nil

	case config.BackendPostgres:
		conn, err := db.Open(cfg.DataBaseConfig)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("не удалось получить соединение с БД: %w", err)
		}
		logger.Infof("Хранилище: postgres %s/%s", cfg.Host, cfg.DBName)
		return storage.NewPostgresTables(conn, names), func() { u.HandleError(sqlDB.Close()) }, nil
	}

	logger.Warn("Хранилище в памяти: данные пропадут после перезапуска")
	return storage.NewMemoryTables(), func() {}, nil
}

// setupUpdates включает вебхук или long polling
func setupUpdates(ctx context.Context, api *tgbotapi.BotAPI, cfg *config.Config) error {
	if cfg.UseWebhook {
		hook, err := tgbotapi.NewWebhook(cfg.PublicURL + "/bot" + cfg.Token)
		if err != nil {
			return fmt.Errorf("неверный адрес вебхука: %w", err)
		}
		if _, err := api.Request(hook); err != nil {
			return fmt.Errorf("не удалось установить вебхук: %w", err)
		}
		logger.Info("Бот получает обновления через вебхук")
		return nil
	}

	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("не удалось удалить вебхук: %w", err)
	}
	go telegramBot.Poll(ctx, api)
	return nil
}

// HandleFatalError если err ошибка, то логгирует ее, отправляет всем админам в тг и завершает процесс
func HandleFatalError(err error) error {
	if err != nil {
		logger.Error("Критическая ошибка: ", err)

		if telegramBot != nil {
			telegramBot.SendAllAdmins(context.Background(), "Критическая ошибка: "+err.Error())
		}
		os.Exit(1)
	}
	return nil
}
