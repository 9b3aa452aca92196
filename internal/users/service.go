package users

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/model"
	"partnerapp/internal/storage"
	"partnerapp/internal/utils"
)

const (
	unknownFirstName = "Unknown"
	unknownUsername  = "N/A"
	botStartedFalse  = "FALSE"
)

// Profile данные пользователя из Telegram. Username без @
type Profile struct {
	ID        int64
	Username  string
	FirstName string
}

// Member пользователь из таблицы с разобранным id чата
type Member struct {
	model.User
	ChatID int64
	Index  int
}

// Unreachable пользователь, до которого больше нельзя достучаться
type Unreachable struct {
	ChatID int64
	Reason model.ArchiveReason
}

// Service пользователи, админы и архив отписавшихся
type Service struct {
	users   storage.Table
	admins  storage.Table
	archive storage.Table

	sweepPause time.Duration
	now        func() time.Time
}

func NewService(tables *storage.Tables, sweepPause time.Duration) *Service {
	return &Service{
		users:      tables.Users,
		admins:     tables.Admins,
		archive:    tables.Archive,
		sweepPause: sweepPause,
		now:        time.Now,
	}
}

func atUsername(username string) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return ""
	}
	return "@" + username
}

func (s *Service) find(ctx context.Context, id int64) (*storage.Record, error) {
	records, err := s.users.Read(ctx)
	if err != nil {
		return nil, err
	}
	key := strconv.FormatInt(id, 10)
	for i := range records {
		if strings.TrimSpace(records[i].Get("telegram_id")) == key {
			return &records[i], nil
		}
	}
	return nil, nil
}

// Lookup пользователь по id, false если его нет в таблице
func (s *Service) Lookup(ctx context.Context, id int64) (model.User, bool, error) {
	record, err := s.find(ctx, id)
	if err != nil {
		return model.User{}, false, fmt.Errorf("не удалось прочитать пользователей: %w", err)
	}
	if record == nil {
		return model.User{}, false, nil
	}
	return model.UserFromRow(record.Fields), true, nil
}

// RegisterFromBot добавляет или обновляет пользователя по команде /start
func (s *Service) RegisterFromBot(ctx context.Context, p Profile) error {
	_, err := s.upsert(ctx, p, true)
	return err
}

// RegisterFromApp добавляет или обновляет пользователя при открытии мини приложения.
// true - пользователь создан
func (s *Service) RegisterFromApp(ctx context.Context, p Profile) (bool, error) {
	return s.upsert(ctx, p, false)
}

func (s *Service) upsert(ctx context.Context, p Profile, fromBot bool) (bool, error) {
	if p.ID == 0 {
		return false, fmt.Errorf("пустой telegram id")
	}
	existing, err := s.find(ctx, p.ID)
	if err != nil {
		return false, fmt.Errorf("не удалось прочитать пользователей: %w", err)
	}

	today := utils.Date(s.now())
	username := atUsername(p.Username)
	firstName := strings.TrimSpace(p.FirstName)

	if existing == nil {
		u := model.User{
			TelegramID:     strconv.FormatInt(p.ID, 10),
			Username:       username,
			FirstName:      firstName,
			DateRegistered: today,
			BotStarted:     model.BotStartedTrue,
			LastActive:     today,
		}
		if u.FirstName == "" {
			u.FirstName = unknownFirstName
		}
		if !fromBot {
			if u.Username == "" {
				u.Username = unknownUsername
			}
			u.BotStarted = botStartedFalse
		}
		if err := s.users.Append(ctx, u.Values()); err != nil {
			return false, fmt.Errorf("не удалось добавить пользователя %d: %w", p.ID, err)
		}
		return true, nil
	}

	current := model.UserFromRow(existing.Fields)
	updated := current
	if username != "" {
		updated.Username = username
	} else if updated.Username == "" {
		updated.Username = unknownUsername
	}
	if firstName != "" {
		updated.FirstName = firstName
	} else if updated.FirstName == "" {
		updated.FirstName = unknownFirstName
	}
	if fromBot {
		updated.BotStarted = model.BotStartedTrue
	}
	updated.LastActive = today

	if updated == current {
		return false, nil
	}
	if err := s.users.Update(ctx, existing.Index, updated.Values()); err != nil {
		return false, fmt.Errorf("не удалось обновить пользователя %d: %w", p.ID, err)
	}
	return false, nil
}

// IsAdmin проверяет пользователя по листу админов. Лист читается при каждом вызове
func (s *Service) IsAdmin(ctx context.Context, username string, id int64) (bool, error) {
	records, err := s.admins.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("не удалось прочитать админов: %w", err)
	}

	name := model.NormalizeUsername(username)
	key := strconv.FormatInt(id, 10)
	for _, r := range records {
		admin := model.AdminFromRow(r.Fields)
		if name != "" && model.NormalizeUsername(admin.Username) == name {
			return true, nil
		}
		if id != 0 && strings.TrimSpace(admin.TelegramID) == key {
			return true, nil
		}
	}
	return false, nil
}

// Members пользователи с корректным telegram_id
func (s *Service) Members(ctx context.Context) ([]Member, error) {
	records, err := s.users.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать пользователей: %w", err)
	}

	members := make([]Member, 0, len(records))
	for _, r := range records {
		u := model.UserFromRow(r.Fields)
		chatID, ok := u.ChatID()
		if !ok {
			continue
		}
		members = append(members, Member{User: u, ChatID: chatID, Index: r.Index})
	}
	return members, nil
}

// Counts всего пользователей и сколько из них запускали бота
func (s *Service) Counts(ctx context.Context) (total, subscribed int, err error) {
	members, err := s.Members(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, m := range members {
		if strings.EqualFold(m.BotStarted, model.BotStartedTrue) {
			subscribed++
		}
	}
	return len(members), subscribed, nil
}

// ArchivedCount количество строк в архиве
func (s *Service) ArchivedCount(ctx context.Context) (int, error) {
	records, err := s.archive.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("не удалось прочитать архив: %w", err)
	}
	return len(records), nil
}

// Archive переносит недоступных пользователей в архив и удаляет их из листа пользователей.
// Ошибка по одному пользователю не останавливает остальных. Возвращает число перенесенных
func (s *Service) Archive(ctx context.Context, list []Unreachable) int {
	if len(list) == 0 {
		return 0
	}

	// Номера строк только из свежего чтения
	members, err := s.Members(ctx)
	if err != nil {
		logger.Errorf("Архивация отменена, не удалось прочитать пользователей: %v", err)
		return 0
	}
	byID := make(map[int64]Member, len(members))
	for _, m := range members {
		if _, dup := byID[m.ChatID]; !dup {
			byID[m.ChatID] = m
		}
	}

	today := utils.Date(s.now())
	rows := make([]int, 0, len(list))
	seen := make(map[int64]bool, len(list))
	for _, u := range list {
		m, ok := byID[u.ChatID]
		if !ok || seen[u.ChatID] {
			continue
		}
		seen[u.ChatID] = true

		archived := model.ArchivedUser{
			Username:   m.Username,
			TelegramID: m.TelegramID,
			DateOn:     m.DateRegistered,
			DateOff:    today,
			Reason:     u.Reason,
		}
		if err := s.archive.Append(ctx, archived.Values()); err != nil {
			logger.Errorf("Не удалось добавить %d в архив: %v", u.ChatID, err)
			continue
		}
		rows = append(rows, m.Index)
	}

	// Снизу вверх, чтобы удаление не сдвигало еще не удаленные строки
	sort.Sort(sort.Reverse(sort.IntSlice(rows)))
	archived := 0
	for _, row := range rows {
		if err := s.users.Delete(ctx, row); err != nil {
			logger.Errorf("Не удалось удалить строку %d из пользователей: %v", row, err)
			continue
		}
		archived++
	}
	return archived
}
