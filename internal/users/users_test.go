package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"partnerapp/internal/model"
	"partnerapp/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, day string) (*Service, *storage.Tables) {
	t.Helper()
	tables := storage.NewMemoryTables()
	s := NewService(tables, 0)
	now, err := time.Parse("2006-01-02", day)
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	return s, tables
}

func readUsers(t *testing.T, tables *storage.Tables) []model.User {
	t.Helper()
	records, err := tables.Users.Read(context.Background())
	require.NoError(t, err)
	out := make([]model.User, 0, len(records))
	for _, r := range records {
		out = append(out, model.UserFromRow(r.Fields))
	}
	return out
}

func TestRegisterTwiceKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	s, tables := newTestService(t, "2024-03-01")

	require.NoError(t, s.RegisterFromBot(ctx, Profile{ID: 42, Username: "neo", FirstName: "Thomas"}))

	s.now = func() time.Time { return time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC) }
	require.NoError(t, s.RegisterFromBot(ctx, Profile{ID: 42, Username: "the_one", FirstName: "Neo"}))

	users := readUsers(t, tables)
	require.Len(t, users, 1)
	assert.Equal(t, model.User{
		TelegramID:     "42",
		Username:       "@the_one",
		FirstName:      "Neo",
		DateRegistered: "2024-03-01",
		BotStarted:     "TRUE",
		LastActive:     "2024-03-05",
	}, users[0])
}

func TestRegisterFromBotDefaults(t *testing.T) {
	ctx := context.Background()
	s, tables := newTestService(t, "2024-03-01")

	require.NoError(t, s.RegisterFromBot(ctx, Profile{ID: 7}))

	users := readUsers(t, tables)
	require.Len(t, users, 1)
	assert.Equal(t, "", users[0].Username)
	assert.Equal(t, "Unknown", users[0].FirstName)
}

func TestRegisterFromApp(t *testing.T) {
	ctx := context.Background()
	s, tables := newTestService(t, "2024-03-01")

	created, err := s.RegisterFromApp(ctx, Profile{ID: 9})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.RegisterFromApp(ctx, Profile{ID: 9, FirstName: "Ann"})
	require.NoError(t, err)
	assert.False(t, created)

	users := readUsers(t, tables)
	require.Len(t, users, 1)
	assert.Equal(t, "N/A", users[0].Username)
	assert.Equal(t, "Ann", users[0].FirstName)
	assert.Equal(t, "FALSE", users[0].BotStarted)

	// /start после мини приложения отмечает подписку
	require.NoError(t, s.RegisterFromBot(ctx, Profile{ID: 9, Username: "ann"}))
	total, subscribed, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, subscribed)
}

func TestRegisterRejectsZeroID(t *testing.T) {
	s, _ := newTestService(t, "2024-03-01")
	_, err := s.RegisterFromApp(context.Background(), Profile{})
	assert.Error(t, err)
}

func TestIsAdmin(t *testing.T) {
	ctx := context.Background()
	s, tables := newTestService(t, "2024-03-01")
	require.NoError(t, tables.Admins.Append(ctx, []string{"@Boss", ""}))
	require.NoError(t, tables.Admins.Append(ctx, []string{"", "555"}))

	cases := []struct {
		name     string
		username string
		id       int64
		want     bool
	}{
		{"username case and at", "boss", 1, true},
		{"username with at", "@BOSS", 0, true},
		{"id only", "", 555, true},
		{"stranger", "guest", 1, false},
		{"empty", "", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.IsAdmin(ctx, tc.username, tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestArchiveDeletesBottomUp(t *testing.T) {
	ctx := context.Background()
	s, tables := newTestService(t, "2024-04-10")
	for i := 1; i <= 5; i++ {
		u := model.User{TelegramID: fmt.Sprint(i), Username: fmt.Sprintf("@u%d", i), DateRegistered: "2024-01-0" + fmt.Sprint(i)}
		require.NoError(t, tables.Users.Append(ctx, u.Values()))
	}

	archived := s.Archive(ctx, []Unreachable{
		{ChatID: 2, Reason: model.ReasonBlocked},
		{ChatID: 4, Reason: model.ReasonDeactivated},
		{ChatID: 2, Reason: model.ReasonBlocked},
		{ChatID: 99, Reason: model.ReasonBlocked},
	})
	assert.Equal(t, 2, archived)

	var ids []string
	for _, u := range readUsers(t, tables) {
		ids = append(ids, u.TelegramID)
	}
	assert.Equal(t, []string{"1", "3", "5"}, ids)

	records, err := tables.Archive.Read(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	first := model.ArchivedUserFromRow(records[0].Fields)
	assert.Equal(t, "@u2", first.Username)
	assert.Equal(t, "2024-01-02", first.DateOn)
	assert.Equal(t, "2024-04-10", first.DateOff)
	assert.Equal(t, model.ReasonBlocked, first.Reason)
}

type failingTable struct {
	storage.Table
}

func (failingTable) Append(context.Context, []string) error { return errors.New("quota") }

func TestArchiveKeepsUserWhenArchiveWriteFails(t *testing.T) {
	ctx := context.Background()
	s, tables := newTestService(t, "2024-04-10")
	require.NoError(t, tables.Users.Append(ctx, model.User{TelegramID: "1"}.Values()))
	s.archive = failingTable{tables.Archive}

	assert.Zero(t, s.Archive(ctx, []Unreachable{{ChatID: 1, Reason: model.ReasonBlocked}}))
	assert.Len(t, readUsers(t, tables), 1)
}

type fakeFetcher struct {
	profiles map[int64]Profile
	errs     map[int64]error
}

func (f fakeFetcher) FetchProfile(_ context.Context, chatID int64) (Profile, error) {
	if err, ok := f.errs[chatID]; ok {
		return Profile{}, err
	}
	return f.profiles[chatID], nil
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	s, tables := newTestService(t, "2024-05-01")
	for _, u := range []model.User{
		{TelegramID: "1", Username: "@old", FirstName: "A", LastActive: "2024-01-01"},
		{TelegramID: "2", Username: "@b", FirstName: "B"},
		{TelegramID: "3", Username: "@c", FirstName: "C"},
		{TelegramID: "4", Username: "@d", FirstName: "D"},
		{TelegramID: "", Username: "@broken"},
	} {
		require.NoError(t, tables.Users.Append(ctx, u.Values()))
	}

	report, err := s.Sweep(ctx, fakeFetcher{
		profiles: map[int64]Profile{
			1: {ID: 1, Username: "new", FirstName: "A"},
			2: {ID: 2, Username: "b", FirstName: "B"},
		},
		errs: map[int64]error{
			3: &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"},
			4: errors.New("timeout"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, SweepReport{Checked: 4, Updated: 1, Archived: 1, Failed: 1}, report)

	users := readUsers(t, tables)
	require.Len(t, users, 4)
	assert.Equal(t, "@new", users[0].Username)
	assert.Equal(t, "2024-05-01", users[0].LastActive)
	assert.Equal(t, "4", users[2].TelegramID)
}

func TestClassifyDeliveryError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason model.ArchiveReason
		ok     bool
	}{
		{"blocked", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, model.ReasonBlocked, true},
		{"deactivated 403", &tgbotapi.Error{Code: 403, Message: "Forbidden: user is deactivated"}, model.ReasonDeactivated, true},
		{"deactivated 400", &tgbotapi.Error{Code: 400, Message: "Bad Request: user is deactivated"}, model.ReasonDeactivated, true},
		{"chat not found", &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, model.ReasonAccountDeleted, true},
		{"wrapped", fmt.Errorf("send: %w", &tgbotapi.Error{Code: 403, Message: "Forbidden"}), model.ReasonBlocked, true},
		{"value error", tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, model.ReasonBlocked, true},
		{"text only", errors.New("Forbidden: bot was blocked by the user"), model.ReasonBlocked, true},
		{"other 400", &tgbotapi.Error{Code: 400, Message: "Bad Request: message text is empty"}, model.ReasonUnknown, false},
		{"too many requests", &tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 5"}, model.ReasonUnknown, false},
		{"nil", nil, model.ReasonUnknown, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reason, ok := ClassifyDeliveryError(tc.err)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.reason, reason)
		})
	}
}
