package broadcast

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"partnerapp/internal/model"
	"partnerapp/internal/storage"
	"partnerapp/internal/users"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	chatID int64
	msg    Message
}

type fakeDeliverer struct {
	mu    sync.Mutex
	errs  map[int64]error
	calls []delivery
}

func (f *fakeDeliverer) Deliver(_ context.Context, chatID int64, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, delivery{chatID: chatID, msg: msg})
	return f.errs[chatID]
}

type failingAppend struct {
	storage.Table
}

func (failingAppend) Append(context.Context, []string) error {
	return errors.New("Unable to parse range: broadcasts")
}

func seedUsers(t *testing.T, tables *storage.Tables, ids ...string) {
	t.Helper()
	for _, id := range ids {
		u := model.User{TelegramID: id, Username: "@u" + id, FirstName: "U", DateRegistered: "2024-01-01", BotStarted: model.BotStartedTrue}
		require.NoError(t, tables.Users.Append(context.Background(), u.Values()))
	}
}

func newTestExecutor(tables *storage.Tables, d Deliverer) *Executor {
	e := NewExecutor(users.NewService(tables, 0), tables.Broadcasts, d, "https://bot.example.com/", 0)
	e.now = func() time.Time { return time.Date(2024, 6, 1, 10, 30, 0, 0, time.Local) }
	return e
}

func TestExecuteArchivesBlockedUser(t *testing.T) {
	ctx := context.Background()
	tables := storage.NewMemoryTables()
	seedUsers(t, tables, "1", "2", "3")
	deliverer := &fakeDeliverer{errs: map[int64]error{
		2: &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"},
	}}
	e := newTestExecutor(tables, deliverer)

	var progress []string
	d := model.Draft{Step: model.StepConfirm, BroadcastID: "BR_1", BroadcastName: "Promo", Title: "Hello"}
	report, err := e.Execute(ctx, d, func(s string) { progress = append(progress, s) })
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Archived)
	assert.Equal(t, map[model.ArchiveReason]int{model.ReasonBlocked: 1}, report.Reasons)
	assert.NoError(t, report.SaveErr)
	assert.Len(t, progress, 3)

	live, err := tables.Users.Read(ctx)
	require.NoError(t, err)
	var ids []string
	for _, r := range live {
		ids = append(ids, r.Get("telegram_id"))
	}
	assert.Equal(t, []string{"1", "3"}, ids)

	archived, err := tables.Archive.Read(ctx)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "2", archived[0].Get("telegram_id"))
	assert.NotEmpty(t, archived[0].Get("date_off"))

	rows, err := tables.Broadcasts.Read(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := model.BroadcastFromRow(rows[0].Fields)
	assert.Equal(t, model.Broadcast{
		ID:             "BR_1",
		Name:           "Promo",
		Date:           "2024-06-01",
		Time:           "10:30:00",
		SentCount:      2,
		ReadCount:      2,
		ConversionRate: "0.00%",
		Title:          "Hello",
		TotalUsers:     3,
		FailCount:      1,
		ArchivedCount:  1,
	}, row)
}

func TestExecuteKeepsTransientFailures(t *testing.T) {
	ctx := context.Background()
	tables := storage.NewMemoryTables()
	seedUsers(t, tables, "1", "2", "3", "4", "5", "6", "7")
	errs := map[int64]error{}
	for i := int64(1); i <= 6; i++ {
		errs[i] = fmt.Errorf("timeout %d", i)
	}
	e := newTestExecutor(tables, &fakeDeliverer{errs: errs})

	report, err := e.Execute(ctx, model.Draft{BroadcastID: "BR_2", Title: "t"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 6, report.Failed)
	assert.Equal(t, 6, report.Transient)
	assert.Len(t, report.Errors, maxReportedErrors)
	assert.Zero(t, report.Archived)
	assert.Equal(t, model.DefaultBroadcastName, report.Name)

	live, err := tables.Users.Read(ctx)
	require.NoError(t, err)
	assert.Len(t, live, 7)

	text := RenderReport(report)
	assert.Contains(t, text, "Другие ошибки (6)")
	assert.Contains(t, text, "... и еще 1")
}

func TestExecuteReportsSaveFailure(t *testing.T) {
	tables := storage.NewMemoryTables()
	seedUsers(t, tables, "1")
	deliverer := &fakeDeliverer{}
	e := newTestExecutor(tables, deliverer)
	e.broadcasts = failingAppend{tables.Broadcasts}

	report, err := e.Execute(context.Background(), model.Draft{BroadcastID: "BR_3", Title: "t"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Error(t, report.SaveErr)
	assert.Len(t, deliverer.calls, 1)
	assert.Contains(t, RenderReport(report), "Не удалось сохранить статистику")
}

func TestExecuteMessageUsesTrackedButton(t *testing.T) {
	tables := storage.NewMemoryTables()
	seedUsers(t, tables, "1")
	deliverer := &fakeDeliverer{}
	e := newTestExecutor(tables, deliverer)

	d := model.Draft{
		BroadcastID: "BR_9",
		Title:       "Sale",
		Subtitle:    "today",
		MediaType:   model.MediaPhoto,
		MediaURL:    "https://cdn.example.com/a.jpg",
		ButtonText:  "Buy",
		ButtonURL:   "https://shop.example.com/item?id=1&ref=bot",
	}
	_, err := e.Execute(context.Background(), d, nil)
	require.NoError(t, err)
	require.Len(t, deliverer.calls, 1)

	msg := deliverer.calls[0].msg
	assert.Equal(t, "<b>Sale</b>\n\ntoday", msg.Text)
	assert.Equal(t, model.MediaPhoto, msg.Media)
	assert.Equal(t, "https://cdn.example.com/a.jpg", msg.MediaSource)
	assert.Equal(t, "Buy", msg.ButtonText)
	require.True(t, strings.HasPrefix(msg.ButtonURL, "https://bot.example.com/r/BR_9/"))

	escaped := strings.TrimPrefix(msg.ButtonURL, "https://bot.example.com/r/BR_9/")
	assert.NotContains(t, escaped, "/")
	original, err := url.PathUnescape(escaped)
	require.NoError(t, err)
	assert.Equal(t, d.ButtonURL, original)
}

func TestPush(t *testing.T) {
	ctx := context.Background()
	tables := storage.NewMemoryTables()
	seedUsers(t, tables, "1", "2")
	deliverer := &fakeDeliverer{errs: map[int64]error{
		1: &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"},
	}}
	e := newTestExecutor(tables, deliverer)

	res, err := e.Push(ctx, "News", "body", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, PushResult{Sent: 1, Total: 2}, res)
	assert.Equal(t, "https://example.com", deliverer.calls[1].msg.ButtonURL)
	assert.Equal(t, pushButtonText, deliverer.calls[1].msg.ButtonText)

	rows, err := tables.Broadcasts.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	archived, err := tables.Archive.Read(ctx)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "deleted", archived[0].Get("reason"))
}

func TestStatsRecentAndFind(t *testing.T) {
	ctx := context.Background()
	tables := storage.NewMemoryTables()
	for i, when := range []string{"2024-01-02 10:00:00", "2024-03-01 09:00:00", "2024-03-01 18:00:00"} {
		parts := strings.Split(when, " ")
		b := model.Broadcast{ID: fmt.Sprintf("BR_%d", i), Name: fmt.Sprintf("n%d", i), Date: parts[0], Time: parts[1]}
		require.NoError(t, tables.Broadcasts.Append(ctx, b.Values()))
	}
	stats := NewStats(tables.Broadcasts)

	recent, total, err := stats.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, recent, 2)
	assert.Equal(t, "BR_2", recent[0].ID)
	assert.Equal(t, "BR_1", recent[1].ID)
	assert.Contains(t, RenderList(recent, total), "...и еще 1 рассылок")

	found, err := stats.Find(ctx, "BR_0")
	require.NoError(t, err)
	assert.Equal(t, "n0", found.Name)

	_, err = stats.Find(ctx, "BR_404")
	assert.ErrorIs(t, err, ErrBroadcastNotFound)
}

func TestShortName(t *testing.T) {
	assert.Equal(t, model.DefaultBroadcastName, ShortName(" "))
	assert.Equal(t, "Акция Январь 2026", ShortName("Акция Январь 2026"))
	assert.Equal(t, "абвгдеёжзийклмнопрст...", ShortName("абвгдеёжзийклмнопрстуф"))
}
