package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"partnerapp/internal/broadcast"
	"partnerapp/internal/cache"
	"partnerapp/internal/model"
	"partnerapp/internal/scheduler"
	"partnerapp/internal/storage"
	"partnerapp/internal/tracking"
	"partnerapp/internal/users"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const testToken = "123:ABC"

type fakeDispatcher struct {
	mu      sync.Mutex
	updates []tgbotapi.Update
}

func (f *fakeDispatcher) Dispatch(_ context.Context, update tgbotapi.Update) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
}

type fakeRunner struct {
	err   error
	calls int
}

func (f *fakeRunner) RunOnce(context.Context) (scheduler.Report, error) {
	f.calls++
	return scheduler.Report{Users: users.SweepReport{Checked: 4}}, f.err
}

type nopMessenger struct{ sent int }

func (m *nopMessenger) SendText(context.Context, int64, string) (int, error) {
	m.sent++
	return m.sent, nil
}
func (m *nopMessenger) DeleteMessage(context.Context, int64, int) error { return nil }

type recordingDeliverer struct{ chats []int64 }

func (d *recordingDeliverer) Deliver(_ context.Context, chatID int64, _ broadcast.Message) error {
	d.chats = append(d.chats, chatID)
	return nil
}

type testServer struct {
	handler    http.Handler
	tables     *storage.Tables
	dispatcher *fakeDispatcher
	runner     *fakeRunner
	deliverer  *recordingDeliverer
	messenger  *nopMessenger
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	ctx := context.Background()
	tables := storage.NewMemoryTables()
	require.NoError(t, tables.Admins.Append(ctx, []string{"@boss", "100"}))
	require.NoError(t, tables.Partners.Append(ctx, model.Partner{Title: "Shop", URL: "https://shop.example.com", Promocode: "SALE"}.Values()))
	require.NoError(t, tables.Partners.Append(ctx, model.Partner{Title: "Empty"}.Values()))
	require.NoError(t, tables.Broadcasts.Append(ctx, model.Broadcast{ID: "BR_1", SentCount: 4}.Values()))

	svc := users.NewService(tables, 0)
	messenger := &nopMessenger{}
	deliverer := &recordingDeliverer{}
	dispatcher := &fakeDispatcher{}
	runner := &fakeRunner{}

	if opts.BotToken == "" {
		opts.BotToken = testToken
	}
	app := NewWebApp(Deps{
		Users:     svc,
		Clicks:    tracking.NewClicks(tables, svc, messenger, cache.NewPromoTicketStore(cache.NewKV(), time.Hour), time.Hour),
		Tracker:   tracking.NewTracker(tables.Broadcasts),
		Executor:  broadcast.NewExecutor(svc, tables.Broadcasts, deliverer, "https://bot.example.com", 0),
		Bot:       dispatcher,
		Scheduler: runner,
	}, opts)
	app.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	return &testServer{
		handler:    app.Handler(),
		tables:     tables,
		dispatcher: dispatcher,
		runner:     runner,
		deliverer:  deliverer,
		messenger:  messenger,
	}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Options{Version: "3.0.0", Mode: "test"})
	rec := s.do("GET", "/api/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.Bytes()
	assert.Equal(t, "ok", gjson.GetBytes(body, "status").String())
	assert.Equal(t, "2024-05-01T12:00:00Z", gjson.GetBytes(body, "timestamp").String())
	assert.Equal(t, "3.0.0", gjson.GetBytes(body, "version").String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestPreflightAndNotFound(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do("OPTIONS", "/api/click", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	rec = s.do("GET", "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", gjson.GetBytes(rec.Body.Bytes(), "error").String())
	assert.False(t, gjson.GetBytes(rec.Body.Bytes(), "success").Bool())
}

func TestUserRegistration(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do("POST", "/api/user", `{"id":"7","username":"neo","first_name":"Neo"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gjson.GetBytes(rec.Body.Bytes(), "registered").Bool())

	rec = s.do("POST", "/api/user", `{"id":7,"username":"neo","first_name":"Neo"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gjson.GetBytes(rec.Body.Bytes(), "registered").Bool())

	records, err := s.tables.Users.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "@neo", records[0].Get("username"))

	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/user", `{"username":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/user", `{bad json`).Code)
}

func TestMe(t *testing.T) {
	s := newTestServer(t, Options{})
	cases := map[string]bool{
		`{"id":100}`:                   true,
		`{"id":"5","username":"BOSS"}`: true,
		`{"id":5,"username":"neo"}`:    false,
	}
	for body, want := range cases {
		rec := s.do("POST", "/api/me", body)
		require.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, want, gjson.GetBytes(rec.Body.Bytes(), "isAdmin").Bool(), body)
	}
}

func TestMeRequiresInitData(t *testing.T) {
	s := newTestServer(t, Options{RequireInitData: true})
	rec := s.do("POST", "/api/me", `{"id":100}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPartners(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := s.do("GET", "/api/partners", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var partners []model.Partner
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &partners))
	require.Len(t, partners, 1)
	assert.Equal(t, "Shop", partners[0].Title)
}

func TestClick(t *testing.T) {
	s := newTestServer(t, Options{})

	for i := 1; i <= 2; i++ {
		rec := s.do("POST", "/api/click", `{"telegram_id":"7","url":"https://shop.example.com","title":"Shop"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.Bytes()
		assert.Equal(t, int64(i), gjson.GetBytes(body, "clicks").Int())
		assert.True(t, gjson.GetBytes(body, "promocode_sent").Bool())
		assert.True(t, gjson.GetBytes(body, "success").Bool())
	}
	assert.Equal(t, 2, s.messenger.sent)

	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/click", `{"url":"https://shop.example.com"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/click", `{"telegram_id":7}`).Code)
}

func TestSubscribersAndPush(t *testing.T) {
	s := newTestServer(t, Options{})
	ctx := context.Background()
	require.NoError(t, s.tables.Users.Append(ctx, model.User{TelegramID: "1", BotStarted: model.BotStartedTrue}.Values()))
	require.NoError(t, s.tables.Users.Append(ctx, model.User{TelegramID: "2", BotStarted: "FALSE"}.Values()))

	rec := s.do("GET", "/api/subscribers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total":2,"subscribed":1}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, s.do("POST", "/api/push", `{"link":"https://a.b"}`).Code)

	rec = s.do("POST", "/api/push", `{"title":"Hi","msg":"News"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sent":2,"total":2}`, rec.Body.String())
	assert.Equal(t, []int64{1, 2}, s.deliverer.chats)
}

func TestRedirect(t *testing.T) {
	s := newTestServer(t, Options{})
	original := "https://shop.example.com/item?id=1&ref=bot"
	tracked := broadcast.TrackedURL("", "BR_1", original)

	rec := s.do("GET", tracked, "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, original, rec.Header().Get("Location"))

	records, err := s.tables.Broadcasts.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", records[0].Get("click_count"))
	assert.Equal(t, "25.00%", records[0].Get("conversion_rate"))

	// Неизвестная рассылка все равно ведет на ссылку партнера
	rec = s.do("GET", broadcast.TrackedURL("", "BR_404", original), "")
	assert.Equal(t, http.StatusFound, rec.Code)

	rec = s.do("GET", "/r/BR_1/javascript:alert(1)", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	s := newTestServer(t, Options{})
	rec := s.do("POST", "/bot"+testToken, `{"update_id":9,"message":{"message_id":1,"text":"/start","chat":{"id":7}}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, s.dispatcher.updates, 1)
	assert.Equal(t, 9, s.dispatcher.updates[0].UpdateID)
	assert.Equal(t, "/start", s.dispatcher.updates[0].Message.Text)

	assert.Equal(t, http.StatusNotFound, s.do("POST", "/botWRONG", `{}`).Code)
}

func TestInternalSweep(t *testing.T) {
	s := newTestServer(t, Options{InternalToken: "secret"})

	assert.Equal(t, http.StatusUnauthorized, s.do("POST", "/internal/sweep?token=nope", "").Code)

	rec := s.do("POST", "/internal/sweep?token=secret", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), gjson.GetBytes(rec.Body.Bytes(), "users.checked").Int())

	s.runner.err = scheduler.ErrSweepRunning
	assert.Equal(t, http.StatusConflict, s.do("POST", "/internal/sweep?token=secret", "").Code)

	off := newTestServer(t, Options{})
	assert.Equal(t, http.StatusNotFound, off.do("POST", "/internal/sweep?token=", "").Code)
}

func TestLimitMiddleware(t *testing.T) {
	s := newTestServer(t, Options{RateLimitRPS: 1, RateLimitBurst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, s.do("GET", "/api/health", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Редиректы не ограничиваются
	rec := s.do("GET", broadcast.TrackedURL("", "BR_1", "https://shop.example.com"), "")
	assert.Equal(t, http.StatusFound, rec.Code)
}
