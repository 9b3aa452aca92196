package broadcast

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/model"
	"partnerapp/internal/storage"
	"partnerapp/internal/users"
	"partnerapp/internal/utils"

	"golang.org/x/time/rate"
)

const (
	maxReportedErrors = 5
	pushButtonText    = "Открыть"
)

// Message одно сообщение рассылки. Text в HTML
type Message struct {
	Text        string
	Media       model.MediaKind
	MediaSource string
	ButtonText  string
	ButtonURL   string
}

// Deliverer доставляет сообщение рассылки одному пользователю.
// Способ отправки выбирается по Media
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, msg Message) error
}

// Failure временная ошибка доставки
type Failure struct {
	ChatID   int64
	Username string
	Err      string
}

// Report итог рассылки
type Report struct {
	BroadcastID string
	Name        string
	Total       int
	Sent        int
	Failed      int
	Unreachable int
	Archived    int
	Reasons     map[model.ArchiveReason]int
	// Errors первые временные ошибки, Transient - сколько их всего
	Errors    []Failure
	Transient int
	SaveErr   error
}

// PushResult итог рассылки через /api/push
type PushResult struct {
	Sent  int `json:"sent"`
	Total int `json:"total"`
}

// Executor рассылает сообщения всем пользователям по одному с паузой
type Executor struct {
	users      *users.Service
	broadcasts storage.Table
	deliverer  Deliverer
	publicURL  string
	pause      time.Duration
	now        func() time.Time
}

func NewExecutor(svc *users.Service, broadcasts storage.Table, deliverer Deliverer, publicURL string, pause time.Duration) *Executor {
	return &Executor{
		users:      svc,
		broadcasts: broadcasts,
		deliverer:  deliverer,
		publicURL:  strings.TrimRight(publicURL, "/"),
		pause:      pause,
		now:        time.Now,
	}
}

// TrackedURL ссылка через редирект /r/<id>/<url>, по которой считаются клики
func TrackedURL(publicURL, broadcastID, original string) string {
	return strings.TrimRight(publicURL, "/") + "/r/" + url.PathEscape(broadcastID) + "/" + url.PathEscape(original)
}

func (e *Executor) limiter() *rate.Limiter {
	if e.pause <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(e.pause), 1)
}

// Message сообщение рассылки из черновика. Ссылка кнопки заменяется на отслеживаемую
func (e *Executor) Message(d model.Draft) Message {
	msg := Message{
		Text:        Body(d.Title, d.Subtitle),
		Media:       d.MediaType,
		MediaSource: d.MediaSource(),
	}
	if msg.MediaSource == "" {
		msg.Media = model.MediaNone
	}
	if d.HasButton() {
		msg.ButtonText = d.ButtonText
		msg.ButtonURL = TrackedURL(e.publicURL, d.BroadcastID, d.ButtonURL)
	}
	return msg
}

type outcome struct {
	sent        int
	failed      int
	unreachable []users.Unreachable
	transient   []Failure
}

// deliverAll отправляет msg всем участникам последовательно. Ошибка по одному
// пользователю не останавливает рассылку
func (e *Executor) deliverAll(ctx context.Context, members []users.Member, msg Message) outcome {
	var out outcome
	limiter := e.limiter()
	for _, m := range members {
		if err := limiter.Wait(ctx); err != nil {
			logger.Errorf("Рассылка прервана: %v", err)
			break
		}

		err := e.deliverer.Deliver(ctx, m.ChatID, msg)
		if err == nil {
			out.sent++
			continue
		}

		out.failed++
		if reason, ok := users.ClassifyDeliveryError(err); ok {
			logger.Infof("Пользователь %d недоступен: %s", m.ChatID, reason)
			out.unreachable = append(out.unreachable, users.Unreachable{ChatID: m.ChatID, Reason: reason})
			continue
		}
		logger.Warnf("Не удалось отправить сообщение %d: %v", m.ChatID, err)
		out.transient = append(out.transient, Failure{ChatID: m.ChatID, Username: m.Username, Err: err.Error()})
	}
	return out
}

// Execute отправляет рассылку всем пользователям, переносит недоступных в архив
// и сохраняет строку статистики. progress получает промежуточные сообщения для админа.
// Ошибка возвращается только если не удалось прочитать пользователей
func (e *Executor) Execute(ctx context.Context, d model.Draft, progress func(string)) (Report, error) {
	if progress == nil {
		progress = func(string) {}
	}
	report := Report{
		BroadcastID: d.BroadcastID,
		Name:        d.BroadcastName,
		Reasons:     make(map[model.ArchiveReason]int),
	}
	if strings.TrimSpace(report.Name) == "" {
		report.Name = model.DefaultBroadcastName
	}

	progress("⏳ Проверяю активных подписчиков...")
	members, err := e.users.Members(ctx)
	if err != nil {
		return report, err
	}
	report.Total = len(members)
	progress(fmt.Sprintf("📊 Найдено пользователей: %d\n⏳ Начинаю рассылку...", report.Total))

	logger.Infof("Рассылка %s: начало, пользователей %d", d.BroadcastID, report.Total)
	out := e.deliverAll(ctx, members, e.Message(d))

	report.Sent = out.sent
	report.Failed = out.failed
	report.Unreachable = len(out.unreachable)
	report.Transient = len(out.transient)
	for _, u := range out.unreachable {
		report.Reasons[u.Reason]++
	}
	if len(out.transient) > maxReportedErrors {
		out.transient = out.transient[:maxReportedErrors]
	}
	report.Errors = out.transient

	if len(out.unreachable) > 0 {
		progress(fmt.Sprintf("🧹 Переношу %d неактивных пользователей в архив...", len(out.unreachable)))
		report.Archived = e.users.Archive(ctx, out.unreachable)
	}

	now := e.now()
	row := model.Broadcast{
		ID:             d.BroadcastID,
		Name:           report.Name,
		Date:           utils.Date(now),
		Time:           utils.Clock(now),
		SentCount:      report.Sent,
		ReadCount:      report.Sent,
		ConversionRate: model.ConversionRate(0, report.Sent),
		Title:          d.Title,
		Subtitle:       d.Subtitle,
		ButtonText:     d.ButtonText,
		ButtonURL:      d.ButtonURL,
		TotalUsers:     report.Total,
		FailCount:      report.Failed,
		ArchivedCount:  report.Archived,
	}
	if err := e.broadcasts.Append(ctx, row.Values()); err != nil {
		report.SaveErr = err
		logger.Errorf("Рассылка %s: не удалось сохранить статистику: %v", d.BroadcastID, err)
	}

	logger.Infof("Рассылка %s завершена: отправлено %d из %d, ошибок %d, в архив %d",
		d.BroadcastID, report.Sent, report.Total, report.Failed, report.Archived)
	return report, nil
}

// Push быстрая рассылка текста без мастера. Ссылка не отслеживается, строка статистики не пишется
func (e *Executor) Push(ctx context.Context, title, text, link string) (PushResult, error) {
	members, err := e.users.Members(ctx)
	if err != nil {
		return PushResult{}, err
	}

	msg := Message{Text: Body(title, text)}
	if link = strings.TrimSpace(link); link != "" {
		msg.ButtonText, msg.ButtonURL = pushButtonText, link
	}

	out := e.deliverAll(ctx, members, msg)
	if len(out.unreachable) > 0 {
		e.users.Archive(ctx, out.unreachable)
	}
	logger.Infof("Push рассылка: отправлено %d из %d", out.sent, len(members))
	return PushResult{Sent: out.sent, Total: len(members)}, nil
}
