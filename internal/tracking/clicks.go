package tracking

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	"partnerapp/internal/cache"
	"partnerapp/internal/infrastructure/logger"
	"partnerapp/internal/model"
	"partnerapp/internal/storage"
	"partnerapp/internal/users"
	"partnerapp/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const unknownPartner = "Unknown"

// Messenger отправка и удаление личных сообщений
type Messenger interface {
	// SendText отправляет HTML сообщение без превью ссылок и возвращает его id
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// ClickInput клик по партнерской ссылке из мини приложения
type ClickInput struct {
	TelegramID int64
	URL        string
	Title      string
	Category   string
}

// ClickResult Clicks - сколько раз пользователь открыл эту ссылку
type ClickResult struct {
	Clicks        int
	PromocodeSent bool
}

// CleanupReport итог удаления старых промокодов
type CleanupReport struct {
	Deleted int `json:"deleted"`
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// Clicks учет кликов по партнерам и отправка промокодов
type Clicks struct {
	clicks    storage.Table
	partners  storage.Table
	users     *users.Service
	messenger Messenger
	tickets   *cache.PromoTicketStore
	retention time.Duration
	now       func() time.Time

	mu sync.Mutex
}

func NewClicks(tables *storage.Tables, svc *users.Service, messenger Messenger, tickets *cache.PromoTicketStore, retention time.Duration) *Clicks {
	return &Clicks{
		clicks:    tables.Clicks,
		partners:  tables.Partners,
		users:     svc,
		messenger: messenger,
		tickets:   tickets,
		retention: retention,
		now:       time.Now,
	}
}

// Partners партнеры со ссылкой в порядке таблицы
func (c *Clicks) Partners(ctx context.Context) ([]model.Partner, error) {
	records, err := c.partners.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать партнеров: %w", err)
	}
	partners := make([]model.Partner, 0, len(records))
	for _, r := range records {
		p := model.PartnerFromRow(r.Fields)
		if strings.TrimSpace(p.URL) == "" {
			continue
		}
		partners = append(partners, p)
	}
	return partners, nil
}

func (c *Clicks) findPartner(ctx context.Context, link string) (model.Partner, bool) {
	partners, err := c.Partners(ctx)
	if err != nil {
		logger.Errorf("Клик по %s: %v", link, err)
		return model.Partner{}, false
	}
	for _, p := range partners {
		if p.URL == link {
			return p, true
		}
	}
	return model.Partner{}, false
}

// Register записывает клик: одна строка на пару (пользователь, ссылка), счетчик растет.
// Если у партнера есть промокод, он отправляется пользователю в личные сообщения.
// Ошибка отправки промокода не влияет на результат
func (c *Clicks) Register(ctx context.Context, in ClickInput) (ClickResult, error) {
	if in.TelegramID == 0 || strings.TrimSpace(in.URL) == "" {
		return ClickResult{}, errors.New("нужны telegram_id и url")
	}

	partner, found := c.findPartner(ctx, in.URL)
	if !found {
		partner = model.Partner{Title: in.Title, Category: in.Category, URL: in.URL}
	}
	if strings.TrimSpace(partner.Title) == "" {
		partner.Title = unknownPartner
	}

	count, err := c.upsert(ctx, in, partner)
	if err != nil {
		return ClickResult{}, err
	}

	res := ClickResult{Clicks: count, PromocodeSent: partner.Promocode != ""}
	if res.PromocodeSent {
		c.sendPromocode(ctx, in.TelegramID, in.URL, partner)
	}
	return res, nil
}

func (c *Clicks) upsert(ctx context.Context, in ClickInput, partner model.Partner) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	today, clock := utils.Date(now), utils.Clock(now)
	stamp := now.UTC().Format(time.RFC3339)
	id := strconv.FormatInt(in.TelegramID, 10)

	records, err := c.clicks.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("не удалось прочитать клики: %w", err)
	}
	for _, r := range records {
		if strings.TrimSpace(r.Get("telegram_id")) != id || r.Get("url") != in.URL {
			continue
		}
		click := model.ClickFromRow(r.Fields)
		if click.ClickCount < 1 {
			click.ClickCount = 1
		}
		click.ClickCount++
		if click.FirstClickDate == "" {
			click.FirstClickDate = today
		}
		click.LastClickDate, click.LastClickTime, click.Timestamp = today, clock, stamp
		if err := c.clicks.Update(ctx, r.Index, click.Values()); err != nil {
			return 0, fmt.Errorf("не удалось обновить клик: %w", err)
		}
		return click.ClickCount, nil
	}

	click := model.Click{
		TelegramID:     id,
		PartnerTitle:   partner.Title,
		Category:       partner.Category,
		URL:            in.URL,
		ClickCount:     1,
		FirstClickDate: today,
		LastClickDate:  today,
		LastClickTime:  clock,
		Timestamp:      stamp,
	}
	if user, ok, err := c.users.Lookup(ctx, in.TelegramID); err != nil {
		logger.Warnf("Клик %d: %v", in.TelegramID, err)
	} else if ok {
		click.Username, click.FirstName = user.Username, user.FirstName
	}
	if err := c.clicks.Append(ctx, click.Values()); err != nil {
		return 0, fmt.Errorf("не удалось добавить клик: %w", err)
	}
	return 1, nil
}

// PromoText сообщение с промокодом
func PromoText(partner model.Partner, link string) string {
	return fmt.Sprintf("🎁 <b>Ваш промокод от %s</b>\n\n<code>%s</code>\n\n<i>Нажмите на промокод чтобы скопировать</i>\n\n🔗 <a href=\"%s\">Перейти к партнеру</a>",
		html.EscapeString(partner.Title), html.EscapeString(partner.Promocode), html.EscapeString(link))
}

func (c *Clicks) sendPromocode(ctx context.Context, chatID int64, link string, partner model.Partner) {
	messageID, err := c.messenger.SendText(ctx, chatID, PromoText(partner, link))
	if err != nil {
		logger.Errorf("Не удалось отправить промокод %s пользователю %d: %v", partner.Promocode, chatID, err)
		return
	}

	ticket := model.PromoTicket{
		ChatID:    chatID,
		MessageID: messageID,
		DeleteAt:  c.now().Add(c.retention).UnixMilli(),
		Promocode: partner.Promocode,
		Partner:   partner.Title,
	}
	if err := c.tickets.Put(ticket); err != nil {
		logger.Errorf("Не удалось запланировать удаление промокода %d/%d: %v", chatID, messageID, err)
		return
	}
	logger.Infof("Промокод %s отправлен пользователю %d", partner.Promocode, chatID)
}

// messageGone сообщение уже удалено или удалить его больше нельзя
func messageGone(err error) bool {
	description := err.Error()
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		description = apiErr.Message
	}
	description = strings.ToLower(description)
	return strings.Contains(description, "message to delete not found") ||
		strings.Contains(description, "message can't be deleted")
}

// CleanupPromos удаляет сообщения с промокодами, у которых истек срок хранения
func (c *Clicks) CleanupPromos(ctx context.Context, now time.Time) CleanupReport {
	var report CleanupReport
	for _, ticket := range c.tickets.List() {
		if now.UnixMilli() < ticket.DeleteAt {
			report.Pending++
			continue
		}

		err := c.messenger.DeleteMessage(ctx, ticket.ChatID, ticket.MessageID)
		switch {
		case err == nil:
			report.Deleted++
		case messageGone(err):
			logger.Infof("Сообщение %d в чате %d уже удалено", ticket.MessageID, ticket.ChatID)
		default:
			// Заявка остается до следующей проверки
			report.Failed++
			logger.Errorf("Не удалось удалить промокод %d в чате %d: %v", ticket.MessageID, ticket.ChatID, err)
			continue
		}
		c.tickets.Delete(ticket)
	}
	return report
}

// Totals количество строк кликов и сумма всех счетчиков
func (c *Clicks) Totals(ctx context.Context) (rows, total int, err error) {
	records, err := c.clicks.Read(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("не удалось прочитать клики: %w", err)
	}
	for _, r := range records {
		total += model.ClickFromRow(r.Fields).ClickCount
	}
	return len(records), total, nil
}
