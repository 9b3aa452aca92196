package broadcast

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	"partnerapp/internal/model"
	"partnerapp/internal/storage"
)

const (
	RecentLimit  = 10
	DetailLimit  = 5
	DetailPrefix = "broadcast_detail_"
)

var ErrBroadcastNotFound = errors.New("рассылка не найдена")

// Stats чтение статистики рассылок
type Stats struct {
	table storage.Table
}

func NewStats(table storage.Table) *Stats {
	return &Stats{table: table}
}

func (s *Stats) all(ctx context.Context) ([]model.Broadcast, error) {
	records, err := s.table.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать рассылки: %w", err)
	}
	list := make([]model.Broadcast, 0, len(records))
	for _, r := range records {
		list = append(list, model.BroadcastFromRow(r.Fields))
	}
	return list, nil
}

// Recent последние limit рассылок, новые первыми, и общее количество
func (s *Stats) Recent(ctx context.Context, limit int) ([]model.Broadcast, int, error) {
	list, err := s.all(ctx)
	if err != nil {
		return nil, 0, err
	}
	// Даты и время в фиксированном формате, строки сравниваются как даты
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Date+" "+list[i].Time > list[j].Date+" "+list[j].Time
	})
	total := len(list)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, total, nil
}

// Find рассылка по broadcast_id
func (s *Stats) Find(ctx context.Context, id string) (model.Broadcast, error) {
	list, err := s.all(ctx)
	if err != nil {
		return model.Broadcast{}, err
	}
	for _, b := range list {
		if b.ID == id {
			return b, nil
		}
	}
	return model.Broadcast{}, ErrBroadcastNotFound
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return model.DefaultBroadcastName
	}
	return name
}

func rateOrZero(rate string) string {
	if rate == "" {
		return model.ConversionRate(0, 0)
	}
	return rate
}

// ShortName имя для кнопки: не длиннее 20 символов
func ShortName(name string) string {
	r := []rune(displayName(name))
	if len(r) > 20 {
		return string(r[:20]) + "..."
	}
	return string(r)
}

// RenderList список последних рассылок
func RenderList(recent []model.Broadcast, total int) string {
	if total == 0 {
		return "📈 <b>Статистика рассылок</b>\n\n📭 Рассылок пока нет."
	}

	var b strings.Builder
	b.WriteString("📈 <b>Статистика рассылок</b>\n\n")
	fmt.Fprintf(&b, "📊 Всего рассылок: %d\n\n", total)
	b.WriteString(separator + "\n")
	for i, item := range recent {
		fmt.Fprintf(&b, "\n%d. <b>%s</b>\n", i+1, html.EscapeString(displayName(item.Name)))
		fmt.Fprintf(&b, "📅 %s | 🕐 %s\n", item.Date, item.Time)
		fmt.Fprintf(&b, "✉️ %d | 👆 %d | 📈 %s\n", item.SentCount, item.ClickCount, rateOrZero(item.ConversionRate))
	}
	if rest := total - len(recent); rest > 0 {
		fmt.Fprintf(&b, "\n<i>...и еще %d рассылок</i>", rest)
	}
	return b.String()
}

// RenderDetail карточка одной рассылки
func RenderDetail(item model.Broadcast) string {
	var b strings.Builder
	b.WriteString("📊 <b>Детальная статистика</b>\n\n")
	fmt.Fprintf(&b, "📢 <b>Название:</b> %s\n", html.EscapeString(displayName(item.Name)))
	fmt.Fprintf(&b, "🆔 <b>ID:</b> <code>%s</code>\n\n", html.EscapeString(item.ID))
	fmt.Fprintf(&b, "📅 <b>Дата:</b> %s\n", item.Date)
	fmt.Fprintf(&b, "🕐 <b>Время:</b> %s\n\n", item.Time)

	b.WriteString(separator + "\n📊 <b>СТАТИСТИКА:</b>\n\n")
	fmt.Fprintf(&b, "👥 Всего пользователей: %d\n", item.TotalUsers)
	fmt.Fprintf(&b, "✉️ Отправлено: %d\n", item.SentCount)
	fmt.Fprintf(&b, "📖 Прочитано: %d\n", item.ReadCount)
	fmt.Fprintf(&b, "👆 Кликнули: %d\n", item.ClickCount)
	fmt.Fprintf(&b, "📈 Конверсия: <b>%s</b>\n\n", rateOrZero(item.ConversionRate))
	if item.FailCount > 0 {
		fmt.Fprintf(&b, "❌ Ошибок: %d\n", item.FailCount)
	}
	if item.ArchivedCount > 0 {
		fmt.Fprintf(&b, "📦 Архивировано: %d\n", item.ArchivedCount)
	}

	b.WriteString("\n" + separator + "\n📝 <b>СОДЕРЖАНИЕ:</b>\n\n")
	if item.Title != "" {
		fmt.Fprintf(&b, "<b>Заголовок:</b> %s\n", html.EscapeString(item.Title))
	}
	if item.Subtitle != "" {
		fmt.Fprintf(&b, "<b>Текст:</b> %s\n", html.EscapeString(item.Subtitle))
	}
	if item.ButtonText != "" && item.ButtonURL != "" {
		fmt.Fprintf(&b, "\n🔘 <b>Кнопка:</b> %s\n", html.EscapeString(item.ButtonText))
		fmt.Fprintf(&b, "🔗 <b>Ссылка:</b> %s", html.EscapeString(item.ButtonURL))
	}
	return b.String()
}
