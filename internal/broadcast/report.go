package broadcast

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"partnerapp/internal/model"
)

// RenderReport отчет о рассылке для админа
func RenderReport(r Report) string {
	var b strings.Builder
	b.WriteString("✅ <b>Рассылка завершена!</b>\n\n")
	fmt.Fprintf(&b, "📢 <b>Название:</b> %s\n", html.EscapeString(r.Name))
	fmt.Fprintf(&b, "🆔 <b>ID:</b> <code>%s</code>\n\n", html.EscapeString(r.BroadcastID))
	b.WriteString("📊 <b>Статистика:</b>\n")
	fmt.Fprintf(&b, "👥 Всего пользователей: %d\n", r.Total)
	fmt.Fprintf(&b, "✉️ Отправлено: %d\n", r.Sent)
	fmt.Fprintf(&b, "📖 Прочитано: %d\n", r.Sent)
	b.WriteString("👆 Кликов: 0 (отслеживается)\n")
	fmt.Fprintf(&b, "📈 Конверсия: %s (обновляется)\n", model.ConversionRate(0, r.Sent))
	fmt.Fprintf(&b, "❌ Ошибок: %d\n", r.Failed)

	if r.SaveErr != nil {
		msg := r.SaveErr.Error()
		if len([]rune(msg)) > 100 {
			msg = string([]rune(msg)[:100])
		}
		b.WriteString("\n⚠️ <b>Внимание:</b> Не удалось сохранить статистику в таблицу!\n")
		fmt.Fprintf(&b, "Ошибка: %s\n", html.EscapeString(msg))
	}

	if r.Unreachable > 0 {
		fmt.Fprintf(&b, "\n📦 Перенесено в архив: %d из %d\n\n", r.Archived, r.Unreachable)
		b.WriteString("<b>Причины:</b>\n")
		reasons := make([]model.ArchiveReason, 0, len(r.Reasons))
		for reason := range r.Reasons {
			reasons = append(reasons, reason)
		}
		sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
		for _, reason := range reasons {
			fmt.Fprintf(&b, "• %s: %d\n", reason, r.Reasons[reason])
		}
	}

	if r.Transient > 0 {
		fmt.Fprintf(&b, "\n⚠️ <b>Другие ошибки (%d):</b>\n", r.Transient)
		for _, f := range r.Errors {
			who := f.Username
			if who == "" {
				who = fmt.Sprint(f.ChatID)
			}
			text := f.Err
			if len([]rune(text)) > 50 {
				text = string([]rune(text)[:50])
			}
			fmt.Fprintf(&b, "• %s: %s\n", html.EscapeString(who), html.EscapeString(text))
		}
		if rest := r.Transient - len(r.Errors); rest > 0 {
			fmt.Fprintf(&b, "• ... и еще %d\n", rest)
		}
	}
	return b.String()
}
