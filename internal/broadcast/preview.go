package broadcast

import (
	"fmt"
	"html"
	"strings"

	"partnerapp/internal/model"
)

const separator = "━━━━━━━━━━━━━━━━"

// Prompt подсказка шага мастера. Skip - callback кнопки "Пропустить", пустой если шаг обязательный
type Prompt struct {
	Text string
	Skip string
}

// PromptFor подсказка для шага, на который только что перешел черновик
func PromptFor(d model.Draft) Prompt {
	header := "📢 <b>Создание рассылки</b>\n\n"
	buttonHelp := "🔗 Отправьте <b>текст и ссылку для кнопки</b> в формате:\n\nТекст кнопки | https://example.com"

	switch d.Step {
	case model.StepName:
		return Prompt{Text: header + "<b>Шаг 1 из 5:</b> Название рассылки\n\n" +
			"📝 Введите <b>название</b> рассылки для аналитики (например: \"Акция Январь 2026\"):"}
	case model.StepTitle:
		return Prompt{Text: header + "<b>Шаг 2 из 5:</b> Заголовок\n\n" +
			fmt.Sprintf("✅ Название сохранено:\n\"%s\"\n\n", html.EscapeString(d.BroadcastName)) +
			"📝 Введите <b>заголовок</b> рассылки (обязательно):"}
	case model.StepSubtitle:
		return Prompt{
			Text: header + "<b>Шаг 3 из 5:</b> Подзаголовок\n\n" +
				fmt.Sprintf("✅ Заголовок сохранен:\n\"%s\"\n\n", html.EscapeString(d.Title)) +
				"📝 Введите <b>подзаголовок</b> (описание):",
			Skip: CallbackSkipSubtitle,
		}
	case model.StepMedia:
		return Prompt{
			Text: header + "<b>Шаг 4 из 5:</b> Медиа\n\n" +
				"🖼️📹🎙️ <b>Прикрепите медиа</b> (фото/видео/голосовое/видеозаметку) или отправьте ссылку на фото/видео (URL):",
			Skip: CallbackSkipMedia,
		}
	case model.StepButton:
		return Prompt{
			Text: header + "<b>Шаг 5 из 5:</b> Кнопка\n\n" + mediaSaved(d.MediaType, d.MediaFileID != "") + buttonHelp,
			Skip: CallbackSkipButton,
		}
	}
	return Prompt{}
}

func mediaSaved(kind model.MediaKind, uploaded bool) string {
	if !uploaded {
		if kind == model.MediaNone {
			return ""
		}
		return "✅ Ссылка на медиа сохранена!\n\n"
	}
	switch kind {
	case model.MediaPhoto:
		return "✅ Картинка загружена!\n\n"
	case model.MediaVideo:
		return "✅ Видео загружено!\n\n"
	case model.MediaVoice:
		return "✅ Голосовое сообщение загружено!\n\n"
	case model.MediaVideoNote:
		return "✅ Видеозаметка загружена!\n\n"
	}
	return ""
}

// Preview предпросмотр рассылки для админа
type Preview struct {
	Text   string
	Media  model.MediaKind
	Source string
	// Separate - медиа отправляется отдельным сообщением после текста
	// (голосовое и видеозаметка не поддерживают подпись с кнопками)
	Separate bool
}

// RenderPreview собирает предпросмотр из черновика
func RenderPreview(d model.Draft) Preview {
	p := Preview{Media: d.MediaType, Source: d.MediaSource()}
	if p.Source == "" {
		p.Media = model.MediaNone
	}

	var b strings.Builder
	b.WriteString("📢 <b>Предпросмотр рассылки</b>\n\n")
	if !p.Media.CaptionSupported() {
		b.WriteString(separator + "\n\n")
	}
	if d.Title != "" {
		fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(d.Title))
	}
	if d.Subtitle != "" {
		fmt.Fprintf(&b, "\n%s\n", html.EscapeString(d.Subtitle))
	}
	if d.HasButton() {
		fmt.Fprintf(&b, "\n🔘 Кнопка: \"%s\"\n", html.EscapeString(d.ButtonText))
	}
	b.WriteString("\n" + separator + "\n\nВсе готово! Отправить рассылку?")

	p.Text = b.String()
	p.Separate = p.Media == model.MediaVoice || p.Media == model.MediaVideoNote
	return p
}

// Body текст рассылки для пользователей
func Body(title, subtitle string) string {
	var parts []string
	if title = strings.TrimSpace(title); title != "" {
		parts = append(parts, "<b>"+html.EscapeString(title)+"</b>")
	}
	if subtitle = strings.TrimSpace(subtitle); subtitle != "" {
		parts = append(parts, html.EscapeString(subtitle))
	}
	return strings.Join(parts, "\n\n")
}
