package broadcast

import (
	"fmt"
	"strings"
	"time"

	"partnerapp/internal/model"
)

// Callback данные кнопок мастера рассылки
const (
	CallbackSkipSubtitle = "broadcast_skip_subtitle"
	CallbackSkipMedia    = "broadcast_skip_media"
	CallbackSkipButton   = "broadcast_skip_button"
	CallbackConfirm      = "broadcast_confirm"
	CallbackCancel       = "broadcast_cancel"
)

// InputKind что прислал админ
type InputKind int

const (
	InputText InputKind = iota
	InputMedia
	InputCallback
)

// Input одно событие от админа в диалоге создания рассылки
type Input struct {
	Kind     InputKind
	Text     string
	Media    model.MediaKind
	FileID   string
	Callback string
}

func TextInput(text string) Input {
	return Input{Kind: InputText, Text: text}
}

func MediaInput(kind model.MediaKind, fileID string) Input {
	return Input{Kind: InputMedia, Media: kind, FileID: fileID}
}

func CallbackInput(data string) Input {
	return Input{Kind: InputCallback, Callback: data}
}

// Effect что нужно сделать после перехода
type Effect int

const (
	EffectIgnore  Effect = iota // ввод не подходит к шагу, черновик не изменен
	EffectPrompt                // показать подсказку следующего шага
	EffectPreview               // показать предпросмотр
	EffectExecute               // запустить рассылку
	EffectCancel                // удалить черновик
)

func (e Effect) String() string {
	switch e {
	case EffectPrompt:
		return "prompt"
	case EffectPreview:
		return "preview"
	case EffectExecute:
		return "execute"
	case EffectCancel:
		return "cancel"
	default:
		return "ignore"
	}
}

// NewDraft черновик на первом шаге
func NewDraft(chatID int64, now time.Time) model.Draft {
	return model.Draft{
		Step:        model.StepName,
		ChatID:      chatID,
		BroadcastID: fmt.Sprintf("BR_%d", now.UnixMilli()),
		StartedAt:   now.UTC().Format(time.RFC3339),
	}
}

// Advance переводит черновик на следующий шаг. Функция чистая: сохранение
// черновика и ответы админу делает вызывающий по Effect
func Advance(d model.Draft, in Input) (model.Draft, Effect) {
	if d.Step == model.StepSending {
		return d, EffectIgnore
	}
	if in.Kind == InputCallback && in.Callback == CallbackCancel {
		return d, EffectCancel
	}

	switch d.Step {
	case model.StepName:
		if in.Kind != InputText {
			return d, EffectIgnore
		}
		d.BroadcastName = strings.TrimSpace(in.Text)
		d.Step = model.StepTitle
		return d, EffectPrompt

	case model.StepTitle:
		title := strings.TrimSpace(in.Text)
		if in.Kind != InputText || title == "" {
			return d, EffectIgnore
		}
		d.Title = title
		d.Step = model.StepSubtitle
		return d, EffectPrompt

	case model.StepSubtitle:
		switch {
		case in.Kind == InputText:
			d.Subtitle = strings.TrimSpace(in.Text)
		case in.Kind == InputCallback && in.Callback == CallbackSkipSubtitle:
			d.Subtitle = ""
		default:
			return d, EffectIgnore
		}
		d.Step = model.StepMedia
		return d, EffectPrompt

	case model.StepMedia:
		switch {
		case in.Kind == InputMedia && in.Media != model.MediaNone && in.FileID != "":
			d.MediaType, d.MediaFileID, d.MediaURL = in.Media, in.FileID, ""
		case in.Kind == InputText && strings.TrimSpace(in.Text) != "":
			link := strings.TrimSpace(in.Text)
			d.MediaType, d.MediaFileID, d.MediaURL = ClassifyMediaURL(link), "", link
		case in.Kind == InputCallback && in.Callback == CallbackSkipMedia:
			d.MediaType, d.MediaFileID, d.MediaURL = model.MediaNone, "", ""
		default:
			return d, EffectIgnore
		}
		d.Step = model.StepButton
		return d, EffectPrompt

	case model.StepButton:
		switch {
		case in.Kind == InputText:
			// Неверный формат не ошибка: рассылка уйдет без кнопки
			d.ButtonText, d.ButtonURL, _ = ParseButton(in.Text)
		case in.Kind == InputCallback && in.Callback == CallbackSkipButton:
			d.ButtonText, d.ButtonURL = "", ""
		default:
			return d, EffectIgnore
		}
		d.Step = model.StepConfirm
		return d, EffectPreview

	case model.StepConfirm:
		if in.Kind == InputCallback && in.Callback == CallbackConfirm {
			d.Step = model.StepSending
			return d, EffectExecute
		}
	}
	return d, EffectIgnore
}

// ParseButton разбирает "Текст кнопки | https://example.com"
func ParseButton(text string) (label, link string, ok bool) {
	parts := strings.Split(text, "|")
	if len(parts) != 2 {
		return "", "", false
	}
	label, link = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if label == "" || link == "" {
		return "", "", false
	}
	return label, link, true
}

// ClassifyMediaURL видео, если ссылка похожа на видео, иначе фото
func ClassifyMediaURL(link string) model.MediaKind {
	lower := strings.ToLower(strings.TrimSpace(link))
	if strings.Contains(lower, "video") {
		return model.MediaVideo
	}
	for _, ext := range []string{".mp4", ".mov", ".webm"} {
		if strings.HasSuffix(lower, ext) {
			return model.MediaVideo
		}
	}
	return model.MediaPhoto
}
