package model

// Step шаг мастера рассылки
type Step string

const (
	StepName     Step = "broadcast_name"
	StepTitle    Step = "title"
	StepSubtitle Step = "subtitle"
	StepMedia    Step = "media"
	StepButton   Step = "button"
	StepConfirm  Step = "confirm"
	StepSending  Step = "sending" // рассылка запущена, ввод больше не принимается
)

// MediaKind тип вложения рассылки
type MediaKind string

const (
	MediaNone      MediaKind = ""
	MediaPhoto     MediaKind = "photo"
	MediaVideo     MediaKind = "video"
	MediaVoice     MediaKind = "voice"
	MediaVideoNote MediaKind = "video_note"
)

// CaptionSupported можно ли отправить текст и кнопку подписью к медиа
func (m MediaKind) CaptionSupported() bool {
	return m == MediaPhoto || m == MediaVideo
}

// Draft черновик рассылки. Живет в кэше под ключом чата
type Draft struct {
	Step          Step      `json:"step"`
	ChatID        int64     `json:"chat_id"`
	BroadcastName string    `json:"broadcast_name,omitempty"`
	BroadcastID   string    `json:"broadcast_id"`
	Title         string    `json:"title,omitempty"`
	Subtitle      string    `json:"subtitle,omitempty"`
	MediaType     MediaKind `json:"media_type,omitempty"`
	MediaURL      string    `json:"media_url,omitempty"`
	MediaFileID   string    `json:"media_file_id,omitempty"`
	ButtonText    string    `json:"button_text,omitempty"`
	ButtonURL     string    `json:"button_url,omitempty"`
	StartedAt     string    `json:"started_at"`
	Version       int64     `json:"version"`
}

// HasButton кнопка задана полностью
func (d Draft) HasButton() bool {
	return d.ButtonText != "" && d.ButtonURL != ""
}

// MediaSource file_id, если медиа загружено в Telegram, иначе URL
func (d Draft) MediaSource() string {
	if d.MediaFileID != "" {
		return d.MediaFileID
	}
	return d.MediaURL
}

// PromoTicket заявка на удаление сообщения с промокодом
type PromoTicket struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id"`
	DeleteAt  int64  `json:"delete_at"` // unix millis
	Promocode string `json:"promocode"`
	Partner   string `json:"partner"`
}
