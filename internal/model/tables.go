package model

// Kind логическая таблица. Имя листа задается в конфиге
type Kind string

const (
	KindUsers      Kind = "users"
	KindAdmins     Kind = "admins"
	KindPartners   Kind = "partners"
	KindClicks     Kind = "clicks"
	KindBroadcasts Kind = "broadcasts"
	KindArchive    Kind = "archive"
)

// Колонки таблиц в порядке записи
var (
	UserColumns      = []string{"telegram_id", "username", "first_name", "date_registered", "bot_started", "last_active"}
	AdminColumns     = []string{"username", "telegram_id"}
	PartnerColumns   = []string{"title", "logo_url", "url", "category", "promocode"}
	ClickColumns     = []string{"telegram_id", "username", "first_name", "partner_title", "category", "url", "click_count", "first_click_date", "last_click_date", "last_click_time", "timestamp"}
	BroadcastColumns = []string{"broadcast_id", "name", "date", "time", "sent_count", "read_count", "click_count", "conversion_rate", "title", "subtitle", "button_text", "button_url", "total_users", "fail_count", "archived_count"}
	ArchiveColumns   = []string{"username", "telegram_id", "date_on", "date_off", "reason"}
)

// Columns возвращает схему таблицы
func Columns(kind Kind) []string {
	switch kind {
	case KindUsers:
		return UserColumns
	case KindAdmins:
		return AdminColumns
	case KindPartners:
		return PartnerColumns
	case KindClicks:
		return ClickColumns
	case KindBroadcasts:
		return BroadcastColumns
	case KindArchive:
		return ArchiveColumns
	}
	return nil
}
