package model

// ArchiveReason причина, по которой пользователь недоступен навсегда.
// Набор открыт для расширения
type ArchiveReason int

const (
	ReasonUnknown ArchiveReason = iota
	ReasonBlocked
	ReasonAccountDeleted
	ReasonDeactivated
)

func (r ArchiveReason) String() string {
	switch r {
	case ReasonBlocked:
		return "Заблокировал бота"
	case ReasonAccountDeleted:
		return "Удалил аккаунт"
	case ReasonDeactivated:
		return "Деактивирован"
	default:
		return "Неизвестно"
	}
}

// Code короткое имя для колонки reason
func (r ArchiveReason) Code() string {
	switch r {
	case ReasonBlocked:
		return "blocked"
	case ReasonAccountDeleted:
		return "deleted"
	case ReasonDeactivated:
		return "deactivated"
	default:
		return "unknown"
	}
}

// ArchivedUser строка листа отписавшихся
type ArchivedUser struct {
	Username   string
	TelegramID string
	DateOn     string
	DateOff    string
	Reason     ArchiveReason
}

func ArchivedUserFromRow(row map[string]string) ArchivedUser {
	a := ArchivedUser{
		Username:   row["username"],
		TelegramID: row["telegram_id"],
		DateOn:     row["date_on"],
		DateOff:    row["date_off"],
	}
	for _, r := range []ArchiveReason{ReasonBlocked, ReasonAccountDeleted, ReasonDeactivated} {
		if row["reason"] == r.Code() {
			a.Reason = r
		}
	}
	return a
}

func (a ArchivedUser) Values() []string {
	return []string{a.Username, a.TelegramID, a.DateOn, a.DateOff, a.Reason.Code()}
}
