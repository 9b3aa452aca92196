package model

import (
	"fmt"
	"strconv"
)

const DefaultBroadcastName = "Без названия"

// Broadcast строка листа рассылок. Пишется один раз после отправки,
// click_count и conversion_rate меняются при переходах по ссылке
type Broadcast struct {
	ID             string
	Name           string
	Date           string
	Time           string
	SentCount      int
	ReadCount      int
	ClickCount     int
	ConversionRate string
	Title          string
	Subtitle       string
	ButtonText     string
	ButtonURL      string
	TotalUsers     int
	FailCount      int
	ArchivedCount  int
}

func BroadcastFromRow(row map[string]string) Broadcast {
	return Broadcast{
		ID:             row["broadcast_id"],
		Name:           row["name"],
		Date:           row["date"],
		Time:           row["time"],
		SentCount:      atoi(row["sent_count"]),
		ReadCount:      atoi(row["read_count"]),
		ClickCount:     atoi(row["click_count"]),
		ConversionRate: row["conversion_rate"],
		Title:          row["title"],
		Subtitle:       row["subtitle"],
		ButtonText:     row["button_text"],
		ButtonURL:      row["button_url"],
		TotalUsers:     atoi(row["total_users"]),
		FailCount:      atoi(row["fail_count"]),
		ArchivedCount:  atoi(row["archived_count"]),
	}
}

func (b Broadcast) Values() []string {
	return []string{
		b.ID, b.Name, b.Date, b.Time,
		strconv.Itoa(b.SentCount), strconv.Itoa(b.ReadCount), strconv.Itoa(b.ClickCount), b.ConversionRate,
		b.Title, b.Subtitle, b.ButtonText, b.ButtonURL,
		strconv.Itoa(b.TotalUsers), strconv.Itoa(b.FailCount), strconv.Itoa(b.ArchivedCount),
	}
}

// ConversionRate процент кликов от отправленных, "0.00%" если ничего не отправлено
func ConversionRate(clicks, sent int) string {
	if sent <= 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(clicks)/float64(sent)*100)
}
