package model

import "strconv"

// Click строка листа кликов. Одна строка на пару (telegram_id, url)
type Click struct {
	TelegramID     string
	Username       string
	FirstName      string
	PartnerTitle   string
	Category       string
	URL            string
	ClickCount     int
	FirstClickDate string
	LastClickDate  string
	LastClickTime  string
	Timestamp      string
}

func ClickFromRow(row map[string]string) Click {
	return Click{
		TelegramID:     row["telegram_id"],
		Username:       row["username"],
		FirstName:      row["first_name"],
		PartnerTitle:   row["partner_title"],
		Category:       row["category"],
		URL:            row["url"],
		ClickCount:     atoi(row["click_count"]),
		FirstClickDate: row["first_click_date"],
		LastClickDate:  row["last_click_date"],
		LastClickTime:  row["last_click_time"],
		Timestamp:      row["timestamp"],
	}
}

func (c Click) Values() []string {
	return []string{
		c.TelegramID, c.Username, c.FirstName, c.PartnerTitle, c.Category, c.URL,
		strconv.Itoa(c.ClickCount), c.FirstClickDate, c.LastClickDate, c.LastClickTime, c.Timestamp,
	}
}
