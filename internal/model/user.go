package model

import (
	"strings"
)

const BotStartedTrue = "TRUE"

// User строка листа пользователей
type User struct {
	TelegramID     string
	Username       string
	FirstName      string
	DateRegistered string
	BotStarted     string
	LastActive     string
}

func UserFromRow(row map[string]string) User {
	return User{
		TelegramID:     row["telegram_id"],
		Username:       row["username"],
		FirstName:      row["first_name"],
		DateRegistered: row["date_registered"],
		BotStarted:     row["bot_started"],
		LastActive:     row["last_active"],
	}
}

func (u User) Values() []string {
	return []string{u.TelegramID, u.Username, u.FirstName, u.DateRegistered, u.BotStarted, u.LastActive}
}

// ChatID id чата пользователя, false если id в таблице пустой или битый
func (u User) ChatID() (int64, bool) {
	return ParseTelegramID(u.TelegramID)
}

// Admin строка листа админов
type Admin struct {
	Username   string
	TelegramID string
}

func AdminFromRow(row map[string]string) Admin {
	return Admin{Username: row["username"], TelegramID: row["telegram_id"]}
}

// NormalizeUsername приводит username к виду для сравнения: без @ и в нижнем регистре
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// Partner строка листа партнеров
type Partner struct {
	Title     string `json:"title"`
	LogoURL   string `json:"logo_url"`
	URL       string `json:"url"`
	Category  string `json:"category"`
	Promocode string `json:"promocode"`
}

func PartnerFromRow(row map[string]string) Partner {
	return Partner{
		Title:     row["title"],
		LogoURL:   row["logo_url"],
		URL:       row["url"],
		Category:  row["category"],
		Promocode: strings.TrimSpace(row["promocode"]),
	}
}

func (p Partner) Values() []string {
	return []string{p.Title, p.LogoURL, p.URL, p.Category, p.Promocode}
}
