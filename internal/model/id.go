package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// TelegramID id пользователя Telegram. В json приходит и числом, и строкой
type TelegramID int64

func (id *TelegramID) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	switch res.Type {
	case gjson.Null:
		*id = 0
		return nil
	case gjson.Number:
		*id = TelegramID(res.Int())
		return nil
	case gjson.String:
		s := strings.TrimSpace(res.Str)
		if s == "" {
			*id = 0
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("некорректный telegram id %q", s)
		}
		*id = TelegramID(v)
		return nil
	}
	return fmt.Errorf("некорректный telegram id: %s", string(data))
}

func (id TelegramID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseTelegramID разбирает id из ячейки таблицы. Пустая или битая ячейка - 0, false
func ParseTelegramID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}

// atoi читает счетчик из ячейки, мусор считается нулем
func atoi(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
