package users

import (
	"errors"
	"net/http"
	"strings"

	"partnerapp/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ClassifyDeliveryError решает, недоступен ли пользователь навсегда.
// false - ошибка временная или неизвестная, пользователя трогать нельзя
func ClassifyDeliveryError(err error) (model.ArchiveReason, bool) {
	if err == nil {
		return model.ReasonUnknown, false
	}

	code, description := 0, err.Error()
	var apiErr *tgbotapi.Error
	var apiErrValue tgbotapi.Error
	switch {
	case errors.As(err, &apiErr):
		code, description = apiErr.Code, apiErr.Message
	case errors.As(err, &apiErrValue):
		code, description = apiErrValue.Code, apiErrValue.Message
	}
	description = strings.ToLower(description)

	switch {
	case strings.Contains(description, "user is deactivated"):
		return model.ReasonDeactivated, true
	case code == http.StatusBadRequest && strings.Contains(description, "chat not found"):
		return model.ReasonAccountDeleted, true
	case code == http.StatusForbidden:
		return model.ReasonBlocked, true
	}

	// Ошибка пришла без кода (например, обернута транспортом)
	if code == 0 {
		switch {
		case strings.Contains(description, "bot was blocked by the user"):
			return model.ReasonBlocked, true
		case strings.Contains(description, "chat not found"):
			return model.ReasonAccountDeleted, true
		}
	}
	return model.ReasonUnknown, false
}
