package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"partnerapp/internal/broadcast"
	"partnerapp/internal/model"
	"partnerapp/internal/storage"
)

var ErrBadDestination = errors.New("некорректная ссылка для перехода")

// Destination декодирует ссылку из пути редиректа. Разрешены только http и https
func Destination(escaped string) (string, error) {
	raw, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadDestination, err)
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadDestination, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrBadDestination
	}
	return u.String(), nil
}

// Tracker считает переходы по ссылкам из рассылок
type Tracker struct {
	broadcasts storage.Table
	mu         sync.Mutex
}

func NewTracker(broadcasts storage.Table) *Tracker {
	return &Tracker{broadcasts: broadcasts}
}

// Redirect увеличивает click_count рассылки и пересчитывает конверсию.
// Для неизвестного id возвращает broadcast.ErrBroadcastNotFound, таблица не меняется
func (t *Tracker) Redirect(ctx context.Context, broadcastID string) (model.Broadcast, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	records, err := t.broadcasts.Read(ctx)
	if err != nil {
		return model.Broadcast{}, fmt.Errorf("не удалось прочитать рассылки: %w", err)
	}

	for _, r := range records {
		if r.Get("broadcast_id") != broadcastID {
			continue
		}
		b := model.BroadcastFromRow(r.Fields)
		b.ClickCount++
		b.ConversionRate = model.ConversionRate(b.ClickCount, b.SentCount)
		if err := t.broadcasts.Update(ctx, r.Index, b.Values()); err != nil {
			return b, fmt.Errorf("не удалось обновить рассылку %s: %w", broadcastID, err)
		}
		return b, nil
	}
	return model.Broadcast{}, broadcast.ErrBroadcastNotFound
}
