package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"partnerapp/internal/model"
)

const promoPrefix = "promo_msg_"

// PromoTicketStore заявки на удаление сообщений с промокодами
type PromoTicketStore struct {
	kv  *KV
	ttl time.Duration
}

// NewPromoTicketStore retention - через сколько удалять сообщение.
// Запись живет вдвое дольше, чтобы фоновая проверка успела ее увидеть
func NewPromoTicketStore(kv *KV, retention time.Duration) *PromoTicketStore {
	return &PromoTicketStore{kv: kv, ttl: 2 * retention}
}

func promoKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%s%d_%d", promoPrefix, chatID, messageID)
}

func (s *PromoTicketStore) Put(t model.PromoTicket) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	s.kv.Put(promoKey(t.ChatID, t.MessageID), data, s.ttl)
	return nil
}

func (s *PromoTicketStore) List() []model.PromoTicket {
	keys := s.kv.List(promoPrefix)
	tickets := make([]model.PromoTicket, 0, len(keys))
	for _, key := range keys {
		data, ok := s.kv.Get(key)
		if !ok {
			continue
		}
		var t model.PromoTicket
		if err := json.Unmarshal(data, &t); err != nil {
			s.kv.Delete(key)
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets
}

func (s *PromoTicketStore) Delete(t model.PromoTicket) {
	s.kv.Delete(promoKey(t.ChatID, t.MessageID))
}
