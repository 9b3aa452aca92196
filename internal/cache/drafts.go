package cache

import (
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"partnerapp/internal/model"
)

const draftPrefix = "broadcast_"

var (
	ErrDraftNotFound = errors.New("черновик рассылки не найден или истек")
	ErrStaleDraft    = errors.New("черновик рассылки изменен параллельно")
)

// DraftStore черновики рассылок, не больше одного на чат
type DraftStore struct {
	kv  *KV
	ttl time.Duration
	mu  sync.Mutex
}

func NewDraftStore(kv *KV, ttl time.Duration) *DraftStore {
	return &DraftStore{kv: kv, ttl: ttl}
}

func draftKey(chatID int64) string {
	return draftPrefix + strconv.FormatInt(chatID, 10)
}

func (s *DraftStore) Get(chatID int64) (model.Draft, bool) {
	data, ok := s.kv.Get(draftKey(chatID))
	if !ok {
		return model.Draft{}, false
	}
	var d model.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return model.Draft{}, false
	}
	return d, true
}

// Start сохраняет новый черновик, молча заменяя прежний
func (s *DraftStore) Start(chatID int64, d model.Draft) (model.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.Version = 1
	if prev, ok := s.Get(chatID); ok {
		d.Version = prev.Version + 1
	}
	return d, s.put(chatID, d)
}

// Save сохраняет изменения черновика. Версия d должна совпадать с сохраненной
func (s *DraftStore) Save(chatID int64, d model.Draft) (model.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.Get(chatID)
	if !ok {
		return d, ErrDraftNotFound
	}
	if current.Version != d.Version {
		return d, ErrStaleDraft
	}
	d.Version++
	return d, s.put(chatID, d)
}

func (s *DraftStore) Delete(chatID int64) {
	s.kv.Delete(draftKey(chatID))
}

func (s *DraftStore) put(chatID int64, d model.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	s.kv.Put(draftKey(chatID), data, s.ttl)
	return nil
}
