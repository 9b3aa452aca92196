package cache

import (
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const cleanupInterval = 10 * time.Minute

// KV хранилище значений с временем жизни. Каждый Put продлевает срок
type KV struct {
	cache *gocache.Cache
}

func NewKV() *KV {
	return &KV{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (kv *KV) Get(key string) ([]byte, bool) {
	value, ok := kv.cache.Get(key)
	if !ok {
		return nil, false
	}
	data, ok := value.([]byte)
	return data, ok
}

func (kv *KV) Put(key string, value []byte, ttl time.Duration) {
	kv.cache.Set(key, value, ttl)
}

func (kv *KV) Delete(key string) {
	kv.cache.Delete(key)
}

// List ключи с префиксом, без истекших, по возрастанию
func (kv *KV) List(prefix string) []string {
	keys := make([]string, 0)
	for key := range kv.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
