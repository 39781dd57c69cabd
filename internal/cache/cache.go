package cache

import "time"

// Cache - хранилище результатов поиска между запросами
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
}
