package preference

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultLocale = "en"

var supported = map[string]struct{}{
	"en": {},
	"ru": {},
}

// Normalize maps a language tag to a supported locale, falling back to English.
func Normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	if _, ok := supported[tag]; ok {
		return tag
	}
	return DefaultLocale
}

// Store keeps the UI language per user. Losing it is harmless; payment records
// carry their own locale.
type Store interface {
	Get(ctx context.Context, userID int64) string
	Set(ctx context.Context, userID int64, locale string) error
}

type MemoryStore struct {
	mu    sync.RWMutex
	langs map[int64]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{langs: map[int64]string{}}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if lang, ok := s.langs[userID]; ok {
		return lang
	}
	return DefaultLocale
}

func (s *MemoryStore) Set(_ context.Context, userID int64, locale string) error {
	s.mu.Lock()
	s.langs[userID] = Normalize(locale)
	s.mu.Unlock()
	return nil
}

type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "lang:", ttl: ttl}
}

func (s *RedisStore) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

// Get falls back to the default locale on any redis error.
func (s *RedisStore) Get(ctx context.Context, userID int64) string {
	lang, err := s.client.Get(ctx, s.key(userID)).Result()
	if err != nil {
		return DefaultLocale
	}
	return Normalize(lang)
}

func (s *RedisStore) Set(ctx context.Context, userID int64, locale string) error {
	return s.client.Set(ctx, s.key(userID), Normalize(locale), s.ttl).Err()
}
