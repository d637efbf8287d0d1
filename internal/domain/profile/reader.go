package profile

import (
	"context"
	"time"
)

// Reader загружает профиль сначала из кэша, затем из хранилища.
// Ошибки кэша не прерывают чтение: хранилище остаётся источником истины.
type Reader struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
}

// NewReader создаёт Reader. cache может быть nil.
func NewReader(repo Repository, cache Cache, ttl time.Duration) *Reader {
	return &Reader{repo: repo, cache: cache, ttl: ttl}
}

// Load возвращает профиль, создавая пустой при первом обращении.
func (r *Reader) Load(ctx context.Context, userID string) (*Profile, error) {
	if r.cache != nil {
		if p, err := r.cache.Get(ctx, userID); err == nil && p != nil {
			return p, nil
		}
	}

	p, err := r.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, p, r.ttl)
	}
	return p, nil
}

// Invalidate удаляет профиль из кэша.
func (r *Reader) Invalidate(ctx context.Context, userID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, userID)
}
