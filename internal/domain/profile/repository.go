package profile

import (
	"context"
	"time"
)

// Repository определяет контракт хранилища профилей.
// Реализация находится в infrastructure/persistence/postgres.
type Repository interface {
	// Get возвращает профиль по ID пользователя.
	// Возвращает shared.ErrProfileNotFound, если профиля нет.
	Get(ctx context.Context, userID string) (*Profile, error)

	// Create сохраняет новый пустой профиль.
	// Возвращает shared.ErrAlreadyExists, если профиль уже есть.
	Create(ctx context.Context, p *Profile) error

	// GetOrCreate возвращает профиль, создавая пустой при первом обращении.
	GetOrCreate(ctx context.Context, userID string) (*Profile, error)

	// UpdateOnboarding сохраняет ответы онбординга.
	UpdateOnboarding(ctx context.Context, p *Profile) error

	// UpdateProgress записывает пересчитанный процент интеграции.
	// Возвращает shared.ErrProfileNotFound, если профиля нет.
	UpdateProgress(ctx context.Context, userID string, percent int) error

	// SetPremium меняет флаг премиума.
	// Возвращает shared.ErrProfileNotFound, если профиля нет.
	SetPremium(ctx context.Context, userID string, premium bool) error
}

// Cache - кэш профилей для частых проверок гейтов.
// Промах кэша не является ошибкой: Get возвращает (nil, nil).
type Cache interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Set(ctx context.Context, p *Profile, ttl time.Duration) error
	Delete(ctx context.Context, userID string) error
}
