package integration

import "context"

// ProgressFunc пересчитывает процент по актуальному леджеру.
type ProgressFunc func(l *Ledger) int

// Repository определяет контракт хранилища оверлеев.
type Repository interface {
	// Load возвращает леджер пользователя. Пустой леджер не является ошибкой.
	Load(ctx context.Context, userID string) (*Ledger, error)

	// Apply выполняет upsert переключения и в той же транзакции
	// записывает пересчитанный процент в профиль.
	// Возвращает shared.ErrProfileNotFound, если профиля нет.
	Apply(ctx context.Context, userID string, t Toggle, progress ProgressFunc) (ProgressChange, error)
}
