package verification

import (
	"context"
	"time"
)

// Repository определяет контракт хранилища попыток верификации.
type Repository interface {
	// InsertWithinLimit атомарно сохраняет новую попытку, если у пользователя
	// меньше max попыток начиная с since. Иначе возвращает
	// shared.ErrTooManyAttempts и ничего не пишет.
	InsertWithinLimit(ctx context.Context, r *Record, since time.Time, max int) error

	// Update сохраняет токен, срок и итог попытки.
	Update(ctx context.Context, r *Record) error

	// EmailVerifiedByOther проверяет, подтверждён ли адрес другим пользователем.
	EmailVerifiedByOther(ctx context.Context, email, userID string) (bool, error)

	// FindByTokenHash ищет попытку по хешу токена.
	// Возвращает shared.ErrVerificationTokenInvalid, если записи нет.
	FindByTokenHash(ctx context.Context, hash string) (*Record, error)

	// Confirm в одной транзакции помечает запись подтверждённой
	// и переводит профиль в статус temoin.
	Confirm(ctx context.Context, r *Record, at time.Time) error

	// PurgeUnverified удаляет неподтверждённые записи, истёкшие до before.
	PurgeUnverified(ctx context.Context, before time.Time) (int64, error)
}

// Mailer отправляет письмо со ссылкой подтверждения.
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
}
