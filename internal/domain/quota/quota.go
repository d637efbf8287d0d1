// Package quota содержит правила бесплатных лимитов сообщений.
//
// Окончательная проверка выполняется при отправке: Repository.Consume
// атомарно увеличивает счётчик, только если он ещё не достиг лимита.
// Премиум-пользователи не расходуют лимит вообще.
package quota

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEATURES & LIMITS
// ══════════════════════════════════════════════════════════════════════════════

// Feature - функция с лимитом.
type Feature string

const (
	// FeatureCoachMessage - сообщения AI-коучу, лимит на UTC-день.
	FeatureCoachMessage Feature = "coach_message"
	// FeatureSolutionChatMessage - сообщения в чат решений, лимит на участника в диалоге.
	FeatureSolutionChatMessage Feature = "solution_chat_message"
)

// Unlimited - значение "осталось" для премиума на проводе.
const Unlimited = -1

// Limits - настраиваемые лимиты.
type Limits struct {
	CoachDaily   int
	SolutionChat int
}

// DefaultLimits возвращает лимиты по умолчанию.
func DefaultLimits() Limits {
	return Limits{CoachDaily: 2, SolutionChat: 3}
}

// For возвращает лимит функции.
func (l Limits) For(f Feature) int {
	switch f {
	case FeatureCoachMessage:
		return l.CoachDaily
	case FeatureSolutionChatMessage:
		return l.SolutionChat
	default:
		return 0
	}
}

// DailyScope возвращает ключ UTC-дня для дневных лимитов.
func DailyScope(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status - текущее использование лимита.
type Status struct {
	Feature Feature
	Limit   int
	Used    int
	Premium bool
}

// Unlimited возвращает true для премиума.
func (s Status) Unlimited() bool {
	return s.Premium
}

// Remaining возвращает оставшееся количество, не меньше нуля.
func (s Status) Remaining() int {
	if r := s.Limit - s.Used; r > 0 {
		return r
	}
	return 0
}

// WireRemaining возвращает значение для заголовка X-Quota-Remaining.
func (s Status) WireRemaining() int {
	if s.Unlimited() {
		return Unlimited
	}
	return s.Remaining()
}

// Exhausted возвращает true, если бесплатные сообщения закончились.
func (s Status) Exhausted() bool {
	return !s.Unlimited() && s.Remaining() == 0
}

// ══════════════════════════════════════════════════════════════════════════════
// LOCK MODES
// ══════════════════════════════════════════════════════════════════════════════

// ConversationPhase - где находится пользователь в диалоге.
type ConversationPhase string

const (
	// PhaseOpening - диалог только открыт, ответа в ожидании нет.
	PhaseOpening ConversationPhase = "opening"
	// PhaseMidConversation - диалог уже идёт.
	PhaseMidConversation ConversationPhase = "mid_conversation"
	// PhaseStreaming - ответ ещё стримится.
	PhaseStreaming ConversationPhase = "streaming"
)

// LockMode - вид блокировки ввода.
type LockMode string

const (
	// LockNone - ввод доступен.
	LockNone LockMode = "none"
	// LockSoft - баннер оплаты, история доступна для чтения.
	LockSoft LockMode = "soft"
	// LockHard - ввод заблокирован.
	LockHard LockMode = "hard"
)

// LockFor возвращает вид блокировки.
// Блокировка не применяется, пока ответ ещё стримится.
func LockFor(s Status, phase ConversationPhase) LockMode {
	if !s.Exhausted() || phase == PhaseStreaming {
		return LockNone
	}
	if phase == PhaseMidConversation {
		return LockSoft
	}
	return LockHard
}

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет контракт хранилища счётчиков.
type Repository interface {
	// Consume атомарно увеличивает счётчик, если used < limit.
	// Возвращает новое значение used или shared.ErrLimitReached.
	Consume(ctx context.Context, userID string, f Feature, scope string, limit int) (int, error)

	// Release возвращает одну единицу, взятую Consume, если действие не состоялось.
	// Счётчик не опускается ниже нуля.
	Release(ctx context.Context, userID string, f Feature, scope string) error

	// Used возвращает текущее значение счётчика, 0 если записи нет.
	Used(ctx context.Context, userID string, f Feature, scope string) (int, error)

	// PurgeBefore удаляет счётчики функции, не обновлявшиеся с before.
	PurgeBefore(ctx context.Context, f Feature, before time.Time) (int64, error)
}
