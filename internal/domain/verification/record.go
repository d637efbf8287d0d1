package verification

import (
	"time"

	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// MaxAttemptsPerWindow - сколько запросов на подтверждение разрешено за окно.
const MaxAttemptsPerWindow = 3

// AttemptWindow - скользящее окно лимита попыток.
const AttemptWindow = 24 * time.Hour

// Outcome - итог попытки верификации.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeSent      Outcome = "sent"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
	OutcomeVerified  Outcome = "verified"
)

// IsValid проверяет, что итог корректен.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomePending, OutcomeSent, OutcomeDuplicate, OutcomeFailed, OutcomeVerified:
		return true
	}
	return false
}

// Record - одна попытка верификации. Каждая попытка учитывается в лимите,
// каким бы ни был её итог.
type Record struct {
	ID         string
	UserID     string
	Email      string
	TokenHash  string
	Outcome    Outcome
	CreatedAt  time.Time
	ExpiresAt  time.Time
	VerifiedAt *time.Time
}

// NewAttempt создаёт запись попытки.
func NewAttempt(id, userID, email string, now time.Time) *Record {
	return &Record{
		ID:        id,
		UserID:    userID,
		Email:     NormalizeEmail(email),
		Outcome:   OutcomePending,
		CreatedAt: now,
	}
}

// Issue привязывает токен к попытке.
func (r *Record) Issue(t Token, now time.Time) {
	r.TokenHash = t.Hash
	r.ExpiresAt = now.Add(TokenTTL)
}

// IsVerified возвращает true, если ссылка уже была использована.
func (r *Record) IsVerified() bool {
	return r.Outcome == OutcomeVerified || r.VerifiedAt != nil
}

// IsExpired возвращает true после истечения срока ссылки.
func (r *Record) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// ConfirmDecision - что делать с переходом по ссылке.
type ConfirmDecision int

const (
	// ConfirmApply - подтвердить почту и обновить профиль.
	ConfirmApply ConfirmDecision = iota
	// ConfirmAlreadyDone - ссылка уже использована, ничего не менять.
	ConfirmAlreadyDone
)

// Decide проверяет запись при переходе по ссылке.
func (r *Record) Decide(now time.Time) (ConfirmDecision, error) {
	if r.IsVerified() {
		return ConfirmAlreadyDone, nil
	}
	switch r.Outcome {
	case OutcomeDuplicate, OutcomeFailed:
		return 0, shared.ErrVerificationTokenInvalid
	}
	if r.TokenHash == "" {
		return 0, shared.ErrVerificationTokenInvalid
	}
	if r.IsExpired(now) {
		return 0, shared.ErrVerificationTokenExpired
	}
	return ConfirmApply, nil
}
