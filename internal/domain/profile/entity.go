package profile

import (
	"strings"
	"time"
	"unicode"

	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// MaxObjectives - максимальное количество целей в профиле.
const MaxObjectives = 3

// Nationality - национальность в том виде, в котором её выбрал пользователь
// (обычно с эмодзи флага: "🇲🇦 Marocaine").
type Nationality string

// frenchLabels - все варианты, которые считаются французской национальностью.
var frenchLabels = map[string]struct{}{
	"française": {},
	"français":  {},
	"francaise": {},
	"francais":  {},
	"french":    {},
	"france":    {},
}

// IsFrench возвращает true для французской национальности.
// Эмодзи флага и регистр не учитываются.
func (n Nationality) IsFrench() bool {
	label := strings.TrimFunc(string(n), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	_, ok := frenchLabels[strings.ToLower(label)]
	return ok
}

// String возвращает строковое представление национальности.
func (n Nationality) String() string {
	return string(n)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status - статус верификации студента.
type Status string

const (
	// StatusExplorateur - статус по умолчанию, почта не подтверждена.
	StatusExplorateur Status = "explorateur"
	// StatusTemoin - подтверждённый студент, открывает соцсеть, чаты и знакомства.
	StatusTemoin Status = "temoin"
)

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	return s == StatusExplorateur || s == StatusTemoin
}

// IsVerified возвращает true для подтверждённого статуса.
func (s Status) IsVerified() bool {
	return s == StatusTemoin
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Profile - профиль студента, одна запись на пользователя.
type Profile struct {
	// UserID - идентификатор пользователя у провайдера аутентификации (UUID).
	UserID string

	// Nationality - национальность, пустая до онбординга.
	Nationality Nationality

	// CurrentCity - город, где студент живёт сейчас.
	CurrentCity string

	// TargetCity - город учёбы во Франции.
	TargetCity string

	// University - название университета.
	University string

	// Objectives - выбранные цели (не больше MaxObjectives).
	Objectives []string

	// InFrance - нет значения (nil), пока студент не ответил.
	InFrance *bool

	// Status - статус верификации.
	Status Status

	// IsVerified дублирует Status == temoin, хранится отдельно для клиентов.
	IsVerified bool

	// UniversityEmail - подтверждённая академическая почта.
	UniversityEmail string

	// IsPremium - платный тариф Gold.
	IsPremium bool

	// IntegrationProgress - кэш процента интеграции (0-100).
	IntegrationProgress int

	// AdminNotes - внутренние заметки, никогда не отдаются клиенту.
	AdminNotes string

	// MonthlyBudgetEUR - финансовые данные, никогда не отдаются клиенту.
	MonthlyBudgetEUR *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New создаёт пустой профиль при регистрации.
func New(userID string) (*Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, shared.ErrInvalidUserID
	}
	now := time.Now().UTC()
	return &Profile{
		UserID:    userID,
		Status:    StatusExplorateur,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// OnboardingAnswers - ответы, собранные на экранах онбординга.
type OnboardingAnswers struct {
	Nationality Nationality
	CurrentCity string
	TargetCity  string
	University  string
	Objectives  []string
	InFrance    *bool
}

// CompleteOnboarding применяет ответы онбординга и поддерживает инварианты.
func (p *Profile) CompleteOnboarding(a OnboardingAnswers) error {
	objectives, err := normalizeObjectives(a.Objectives)
	if err != nil {
		return err
	}

	p.Nationality = Nationality(strings.TrimSpace(string(a.Nationality)))
	p.CurrentCity = strings.TrimSpace(a.CurrentCity)
	p.TargetCity = strings.TrimSpace(a.TargetCity)
	p.University = strings.TrimSpace(a.University)
	p.Objectives = objectives
	p.InFrance = copyBool(a.InFrance)
	p.enforceInvariants()
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// SetProgress записывает пересчитанный процент интеграции.
// Возвращает предыдущее значение.
func (p *Profile) SetProgress(percent int) int {
	prev := p.IntegrationProgress
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	p.IntegrationProgress = percent
	p.UpdatedAt = time.Now().UTC()
	return prev
}

// MarkVerified переводит профиль в статус temoin.
func (p *Profile) MarkVerified(email string) {
	p.Status = StatusTemoin
	p.IsVerified = true
	p.UniversityEmail = strings.ToLower(strings.TrimSpace(email))
	p.UpdatedAt = time.Now().UTC()
}

// SetPremium включает или выключает тариф Gold.
func (p *Profile) SetPremium(premium bool) {
	p.IsPremium = premium
	p.UpdatedAt = time.Now().UTC()
}

// IsInFrance возвращает true, только если пользователь явно ответил "да".
func (p *Profile) IsInFrance() bool {
	return p.InFrance != nil && *p.InFrance
}

// enforceInvariants - французская национальность означает "уже во Франции".
func (p *Profile) enforceInvariants() {
	if p.Nationality.IsFrench() {
		t := true
		p.InFrance = &t
	}
	if !p.Status.IsValid() {
		p.Status = StatusExplorateur
	}
}

func normalizeObjectives(in []string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, o := range in {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	if len(out) > MaxObjectives {
		return nil, shared.ErrTooManyObjectives
	}
	return out, nil
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// ══════════════════════════════════════════════════════════════════════════════
// PUBLIC PROJECTION
// ══════════════════════════════════════════════════════════════════════════════

// PublicProfile - проекция профиля без чувствительных полей.
type PublicProfile struct {
	UserID              string   `json:"user_id"`
	Nationality         string   `json:"nationality"`
	CurrentCity         string   `json:"current_city"`
	TargetCity          string   `json:"target_city"`
	University          string   `json:"university"`
	Objectives          []string `json:"objectives"`
	InFrance            *bool    `json:"is_in_france"`
	Status              Status   `json:"status"`
	IsVerified          bool     `json:"is_verified"`
	IsPremium           bool     `json:"is_premium"`
	IntegrationProgress int      `json:"integration_progress"`
}

// PublicView возвращает публичную проекцию.
func (p *Profile) PublicView() PublicProfile {
	objectives := p.Objectives
	if objectives == nil {
		objectives = []string{}
	}
	return PublicProfile{
		UserID:              p.UserID,
		Nationality:         p.Nationality.String(),
		CurrentCity:         p.CurrentCity,
		TargetCity:          p.TargetCity,
		University:          p.University,
		Objectives:          objectives,
		InFrance:            copyBool(p.InFrance),
		Status:              p.Status,
		IsVerified:          p.IsVerified,
		IsPremium:           p.IsPremium,
		IntegrationProgress: p.IntegrationProgress,
	}
}
