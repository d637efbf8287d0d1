// Package gate вычисляет, какие функции доступны профилю.
//
// Evaluate - чистая функция от снимка профиля. Каждый гейт независим и
// несёт свои причины блокировки. Reason() возвращает самую конкретную
// причину в порядке: верификация > местоположение > прогресс > премиум.
package gate

import (
	"github.com/integration-hub/student-hub/internal/domain/profile"
)

// CoachProgressThreshold - минимальный процент интеграции для AI-коуча.
const CoachProgressThreshold = 20

// ══════════════════════════════════════════════════════════════════════════════
// REASONS
// ══════════════════════════════════════════════════════════════════════════════

// Reason - причина блокировки.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonVerification Reason = "verification_required"
	ReasonLocation     Reason = "not_in_france"
	ReasonProgress     Reason = "progress_too_low"
	ReasonPremium      Reason = "premium_required"
)

// reasonOrder - от самой конкретной причины к самой общей.
var reasonOrder = []Reason{ReasonVerification, ReasonLocation, ReasonProgress, ReasonPremium}

// ══════════════════════════════════════════════════════════════════════════════
// GATE
// ══════════════════════════════════════════════════════════════════════════════

// Gate - состояние одной функции.
type Gate struct {
	Locked  bool
	Reasons []Reason
}

func lockedBy(reasons ...Reason) Gate {
	if len(reasons) == 0 {
		return Gate{}
	}
	return Gate{Locked: true, Reasons: reasons}
}

// Reason возвращает самую конкретную причину блокировки.
func (g Gate) Reason() Reason {
	if !g.Locked {
		return ReasonNone
	}
	for _, r := range reasonOrder {
		for _, have := range g.Reasons {
			if have == r {
				return r
			}
		}
	}
	return ReasonNone
}

// PhaseMode - режим отображения фазы "до приезда".
type PhaseMode string

const (
	// PhaseAbsent - фаза скрыта полностью (уже во Франции или француз).
	PhaseAbsent PhaseMode = "absent"
	// PhasePreview - фаза видна, но все задачи заблокированы, подсказки скрыты.
	PhasePreview PhaseMode = "preview"
	// PhaseInteractive - обычный режим.
	PhaseInteractive PhaseMode = "interactive"
)

// Feature - функция, закрытая гейтом.
type Feature string

const (
	FeatureTiles     Feature = "tiles"
	FeatureCoach     Feature = "coach"
	FeatureSocial    Feature = "social"
	FeatureMessaging Feature = "messaging"
	FeatureDating    Feature = "dating"
	FeatureLikers    Feature = "likers"
	FeatureGold      Feature = "gold"
)

// Gates - результат оценки всех гейтов.
type Gates struct {
	Tiles      Gate
	PreArrival PhaseMode
	Coach      Gate
	Social     Gate
	Messaging  Gate
	Dating     Gate
	Likers     Gate
	Gold       Gate
}

// For возвращает гейт функции.
func (g Gates) For(f Feature) Gate {
	switch f {
	case FeatureTiles:
		return g.Tiles
	case FeatureCoach:
		return g.Coach
	case FeatureSocial:
		return g.Social
	case FeatureMessaging:
		return g.Messaging
	case FeatureDating:
		return g.Dating
	case FeatureLikers:
		return g.Likers
	case FeatureGold:
		return g.Gold
	default:
		return lockedBy(ReasonVerification)
	}
}

// Features возвращает все функции в порядке отображения.
func Features() []Feature {
	return []Feature{FeatureTiles, FeatureCoach, FeatureSocial, FeatureMessaging, FeatureDating, FeatureLikers, FeatureGold}
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATION
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot - неизменяемый срез профиля, достаточный для оценки гейтов.
type Snapshot struct {
	Nationality profile.Nationality
	InFrance    *bool
	Status      profile.Status
	Progress    int
	Premium     bool
}

// SnapshotOf строит снимок из профиля.
func SnapshotOf(p *profile.Profile) Snapshot {
	s := Snapshot{
		Nationality: p.Nationality,
		Status:      p.Status,
		Progress:    p.IntegrationProgress,
		Premium:     p.IsPremium,
	}
	if p.InFrance != nil {
		v := *p.InFrance
		s.InFrance = &v
	}
	return s
}

func (s Snapshot) french() bool   { return s.Nationality.IsFrench() }
func (s Snapshot) verified() bool { return s.Status.IsVerified() }

// inFrance считает неизвестное значение как "не подтверждено".
func (s Snapshot) inFrance() bool { return s.InFrance != nil && *s.InFrance }

// Evaluate вычисляет все гейты.
func Evaluate(s Snapshot) Gates {
	return Gates{
		Tiles:      tiles(s),
		PreArrival: preArrival(s),
		Coach:      coach(s),
		Social:     verifiedOnly(s),
		Messaging:  verifiedOnly(s),
		Dating:     verifiedOnly(s),
		Likers:     premiumOnly(s),
		Gold:       premiumOnly(s),
	}
}

func tiles(s Snapshot) Gate {
	if s.french() {
		return Gate{}
	}
	var reasons []Reason
	if !s.verified() {
		reasons = append(reasons, ReasonVerification)
	}
	if !s.inFrance() {
		reasons = append(reasons, ReasonLocation)
	}
	return lockedBy(reasons...)
}

func preArrival(s Snapshot) PhaseMode {
	switch {
	case s.french() || s.inFrance():
		return PhaseAbsent
	case s.InFrance != nil:
		return PhasePreview
	default:
		return PhaseInteractive
	}
}

func coach(s Snapshot) Gate {
	if s.Progress < CoachProgressThreshold {
		return lockedBy(ReasonProgress)
	}
	return Gate{}
}

func verifiedOnly(s Snapshot) Gate {
	if !s.verified() {
		return lockedBy(ReasonVerification)
	}
	return Gate{}
}

func premiumOnly(s Snapshot) Gate {
	if !s.Premium {
		return lockedBy(ReasonPremium)
	}
	return Gate{}
}
