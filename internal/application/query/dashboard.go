// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/integration-hub/student-hub/internal/domain/gate"
	"github.com/integration-hub/student-hub/internal/domain/profile"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ME QUERY
// Публичный профиль вместе с гейтами и прогрессом. Это основной запрос
// дашборда: по нему клиент решает, какие плитки и разделы показывать.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileLoader загружает профиль, создавая пустой при первом обращении.
type ProfileLoader interface {
	Load(ctx context.Context, userID string) (*profile.Profile, error)
}

// GetMeQuery содержит параметры запроса.
type GetMeQuery struct {
	UserID string
}

// Validate проверяет корректность параметров запроса.
func (q GetMeQuery) Validate() error {
	if q.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// GateDTO - состояние одного гейта.
type GateDTO struct {
	Locked bool   `json:"locked"`
	Reason string `json:"reason,omitempty"`
}

// GatesDTO - все гейты профиля.
type GatesDTO struct {
	Tiles      GateDTO `json:"tiles"`
	PreArrival string  `json:"pre_arrival"`
	Coach      GateDTO `json:"coach"`
	Social     GateDTO `json:"social"`
	Messaging  GateDTO `json:"messaging"`
	Dating     GateDTO `json:"dating"`
	Likers     GateDTO `json:"likers"`
	Gold       GateDTO `json:"gold"`
}

// MeDTO - ответ дашборда.
type MeDTO struct {
	Profile  profile.PublicProfile `json:"profile"`
	Gates    GatesDTO              `json:"gates"`
	Progress int                   `json:"progress"`
}

func gateDTO(g gate.Gate) GateDTO {
	return GateDTO{Locked: g.Locked, Reason: string(g.Reason())}
}

// NewGatesDTO переводит результат оценки в DTO.
func NewGatesDTO(g gate.Gates) GatesDTO {
	return GatesDTO{
		Tiles:      gateDTO(g.Tiles),
		PreArrival: string(g.PreArrival),
		Coach:      gateDTO(g.Coach),
		Social:     gateDTO(g.Social),
		Messaging:  gateDTO(g.Messaging),
		Dating:     gateDTO(g.Dating),
		Likers:     gateDTO(g.Likers),
		Gold:       gateDTO(g.Gold),
	}
}

// GetMeHandler обрабатывает запрос дашборда.
type GetMeHandler struct {
	profiles ProfileLoader
}

// NewGetMeHandler создаёт новый обработчик.
func NewGetMeHandler(profiles ProfileLoader) *GetMeHandler {
	return &GetMeHandler{profiles: profiles}
}

// Handle выполняет запрос.
func (h *GetMeHandler) Handle(ctx context.Context, q GetMeQuery) (*MeDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_me: %w", err)
	}

	p, err := h.profiles.Load(ctx, q.UserID)
	if err != nil {
		return nil, err
	}

	return &MeDTO{
		Profile:  p.PublicView(),
		Gates:    NewGatesDTO(gate.Evaluate(gate.SnapshotOf(p))),
		Progress: p.IntegrationProgress,
	}, nil
}

// Gates возвращает только гейты профиля.
func (h *GetMeHandler) Gates(ctx context.Context, q GetMeQuery) (*GatesDTO, error) {
	me, err := h.Handle(ctx, q)
	if err != nil {
		return nil, err
	}
	return &me.Gates, nil
}
