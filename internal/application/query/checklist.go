package query

import (
	"context"
	"fmt"

	"github.com/integration-hub/student-hub/internal/domain/gate"
	"github.com/integration-hub/student-hub/internal/domain/integration"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CHECKLIST QUERY
// Каталог фаз и документов с наложенным состоянием пользователя.
// Фаза "до приезда" выводится в своём режиме: скрыта, превью или обычная.
// ══════════════════════════════════════════════════════════════════════════════

// GetChecklistQuery содержит параметры запроса.
type GetChecklistQuery struct {
	UserID string
}

// ItemDTO - задача чеклиста.
type ItemDTO struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Tip           string `json:"tip,omitempty"`
	Link          string `json:"link,omitempty"`
	Done          bool   `json:"done"`
	Locked        bool   `json:"locked"`
	CoachShortcut bool   `json:"coach_shortcut"`
}

// PhaseDTO - фаза чеклиста.
type PhaseDTO struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Mode  string    `json:"mode"`
	Items []ItemDTO `json:"items"`
}

// DocumentDTO - документ из списка обязательных.
type DocumentDTO struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Owned bool   `json:"owned"`
}

// ChecklistDTO - ответ запроса.
type ChecklistDTO struct {
	Phases    []PhaseDTO    `json:"phases"`
	Documents []DocumentDTO `json:"documents"`
	Progress  int           `json:"progress"`
}

// GetChecklistHandler обрабатывает запрос чеклиста.
type GetChecklistHandler struct {
	profiles ProfileLoader
	ledger   integration.Repository
}

// NewGetChecklistHandler создаёт новый обработчик.
func NewGetChecklistHandler(profiles ProfileLoader, ledger integration.Repository) *GetChecklistHandler {
	return &GetChecklistHandler{profiles: profiles, ledger: ledger}
}

// Handle выполняет запрос.
func (h *GetChecklistHandler) Handle(ctx context.Context, q GetChecklistQuery) (*ChecklistDTO, error) {
	p, err := h.profiles.Load(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	ledger, err := h.ledger.Load(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_checklist: load ledger: %w", err)
	}

	mode := gate.Evaluate(gate.SnapshotOf(p)).PreArrival
	var skip []integration.PhaseID
	if mode == gate.PhaseAbsent {
		skip = append(skip, integration.PhasePreArrival)
	}
	phases, docs := integration.Materialize(ledger, skip...)

	out := &ChecklistDTO{
		Phases:    make([]PhaseDTO, 0, len(phases)),
		Documents: make([]DocumentDTO, 0, len(docs)),
		Progress:  p.IntegrationProgress,
	}

	for _, ph := range phases {
		phaseMode := gate.PhaseInteractive
		if ph.ID == integration.PhasePreArrival {
			phaseMode = mode
		}
		preview := phaseMode == gate.PhasePreview

		dto := PhaseDTO{ID: string(ph.ID), Title: ph.Title, Mode: string(phaseMode), Items: make([]ItemDTO, 0, len(ph.Items))}
		for _, it := range ph.Items {
			item := ItemDTO{
				ID:            it.ID,
				Title:         it.Title,
				Done:          it.Done,
				Locked:        preview,
				CoachShortcut: it.HasCoachShortcut,
			}
			// В превью подсказки и ссылки не показываются.
			if !preview {
				item.Tip = it.Tip
				item.Link = it.Link
			}
			dto.Items = append(dto.Items, item)
		}
		out.Phases = append(out.Phases, dto)
	}

	for _, d := range docs {
		out.Documents = append(out.Documents, DocumentDTO{ID: d.ID, Title: d.Title, Owned: d.Owned})
	}
	return out, nil
}
