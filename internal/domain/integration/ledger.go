package integration

import (
	"time"

	"github.com/integration-hub/student-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SPARSE OVERLAY
// ══════════════════════════════════════════════════════════════════════════════

// Key - составной ключ записи оверлея.
// Для документов Phase пустая.
type Key struct {
	Phase PhaseID
	ID    string
}

// ItemKey создаёт ключ задачи чек-листа.
func ItemKey(phase PhaseID, itemID string) Key {
	return Key{Phase: phase, ID: itemID}
}

// DocumentKey создаёт ключ документа.
func DocumentKey(documentID string) Key {
	return Key{ID: documentID}
}

// Overlay - разреженный набор флагов. Отсутствующий ключ означает false.
type Overlay map[Key]bool

// Get возвращает флаг по ключу, false если записи нет.
func (o Overlay) Get(k Key) bool {
	if o == nil {
		return false
	}
	return o[k]
}

// Set записывает флаг.
func (o Overlay) Set(k Key, v bool) {
	o[k] = v
}

// Ledger - состояние задач и документов одного пользователя.
type Ledger struct {
	UserID    string
	Checklist Overlay
	Documents Overlay
}

// NewLedger создаёт пустой леджер.
func NewLedger(userID string) *Ledger {
	return &Ledger{
		UserID:    userID,
		Checklist: make(Overlay),
		Documents: make(Overlay),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLES
// ══════════════════════════════════════════════════════════════════════════════

// ToggleKind - что именно переключается.
type ToggleKind string

const (
	ToggleChecklistItem ToggleKind = "checklist_item"
	ToggleDocument      ToggleKind = "document"
)

// Toggle - одно переключение флага. Идемпотентно по ключу.
type Toggle struct {
	Kind  ToggleKind
	Key   Key
	Value bool
	At    time.Time
}

// NewItemToggle проверяет задачу по каталогу и создаёт переключение.
func NewItemToggle(phase PhaseID, itemID string, done bool) (Toggle, error) {
	if _, ok := FindItem(phase, itemID); !ok {
		return Toggle{}, shared.ErrUnknownItem
	}
	return Toggle{Kind: ToggleChecklistItem, Key: ItemKey(phase, itemID), Value: done, At: time.Now().UTC()}, nil
}

// NewDocumentToggle проверяет документ по каталогу и создаёт переключение.
func NewDocumentToggle(documentID string, owned bool) (Toggle, error) {
	if _, ok := FindDocument(documentID); !ok {
		return Toggle{}, shared.ErrUnknownItem
	}
	return Toggle{Kind: ToggleDocument, Key: DocumentKey(documentID), Value: owned, At: time.Now().UTC()}, nil
}

// Apply применяет переключение к леджеру в памяти.
func (l *Ledger) Apply(t Toggle) {
	switch t.Kind {
	case ToggleChecklistItem:
		if l.Checklist == nil {
			l.Checklist = make(Overlay)
		}
		l.Checklist.Set(t.Key, t.Value)
	case ToggleDocument:
		if l.Documents == nil {
			l.Documents = make(Overlay)
		}
		l.Documents.Set(t.Key, t.Value)
	}
}
