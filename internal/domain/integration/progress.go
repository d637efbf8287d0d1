package integration

import "math"

// ItemState - задача каталога вместе с флагом пользователя.
type ItemState struct {
	Item
	Done bool
}

// PhaseState - фаза каталога с состояниями задач.
type PhaseState struct {
	ID    PhaseID
	Title string
	Items []ItemState
}

// DocumentState - документ каталога с флагом "есть".
type DocumentState struct {
	Document
	Owned bool
}

// Materialize накладывает леджер на каталог.
// Фазы из skip в результат не попадают.
func Materialize(l *Ledger, skip ...PhaseID) ([]PhaseState, []DocumentState) {
	if l == nil {
		l = &Ledger{}
	}
	skipped := make(map[PhaseID]struct{}, len(skip))
	for _, id := range skip {
		skipped[id] = struct{}{}
	}

	out := make([]PhaseState, 0, len(phases))
	for _, p := range phases {
		if _, ok := skipped[p.ID]; ok {
			continue
		}
		ps := PhaseState{ID: p.ID, Title: p.Title, Items: make([]ItemState, len(p.Items))}
		for i, it := range p.Items {
			ps.Items[i] = ItemState{Item: it, Done: l.Checklist.Get(ItemKey(p.ID, it.ID))}
		}
		out = append(out, ps)
	}

	docs := make([]DocumentState, len(documents))
	for i, d := range documents {
		docs[i] = DocumentState{Document: d, Owned: l.Documents.Get(DocumentKey(d.ID))}
	}
	return out, docs
}

// ComputeProgress возвращает процент выполнения в диапазоне [0, 100].
//
// Каждая задача и каждый документ весят одинаково, фазы не взвешиваются.
// Для пустого каталога результат 0.
//
// Знаменатель зависит от профиля: учитываются только переданные фазы.
// ProgressFor не передает фазу до приезда, если ее нет в профиле, поэтому
// одинаковый набор отметок дает разный процент у разных студентов.
func ComputeProgress(phases []PhaseState, documents []DocumentState) int {
	total, done := 0, 0
	for _, p := range phases {
		for _, it := range p.Items {
			total++
			if it.Done {
				done++
			}
		}
	}
	for _, d := range documents {
		total++
		if d.Owned {
			done++
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

// ProgressChange - результат пересчёта прогресса после переключения.
type ProgressChange struct {
	Previous int
	Current  int
}

// Changed возвращает true, если процент изменился.
func (c ProgressChange) Changed() bool {
	return c.Previous != c.Current
}
