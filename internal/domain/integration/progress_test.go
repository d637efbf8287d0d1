package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/internal/domain/shared"
)

func TestComputeProgress_EmptyCatalog(t *testing.T) {
	assert.Equal(t, 0, ComputeProgress(nil, nil))
	assert.Equal(t, 0, ComputeProgress([]PhaseState{{ID: PhaseLegal}}, nil))
}

func TestComputeProgress_Rounding(t *testing.T) {
	phases := []PhaseState{{
		ID: PhaseLegal,
		Items: []ItemState{
			{Done: true},
			{Done: false},
			{Done: false},
		},
	}}
	// 1/3 -> 33
	assert.Equal(t, 33, ComputeProgress(phases, nil))

	phases[0].Items[1].Done = true
	// 2/3 -> 67
	assert.Equal(t, 67, ComputeProgress(phases, nil))

	docs := []DocumentState{{Owned: true}}
	// 3/4 -> 75
	assert.Equal(t, 75, ComputeProgress(phases, docs))
}

func TestComputeProgress_EqualWeights(t *testing.T) {
	phases := []PhaseState{
		{ID: PhaseInstallation, Items: []ItemState{{Done: true}}},
		{ID: PhaseLegal, Items: []ItemState{{}, {}, {}}},
	}
	docs := []DocumentState{{}, {}, {}, {}, {}}
	// 1 done out of 9 regardless of which phase it is in.
	assert.Equal(t, 11, ComputeProgress(phases, docs))
}

func TestComputeProgress_MonotoneAndBounded(t *testing.T) {
	l := NewLedger("u1")
	prev := -1
	for _, p := range Phases() {
		for _, it := range p.Items {
			l.Apply(Toggle{Kind: ToggleChecklistItem, Key: ItemKey(p.ID, it.ID), Value: true})
			got := ComputeProgress(Materialize(l))
			assert.GreaterOrEqual(t, got, prev)
			assert.LessOrEqual(t, got, 100)
			prev = got
		}
	}
	for _, d := range Documents() {
		l.Apply(Toggle{Kind: ToggleDocument, Key: DocumentKey(d.ID), Value: true})
		got := ComputeProgress(Materialize(l))
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	assert.Equal(t, 100, prev)
}

func TestComputeProgress_Idempotent(t *testing.T) {
	l := NewLedger("u1")
	l.Apply(Toggle{Kind: ToggleDocument, Key: DocumentKey("passport"), Value: true})
	phases, docs := Materialize(l)
	assert.Equal(t, ComputeProgress(phases, docs), ComputeProgress(phases, docs))
}

func TestMaterialize_SkipsPhase(t *testing.T) {
	phases, docs := Materialize(NewLedger("u1"), PhasePreArrival)
	require.Len(t, phases, 3)
	assert.Equal(t, PhaseInstallation, phases[0].ID)
	assert.Len(t, docs, len(Documents()))
}

func TestComputeProgress_DenominatorFollowsIncludedPhases(t *testing.T) {
	l := NewLedger("u1")
	for _, p := range Phases() {
		if p.ID == PhaseInstallation {
			l.Apply(Toggle{Kind: ToggleChecklistItem, Key: ItemKey(p.ID, p.Items[0].ID), Value: true})
		}
	}

	full := ComputeProgress(Materialize(l))
	withoutPreArrival := ComputeProgress(Materialize(l, PhasePreArrival))
	assert.Greater(t, full, 0)
	assert.Greater(t, withoutPreArrival, full)
}

func TestOverlay_DefaultsToFalse(t *testing.T) {
	var o Overlay
	assert.False(t, o.Get(ItemKey(PhaseLegal, "mutuelle")))

	l := NewLedger("u1")
	l.Apply(Toggle{Kind: ToggleChecklistItem, Key: ItemKey(PhaseLegal, "mutuelle"), Value: true})
	l.Apply(Toggle{Kind: ToggleChecklistItem, Key: ItemKey(PhaseLegal, "mutuelle"), Value: true})
	assert.Len(t, l.Checklist, 1)
	assert.True(t, l.Checklist.Get(ItemKey(PhaseLegal, "mutuelle")))
}

func TestNewToggle_UnknownItem(t *testing.T) {
	_, err := NewItemToggle(PhaseLegal, "does_not_exist", true)
	assert.ErrorIs(t, err, shared.ErrUnknownItem)
	assert.True(t, shared.IsValidation(err))

	_, err = NewItemToggle("nowhere", "visa", true)
	assert.ErrorIs(t, err, shared.ErrUnknownItem)

	_, err = NewDocumentToggle("diploma_of_wizardry", true)
	assert.ErrorIs(t, err, shared.ErrUnknownItem)

	tg, err := NewDocumentToggle("passport", true)
	require.NoError(t, err)
	assert.Equal(t, ToggleDocument, tg.Kind)
	assert.Equal(t, DocumentKey("passport"), tg.Key)
}

func TestPhases_ReturnsCopy(t *testing.T) {
	p := Phases()
	p[0].Items[0].Title = "changed"
	assert.NotEqual(t, "changed", Phases()[0].Items[0].Title)
}
