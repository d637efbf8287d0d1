package query

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/internal/application/apptest"
	"github.com/integration-hub/student-hub/internal/domain/city"
	"github.com/integration-hub/student-hub/internal/domain/integration"
	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/shared"
)

const userID = "7c1d3e2a-7c1d-4e2a-9c1d-7c1d3e2a9c1d"

func boolPtr(b bool) *bool { return &b }

func seed(t *testing.T, store *apptest.Store, mutate func(p *profile.Profile)) {
	t.Helper()
	p, err := profile.New(userID)
	require.NoError(t, err)
	if mutate != nil {
		mutate(p)
	}
	store.Put(p)
}

func TestGetMe_HidesSensitiveFields(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, func(p *profile.Profile) {
		p.AdminNotes = "suivi particulier"
		p.IntegrationProgress = 35
	})
	h := NewGetMeHandler(profile.NewReader(store, nil, 0))

	me, err := h.Handle(context.Background(), GetMeQuery{UserID: userID})
	require.NoError(t, err)

	assert.Equal(t, 35, me.Progress)
	assert.False(t, me.Gates.Coach.Locked)
	assert.True(t, me.Gates.Social.Locked)
	assert.Equal(t, "verification_required", me.Gates.Social.Reason)
	assert.Equal(t, "interactive", me.Gates.PreArrival)

	body, err := json.Marshal(me)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "admin_notes")
	assert.NotContains(t, string(body), "suivi particulier")
	assert.NotContains(t, string(body), "monthly_budget")
}

func TestGetMe_RequiresUser(t *testing.T) {
	_, err := NewGetMeHandler(profile.NewReader(apptest.NewStore(), nil, 0)).Handle(context.Background(), GetMeQuery{})
	assert.Error(t, err)
}

func TestGetMe_UsesCache(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, nil)
	cache := apptest.NewProfileCache()
	h := NewGetMeHandler(profile.NewReader(store, cache, 0))

	_, err := h.Handle(context.Background(), GetMeQuery{UserID: userID})
	require.NoError(t, err)

	cached, err := cache.Get(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, userID, cached.UserID)
}

func TestGetChecklist_Modes(t *testing.T) {
	tests := []struct {
		name       string
		inFrance   *bool
		wantPhases int
		wantMode   string
	}{
		{"absent once in France", boolPtr(true), 3, ""},
		{"preview when abroad", boolPtr(false), 4, "preview"},
		{"interactive when unknown", nil, 4, "interactive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := apptest.NewStore()
			seed(t, store, func(p *profile.Profile) { p.InFrance = tt.inFrance })
			h := NewGetChecklistHandler(profile.NewReader(store, nil, 0), store)

			out, err := h.Handle(context.Background(), GetChecklistQuery{UserID: userID})
			require.NoError(t, err)
			require.Len(t, out.Phases, tt.wantPhases)
			assert.Len(t, out.Documents, len(integration.Documents()))

			if tt.wantMode == "" {
				assert.NotEqual(t, string(integration.PhasePreArrival), out.Phases[0].ID)
				return
			}
			pre := out.Phases[0]
			assert.Equal(t, string(integration.PhasePreArrival), pre.ID)
			assert.Equal(t, tt.wantMode, pre.Mode)
			for _, it := range pre.Items {
				if tt.wantMode == "preview" {
					assert.True(t, it.Locked)
					assert.Empty(t, it.Tip)
					assert.Empty(t, it.Link)
				} else {
					assert.False(t, it.Locked)
				}
			}
		})
	}
}

func TestGetChecklist_OverlayState(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, nil)
	toggle, err := integration.NewDocumentToggle("passport", true)
	require.NoError(t, err)
	_, err = store.Apply(context.Background(), userID, toggle, func(*integration.Ledger) int { return 4 })
	require.NoError(t, err)

	out, err := NewGetChecklistHandler(profile.NewReader(store, nil, 0), store).Handle(context.Background(), GetChecklistQuery{UserID: userID})
	require.NoError(t, err)

	assert.Equal(t, 4, out.Progress)
	for _, d := range out.Documents {
		assert.Equal(t, d.ID == "passport", d.Owned, d.ID)
	}
}

func TestCityInsights(t *testing.T) {
	insights := &city.Insights{City: "Lyon", Crous: "CROUS Lyon", Health: []string{"CPAM du Rhône"}}
	source := &apptest.CitySource{Report: city.Report{Insights: insights}}
	cache := apptest.NewCityCache()
	h := NewCityInsightsHandler(source, cache, nil)

	first, err := h.Handle(context.Background(), CityInsightsQuery{City: "  Lyon "})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, insights, first.Insights)

	second, err := h.Handle(context.Background(), CityInsightsQuery{City: "LYON"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, source.Calls)
}

func TestCityInsights_ParseErrorNotCached(t *testing.T) {
	source := &apptest.CitySource{Report: city.Report{Raw: "Désolé, je n'ai pas trouvé."}}
	cache := apptest.NewCityCache()
	h := NewCityInsightsHandler(source, cache, nil)

	out, err := h.Handle(context.Background(), CityInsightsQuery{City: "Brest"})
	require.NoError(t, err)
	assert.True(t, out.ParseError)
	assert.Equal(t, "Désolé, je n'ai pas trouvé.", out.Raw)
	assert.Zero(t, cache.Len())
}

func TestCityInsights_Errors(t *testing.T) {
	h := NewCityInsightsHandler(&apptest.CitySource{Err: shared.ErrSearchUnavailable}, nil, nil)

	_, err := h.Handle(context.Background(), CityInsightsQuery{City: " "})
	assert.True(t, shared.IsValidation(err))

	_, err = h.Handle(context.Background(), CityInsightsQuery{City: "Nantes"})
	assert.ErrorIs(t, err, shared.ErrSearchUnavailable)
}
