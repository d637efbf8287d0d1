package command

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/internal/application/apptest"
	"github.com/integration-hub/student-hub/internal/domain/coach"
	"github.com/integration-hub/student-hub/internal/domain/gate"
	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/quota"
	"github.com/integration-hub/student-hub/internal/domain/shared"
)

func userTurn(content string) []coach.Message {
	return []coach.Message{{Role: coach.RoleUser, Content: content}}
}

func newCoachHandler(store *apptest.Store, gw coach.Gateway) *CoachConversationHandler {
	return NewCoachConversationHandler(reader(store), store, gw, quota.DefaultLimits(), nil)
}

func TestCoach_LockedBelowThreshold(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, func(p *profile.Profile) { p.IntegrationProgress = 19 })
	gw := &apptest.Gateway{Chunks: []string{`{}`}}
	h := newCoachHandler(store, gw)

	_, err := h.Handle(context.Background(), CoachConversationCommand{UserID: userID, Messages: userTurn("Bonjour")})
	assert.ErrorIs(t, err, shared.ErrFeatureLocked)
	assert.Zero(t, gw.Calls)

	used, err := store.Used(context.Background(), userID, quota.FeatureCoachMessage, quota.DailyScope(h.now()))
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestCoach_CheckOnly(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, func(p *profile.Profile) { p.IntegrationProgress = 10 })
	gw := &apptest.Gateway{}
	h := newCoachHandler(store, gw)

	res, err := h.Handle(context.Background(), CoachConversationCommand{UserID: userID, CheckOnly: true})
	require.NoError(t, err)

	assert.True(t, res.Status.Locked)
	assert.Equal(t, gate.ReasonProgress, res.Status.Reason)
	assert.Equal(t, 2, res.Status.Quota.Remaining())
	assert.Equal(t, quota.LockNone, res.Status.LockMode)
	assert.Nil(t, res.Stream)
	assert.Zero(t, gw.Calls)
}

func TestCoach_QuotaThenLimit(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, func(p *profile.Profile) { p.IntegrationProgress = 20 })
	gw := &apptest.Gateway{Chunks: []string{`{"choices":[]}`}}
	h := newCoachHandler(store, gw)

	for want := 1; want >= 0; want-- {
		res, err := h.Handle(context.Background(), CoachConversationCommand{UserID: userID, Messages: userTurn("Aide CAF")})
		require.NoError(t, err)
		assert.Equal(t, want, res.Status.Quota.WireRemaining())

		chunk, err := res.Stream.Next()
		require.NoError(t, err)
		assert.JSONEq(t, `{"choices":[]}`, string(chunk))
		_, err = res.Stream.Next()
		assert.ErrorIs(t, err, io.EOF)
	}

	_, err := h.Handle(context.Background(), CoachConversationCommand{UserID: userID, Messages: userTurn("Encore")})
	assert.ErrorIs(t, err, shared.ErrLimitReached)
	assert.Equal(t, 2, gw.Calls)

	res, err := h.Handle(context.Background(), CoachConversationCommand{
		UserID:    userID,
		CheckOnly: true,
		Messages:  []coach.Message{{Role: coach.RoleUser, Content: "a"}, {Role: coach.RoleAssistant, Content: "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, quota.LockSoft, res.Status.LockMode)

	res, err = h.Handle(context.Background(), CoachConversationCommand{UserID: userID, CheckOnly: true})
	require.NoError(t, err)
	assert.Equal(t, quota.LockHard, res.Status.LockMode)
}

func TestCoach_PremiumSkipsQuota(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, func(p *profile.Profile) {
		p.IntegrationProgress = 50
		p.IsPremium = true
	})
	gw := &apptest.Gateway{Chunks: []string{`{}`}}
	h := newCoachHandler(store, gw)

	for i := 0; i < 5; i++ {
		res, err := h.Handle(context.Background(), CoachConversationCommand{UserID: userID, Messages: userTurn("Question")})
		require.NoError(t, err)
		assert.Equal(t, quota.Unlimited, res.Status.Quota.WireRemaining())
	}

	used, err := store.Used(context.Background(), userID, quota.FeatureCoachMessage, quota.DailyScope(h.now()))
	require.NoError(t, err)
	assert.Zero(t, used)
}

func TestCoach_UpstreamFailureKeepsConsumption(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, func(p *profile.Profile) { p.IntegrationProgress = 40 })
	gw := &apptest.Gateway{Err: shared.ErrLLMUnavailable}
	h := newCoachHandler(store, gw)

	_, err := h.Handle(context.Background(), CoachConversationCommand{UserID: userID, Messages: userTurn("Bonjour")})
	assert.ErrorIs(t, err, shared.ErrLLMUnavailable)

	used, err := store.Used(context.Background(), userID, quota.FeatureCoachMessage, quota.DailyScope(h.now()))
	require.NoError(t, err)
	assert.Equal(t, 1, used)
}

func TestCoach_SystemPromptFirst(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, func(p *profile.Profile) {
		p.IntegrationProgress = 40
		p.CurrentCity = "Grenoble"
	})
	gw := &apptest.Gateway{}
	h := newCoachHandler(store, gw)

	_, err := h.Handle(context.Background(), CoachConversationCommand{UserID: userID, Persona: coach.PersonaAya, Messages: userTurn("Salut")})
	require.NoError(t, err)

	require.Len(t, gw.Last, 2)
	assert.Equal(t, coach.RoleSystem, gw.Last[0].Role)
	assert.Contains(t, gw.Last[0].Content, "Grenoble")
	assert.Equal(t, "Salut", gw.Last[1].Content)
}

func TestCoach_InvalidConversation(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, func(p *profile.Profile) { p.IntegrationProgress = 40 })
	h := newCoachHandler(store, &apptest.Gateway{})

	_, err := h.Handle(context.Background(), CoachConversationCommand{UserID: userID})
	assert.True(t, shared.IsValidation(err))
}
