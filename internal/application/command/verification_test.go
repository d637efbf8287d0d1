package command

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/internal/application/apptest"
	"github.com/integration-hub/student-hub/internal/domain/profile"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/internal/domain/verification"
)

const uniEmail = "Lea.Martin@etu.univ-lyon1.fr"

func newRequestHandler(store *apptest.Store, mailer verification.Mailer, devLink bool) *RequestVerificationHandler {
	return NewRequestVerificationHandler(store, reader(store), mailer, nil, nil, RequestVerificationConfig{
		PublicBaseURL:   "https://hub.example.fr",
		DevLinkFallback: func() bool { return devLink },
	})
}

func tokenFrom(t *testing.T, link string) string {
	t.Helper()
	i := strings.Index(link, "token=")
	require.GreaterOrEqual(t, i, 0)
	return link[i+len("token="):]
}

func TestRequestVerification_Sent(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, nil)
	mailer := &apptest.Mailer{}
	h := newRequestHandler(store, mailer, false)

	res, err := h.Handle(context.Background(), RequestVerificationCommand{UserID: userID, Email: uniEmail})
	require.NoError(t, err)

	assert.Equal(t, verification.StateSent, res.State)
	assert.Empty(t, res.DevLink)
	require.Len(t, mailer.Links, 1)
	assert.Equal(t, "lea.martin@etu.univ-lyon1.fr", mailer.Sent[0])
	assert.True(t, strings.HasPrefix(mailer.Links[0], "https://hub.example.fr/verify?token="))
	assert.Len(t, tokenFrom(t, mailer.Links[0]), 64)

	recs := store.Records(userID)
	require.Len(t, recs, 1)
	assert.Equal(t, verification.OutcomeSent, recs[0].Outcome)
	assert.Equal(t, verification.HashToken(tokenFrom(t, mailer.Links[0])), recs[0].TokenHash)
	assert.WithinDuration(t, recs[0].CreatedAt.Add(24*time.Hour), recs[0].ExpiresAt, time.Second)
}

func TestRequestVerification_InvalidDomainWritesNothing(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, nil)
	h := newRequestHandler(store, &apptest.Mailer{}, false)

	_, err := h.Handle(context.Background(), RequestVerificationCommand{UserID: userID, Email: "lea@gmail.com"})
	assert.ErrorIs(t, err, shared.ErrInvalidEmailDomain)
	assert.Empty(t, store.Records(userID))
}

func TestRequestVerification_RateLimit(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, nil)
	h := newRequestHandler(store, &apptest.Mailer{}, false)

	for i := 0; i < verification.MaxAttemptsPerWindow; i++ {
		_, err := h.Handle(context.Background(), RequestVerificationCommand{UserID: userID, Email: uniEmail})
		require.NoError(t, err)
	}

	_, err := h.Handle(context.Background(), RequestVerificationCommand{UserID: userID, Email: uniEmail})
	assert.ErrorIs(t, err, shared.ErrTooManyAttempts)
	assert.Len(t, store.Records(userID), verification.MaxAttemptsPerWindow)
}

func TestRequestVerification_ConcurrentRequestsRespectLimit(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, nil)
	h := newRequestHandler(store, &apptest.Mailer{}, false)

	const n = 12
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.Handle(context.Background(), RequestVerificationCommand{UserID: userID, Email: uniEmail})
		}(i)
	}
	wg.Wait()

	ok, limited := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, shared.ErrTooManyAttempts):
			limited++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, verification.MaxAttemptsPerWindow, ok)
	assert.Equal(t, n-verification.MaxAttemptsPerWindow, limited)
	assert.Len(t, store.Records(userID), verification.MaxAttemptsPerWindow)
}

func TestRequestVerification_EmailTaken(t *testing.T) {
	store := apptest.NewStore()
	other, err := profile.New("11111111-1111-4111-8111-111111111111")
	require.NoError(t, err)
	store.Put(other)
	seed(t, store, nil)

	mailer := &apptest.Mailer{}
	first := NewRequestVerificationHandler(store, reader(store), mailer, nil, nil, RequestVerificationConfig{PublicBaseURL: "http://x"})
	_, err = first.Handle(context.Background(), RequestVerificationCommand{UserID: other.UserID, Email: uniEmail})
	require.NoError(t, err)

	confirm := NewConfirmVerificationHandler(store, reader(store), nil)
	_, err = confirm.Handle(context.Background(), ConfirmVerificationCommand{Token: tokenFrom(t, mailer.Links[0])})
	require.NoError(t, err)

	_, err = newRequestHandler(store, mailer, false).Handle(context.Background(), RequestVerificationCommand{UserID: userID, Email: uniEmail})
	assert.ErrorIs(t, err, shared.ErrEmailTaken)

	recs := store.Records(userID)
	require.Len(t, recs, 1)
	assert.Equal(t, verification.OutcomeDuplicate, recs[0].Outcome)
}

func TestRequestVerification_DeliveryFailure(t *testing.T) {
	tests := []struct {
		name        string
		mailer      verification.Mailer
		devLink     bool
		wantErr     error
		wantOutcome verification.Outcome
	}{
		{"failure without fallback", &apptest.Mailer{Err: errors.New("smtp down")}, false, shared.ErrEmailDeliveryFailed, verification.OutcomeFailed},
		{"failure with dev fallback", &apptest.Mailer{Err: errors.New("smtp down")}, true, nil, verification.OutcomeSent},
		{"not configured with dev fallback", nil, true, nil, verification.OutcomeSent},
		{"not configured", nil, false, shared.ErrEmailDeliveryFailed, verification.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := apptest.NewStore()
			seed(t, store, nil)
			h := newRequestHandler(store, tt.mailer, tt.devLink)

			res, err := h.Handle(context.Background(), RequestVerificationCommand{UserID: userID, Email: uniEmail})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Contains(t, res.DevLink, "/verify?token=")
			}

			recs := store.Records(userID)
			require.Len(t, recs, 1)
			assert.Equal(t, tt.wantOutcome, recs[0].Outcome)
		})
	}
}

func TestConfirmVerification(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, nil)
	mailer := &apptest.Mailer{}
	events := &apptest.Publisher{}

	_, err := newRequestHandler(store, mailer, false).Handle(context.Background(), RequestVerificationCommand{UserID: userID, Email: uniEmail})
	require.NoError(t, err)
	token := tokenFrom(t, mailer.Links[0])

	h := NewConfirmVerificationHandler(store, reader(store), events)

	res, err := h.Handle(context.Background(), ConfirmVerificationCommand{Token: token})
	require.NoError(t, err)
	assert.Equal(t, ConfirmOutcomeVerified, res.Outcome)

	p, err := store.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, profile.StatusTemoin, p.Status)
	assert.True(t, p.IsVerified)
	assert.Equal(t, "lea.martin@etu.univ-lyon1.fr", p.UniversityEmail)
	assert.Equal(t, []shared.EventType{shared.EventVerificationConfirmed}, events.Types())

	again, err := h.Handle(context.Background(), ConfirmVerificationCommand{Token: token})
	require.NoError(t, err)
	assert.Equal(t, ConfirmOutcomeAlreadyVerified, again.Outcome)
	assert.Len(t, events.Types(), 1)
}

func TestConfirmVerification_InvalidAndExpired(t *testing.T) {
	store := apptest.NewStore()
	seed(t, store, nil)
	mailer := &apptest.Mailer{}

	_, err := newRequestHandler(store, mailer, false).Handle(context.Background(), RequestVerificationCommand{UserID: userID, Email: uniEmail})
	require.NoError(t, err)

	h := NewConfirmVerificationHandler(store, reader(store), nil)

	_, err = h.Handle(context.Background(), ConfirmVerificationCommand{Token: ""})
	assert.ErrorIs(t, err, shared.ErrVerificationTokenInvalid)

	_, err = h.Handle(context.Background(), ConfirmVerificationCommand{Token: strings.Repeat("ab", 32)})
	assert.ErrorIs(t, err, shared.ErrVerificationTokenInvalid)

	h.now = func() time.Time { return time.Now().UTC().Add(25 * time.Hour) }
	_, err = h.Handle(context.Background(), ConfirmVerificationCommand{Token: tokenFrom(t, mailer.Links[0])})
	assert.ErrorIs(t, err, shared.ErrVerificationTokenExpired)
}
