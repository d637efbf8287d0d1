package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(t *testing.T, payload string) string {
	t.Helper()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(ts + "." + payload))
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func event(typ, object string) string {
	return fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2020-08-27","type":%q,"data":{"object":%s}}`, typ, object)
}

func TestParseWebhook(t *testing.T) {
	const user = "8c1f7a1e-0000-4000-8000-000000000001"

	tests := []struct {
		name    string
		payload string
		want    *PremiumChange
		wantErr error
	}{
		{
			name:    "checkout completed",
			payload: event(EventCheckoutCompleted, `{"id":"cs_1","object":"checkout.session","client_reference_id":"`+user+`"}`),
			want:    &PremiumChange{EventID: "evt_1", UserID: user, Premium: true},
		},
		{
			name:    "checkout completed from metadata",
			payload: event(EventCheckoutCompleted, `{"id":"cs_1","object":"checkout.session","metadata":{"user_id":"`+user+`"}}`),
			want:    &PremiumChange{EventID: "evt_1", UserID: user, Premium: true},
		},
		{
			name:    "subscription deleted",
			payload: event(EventSubscriptionDeleted, `{"id":"sub_1","object":"subscription","status":"canceled","metadata":{"user_id":"`+user+`"}}`),
			want:    &PremiumChange{EventID: "evt_1", UserID: user, Premium: false},
		},
		{
			name:    "subscription updated to unpaid",
			payload: event(EventSubscriptionUpdated, `{"id":"sub_1","object":"subscription","status":"unpaid","metadata":{"user_id":"`+user+`"}}`),
			want:    &PremiumChange{EventID: "evt_1", UserID: user, Premium: false},
		},
		{
			name:    "subscription still active",
			payload: event(EventSubscriptionUpdated, `{"id":"sub_1","object":"subscription","status":"active","metadata":{"user_id":"`+user+`"}}`),
			want:    &PremiumChange{EventID: "evt_1", UserID: user, Premium: true},
		},
		{
			name:    "no user reference",
			payload: event(EventCheckoutCompleted, `{"id":"cs_1","object":"checkout.session"}`),
			wantErr: ErrMissingUser,
		},
		{
			name:    "unrelated event",
			payload: event("invoice.paid", `{"id":"in_1","object":"invoice"}`),
		},
	}

	c := NewClient(Config{WebhookSecret: testSecret})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ParseWebhook([]byte(tt.payload), sign(t, tt.payload))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWebhook_BadSignature(t *testing.T) {
	c := NewClient(Config{WebhookSecret: testSecret})
	payload := event(EventCheckoutCompleted, `{"id":"cs_1","object":"checkout.session","client_reference_id":"u"}`)

	_, err := c.ParseWebhook([]byte(payload), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
