package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendVerification(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"e-1"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "re_key", From: "hub@example.fr"})
	err := c.SendVerification(context.Background(), "a@univ-lyon1.fr", "https://hub.example.fr/verify?token=abc&x=1")
	require.NoError(t, err)

	assert.Equal(t, "hub@example.fr", got.From)
	assert.Equal(t, []string{"a@univ-lyon1.fr"}, got.To)
	assert.Contains(t, got.HTML, "https://hub.example.fr/verify?token=abc&amp;x=1")
}

func TestSend_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"domain not verified"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewClient(Config{BaseURL: srv.URL, APIKey: "k", From: "f@x.fr"}).
		SendVerification(context.Background(), "a@b.fr", "https://x/verify?token=t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
