package authadmin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/internal/domain/shared"
)

func TestDeleteUser(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"deleted", http.StatusOK, false},
		{"already gone", http.StatusNotFound, false},
		{"forbidden", http.StatusForbidden, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/auth/v1/admin/users/8c1f7a1e-0000-4000-8000-000000000001", r.URL.Path)
				assert.Equal(t, "service", r.Header.Get("apikey"))
				assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL + "/", ServiceRoleKey: "service"})
			err := c.DeleteUser(context.Background(), "8c1f7a1e-0000-4000-8000-000000000001")
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "auth_delete_failed", shared.CodeOf(err, ""))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDeleteUser_NotConfigured(t *testing.T) {
	err := NewClient(Config{}).DeleteUser(context.Background(), "u")
	assert.Equal(t, "auth_delete_failed", shared.CodeOf(err, ""))
}
