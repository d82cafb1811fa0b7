package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/clinic-orders/internal/session"
)

func protectedRouter(iss *Issuer) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(iss.Authenticate, RequireRole(session.RoleManager))
		r.Get("/reports/summary", func(w http.ResponseWriter, r *http.Request) {
			c, _ := ClaimsFrom(r.Context())
			_, _ = w.Write([]byte(c.Subject))
		})
	})
	return r
}

func TestAuthenticateAndRequireRole(t *testing.T) {
	iss := NewIssuer("secret", "clinic-api", time.Hour)
	h := protectedRouter(iss)

	manager, _, err := iss.Issue("u-m", "Manager", session.RoleManager)
	require.NoError(t, err)
	nurse, _, err := iss.Issue("u-n", "Nurse", session.RoleNurse)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + nurse, http.StatusForbidden},
		{"manager", "Bearer " + manager, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/reports/summary", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "u-m", rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}
