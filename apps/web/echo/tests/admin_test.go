package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_adminAPI_panelGuard(t *testing.T) {
	srv, backend := setup(t)
	backend.AddUser("admin@test.com", "Secret123", "admin")
	backend.AddUser("student@test.com", "Secret123", "student")

	t.Run("anonymous is sent to login with the original path", func(t *testing.T) {
		req, rec := newJSONRequest(http.MethodGet, "/admin-panel", nil)
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/admin-login?from=%2Fadmin-panel", rec.Header().Get("Location"))
	})

	t.Run("student is sent to unauthorized", func(t *testing.T) {
		cookie := login(t, srv, "/student-login", "student@test.com", "Secret123")
		req, rec := newJSONRequest(http.MethodGet, "/admin-panel", nil, cookie)
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/unauthorized", rec.Header().Get("Location"))
	})

	t.Run("admin sees the listings", func(t *testing.T) {
		cookie := login(t, srv, "/admin-login", "admin@test.com", "Secret123")
		req, rec := newJSONRequest(http.MethodGet, "/admin-panel", nil, cookie)
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decodeBody(t, rec)
		counts, ok := resp["counts"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(1), counts["students"])
		assert.Equal(t, float64(0), counts["teachers"])
	})
}
