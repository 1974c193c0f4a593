package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emailsvc "github.com/raavitutorials/webapp/services/email"
)

func Test_pagesAPI_public(t *testing.T) {
	srv, _ := setup(t)

	tests := []httpTest{
		{name: "home", method: http.MethodGet, path: "/", wantCode: http.StatusOK},
		{name: "about", method: http.MethodGet, path: "/about", wantCode: http.StatusOK},
		{name: "contact info", method: http.MethodGet, path: "/contact", wantCode: http.StatusOK},
		{name: "unauthorized", method: http.MethodGet, path: "/unauthorized", wantCode: http.StatusOK},
		{name: "unknown path", method: http.MethodGet, path: "/nope", wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newJSONRequest(tt.method, tt.path, tt.body)
			srv.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func Test_pagesAPI_submitContact(t *testing.T) {
	srv, _ := setup(t)

	t.Run("valid message is mailed to the contact inbox", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		body := marshallObj(t, map[string]string{
			"name":    "Priya Sharma",
			"email":   "priya@test.com",
			"phone":   "9876543210",
			"message": "I would like to enquire about classes.",
		})
		req, rec := newJSONRequest(http.MethodPost, "/contact", body)
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Thank you for contacting us!")

		require.Len(t, emailsvc.SentMessages, 1)
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, "contact@test.com", msg.To[0].Address)
		assert.Equal(t, "New contact message from Priya Sharma", msg.Subject)
		assert.Contains(t, msg.TextContent, "I would like to enquire about classes.")
	})

	t.Run("invalid payload reports field errors", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		body := marshallObj(t, map[string]string{"name": "Priya", "phone": "12"})
		req, rec := newJSONRequest(http.MethodPost, "/contact", body)
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeBody(t, rec)
		errs, ok := resp["errors"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Phone number must be 10 digits", errs["phone"])
		assert.Equal(t, "Email is required", errs["email"])
		assert.Equal(t, "Message is required", errs["message"])
		assert.Empty(t, emailsvc.SentMessages)
	})
}
