package tests

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStudentFields() map[string]string {
	return map[string]string{
		"name":            "Asha Patel",
		"email":           "a@b.com",
		"phone":           "9876543210",
		"password":        "Abcd1234",
		"confirmPassword": "Abcd1234",
		"address":         "14 MG Road, Pune, Maharashtra",
		"grade":           "10th",
		"school":          "City High School",
		"parentName":      "R Patel",
		"parentPhone":     "9876500000",
		"board":           "CBSE",
		"subjects":        "Maths, Science",
	}
}

func Test_registerAPI_student(t *testing.T) {
	srv, backend := setup(t)

	body, contentType := multipartBody(t, validStudentFields(), map[string][2]string{
		"photo": {"face.jpg", "jpeg-bytes"},
	})
	req := httptest.NewRequest(http.MethodPost, "/student-registration", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody(t, rec)
	assert.Contains(t, resp["message"], "Registration successful!")
	assert.Equal(t, "/student-login", resp["redirect"])
	assert.Equal(t, float64(3), resp["redirect_delay_seconds"])

	userID, _ := resp["user_id"].(string)
	require.NotEmpty(t, userID)

	// exactly one upload, and the profile row carries the photo URL
	require.Len(t, backend.UploadCalls, 1)
	assert.Equal(t, "student-documents/"+userID+"/photo-face.jpg", backend.UploadCalls[0])

	row := backend.Profile(userID)
	require.NotNil(t, row)
	assert.Equal(t, "student", row["type"])
	urls, ok := row["document_urls"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, urls["photo"], "/photo-face.jpg")
}

func Test_registerAPI_studentValidation(t *testing.T) {
	srv, _ := setup(t)

	tests := []struct {
		name    string
		mutate  func(map[string]string)
		field   string
		wantMsg string
	}{
		{"missing grade", func(f map[string]string) { delete(f, "grade") }, "grade", "Grade is required"},
		{"weak password", func(f map[string]string) { f["password"] = "abcdefgh"; f["confirmPassword"] = "abcdefgh" },
			"password", "Password must contain at least one uppercase letter, one lowercase letter, and one number"},
		{"password mismatch", func(f map[string]string) { f["confirmPassword"] = "Abcd12345" },
			"confirmPassword", "Passwords must match"},
		{"bad parent phone", func(f map[string]string) { f["parentPhone"] = "123" },
			"parentPhone", "Phone number must be 10 digits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validStudentFields()
			tt.mutate(fields)
			body, contentType := multipartBody(t, fields, nil)
			req := httptest.NewRequest(http.MethodPost, "/student-registration", strings.NewReader(string(body)))
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeBody(t, rec)
			errs, ok := resp["errors"].(map[string]interface{})
			require.True(t, ok, rec.Body.String())
			assert.Equal(t, tt.wantMsg, errs[tt.field])
		})
	}
}

func Test_registerAPI_duplicateEmail(t *testing.T) {
	srv, backend := setup(t)
	backend.AddUser("a@b.com", "Abcd1234", "student")

	body, contentType := multipartBody(t, validStudentFields(), nil)
	req := httptest.NewRequest(http.MethodPost, "/student-registration", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "This email is already registered. Please login instead.")
}

func Test_registerAPI_profileTimeout(t *testing.T) {
	srv, backend := setup(t)
	backend.ProfileVisibleAfter = -1

	body, contentType := multipartBody(t, validStudentFields(), nil)
	req := httptest.NewRequest(http.MethodPost, "/student-registration", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Profile creation failed. Please try again.")
}

func Test_registerAPI_teacher(t *testing.T) {
	srv, backend := setup(t)

	fields := map[string]string{
		"name":            "Vikram Iyer",
		"email":           "vikram@test.com",
		"phone":           "9123456780",
		"password":        "Abcd1234",
		"confirmPassword": "Abcd1234",
		"address":         "22 FC Road, Pune, Maharashtra",
		"qualification":   "MSc Mathematics",
		"experience":      "7",
		"subjects":        "Maths, Physics",
		"timeAndDays":     "Mon-Fri evenings",
	}
	body, contentType := multipartBody(t, fields, map[string][2]string{
		"resume": {"cv.pdf", "pdf-bytes"},
		"photo":  {"face.jpg", "jpeg-bytes"},
	})
	req := httptest.NewRequest(http.MethodPost, "/teacher-registration", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody(t, rec)
	assert.Equal(t, "/teacher-login", resp["redirect"])

	userID, _ := resp["user_id"].(string)
	row := backend.Profile(userID)
	require.NotNil(t, row)
	assert.Equal(t, "teacher", row["type"])
	assert.Equal(t, float64(7), row["experience"])
	require.Len(t, backend.UploadCalls, 2)
	for _, call := range backend.UploadCalls {
		assert.True(t, strings.HasPrefix(call, "documents/"+userID+"/"), call)
	}
}
