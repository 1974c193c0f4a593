package register_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raavitutorials/webapp/core"
	"github.com/raavitutorials/webapp/core/profile"
	"github.com/raavitutorials/webapp/core/register"
	"github.com/raavitutorials/webapp/services/supabase"
	"github.com/raavitutorials/webapp/tests"
)

func newService(backend *testutil.FakeBackend, attempts int) *register.Service {
	client := supabase.NewClient(backend.URL(), "anon-key")
	cfg := &core.Config{}
	cfg.Registration.ProfilePollInterval = time.Millisecond
	cfg.Registration.ProfilePollAttempts = attempts
	return register.NewService(client, profile.NewService(client), testutil.NopLogger{}, cfg)
}

func studentPayload(docs ...register.Document) register.StudentRegistration {
	return register.StudentRegistration{
		Person: register.Person{
			Name:     "Asha Patel",
			Email:    "a@b.com",
			Password: "Abcd1234",
			Phone:    "9876543210",
			Address:  "14 MG Road, Pune, Maharashtra",
		},
		Grade:    "10th",
		Board:    "CBSE",
		School:   "City High School",
		Subjects: []string{"Maths", "Science"},
		ParentInfo: profile.ParentInfo{
			FatherName:  "R Patel",
			FatherPhone: "9876500000",
		},
		EmergencyContact: profile.EmergencyContact{
			Name: "R Patel", Phone: "9876500000", Relation: "father",
		},
		Documents: docs,
	}
}

func TestRegisterStudent(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	svc := newService(backend, 5)

	photo := register.Document{
		Field:       "photo",
		Filename:    "my photo!.jpg",
		ContentType: "image/jpeg",
		Content:     strings.NewReader("jpeg-bytes"),
	}
	res, err := svc.RegisterStudent(context.Background(), studentPayload(photo))
	require.NoError(t, err)
	require.NotEmpty(t, res.UserID)
	assert.False(t, res.ConfirmationRequired)

	// one upload, under the identity-namespaced sanitized path
	require.Len(t, backend.UploadCalls, 1)
	wantPath := "student-documents/" + res.UserID + "/photo-my_photo_.jpg"
	assert.Equal(t, wantPath, backend.UploadCalls[0])

	// profile enriched with role, fields and the photo URL
	row := backend.Profile(res.UserID)
	require.NotNil(t, row)
	assert.Equal(t, "student", row["type"])
	assert.Equal(t, "10th", row["current_class"])
	urls, ok := row["document_urls"].(map[string]interface{})
	require.True(t, ok)
	url, _ := urls["photo"].(string)
	assert.Contains(t, url, "/storage/v1/object/public/"+wantPath)

	assert.Empty(t, backend.RemoveCalls, "nothing to compensate on success")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.AddUser("a@b.com", "Abcd1234", "student")
	svc := newService(backend, 5)

	_, err := svc.RegisterStudent(context.Background(), studentPayload())
	require.Error(t, err)

	var authErr *register.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "This email is already registered. Please login instead.", authErr.Msg)
}

func TestRegisterProfileTimeout(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.ProfileVisibleAfter = -1 // the row never appears
	svc := newService(backend, 5)

	_, err := svc.RegisterStudent(context.Background(), studentPayload())
	require.Error(t, err)

	var timeout *register.ProfileTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 5, timeout.Attempts)
	assert.Equal(t, "Profile creation failed. Please try again.", err.Error())

	// the workflow stops before uploads and enrichment
	assert.Empty(t, backend.UploadCalls)
	assert.Zero(t, backend.ProfileUpdateCalls)
}

func TestRegisterProfileVisibleAfterRetries(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.ProfileVisibleAfter = 3
	svc := newService(backend, 5)

	res, err := svc.RegisterStudent(context.Background(), studentPayload())
	require.NoError(t, err)
	assert.Equal(t, 1, backend.ProfileUpdateCalls)
	assert.NotNil(t, backend.Profile(res.UserID))
}

func TestRegisterPartialUploadFailure(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.FailUploadsMatching = "photo-"
	svc := newService(backend, 5)

	docs := []register.Document{
		{Field: "photo", Filename: "face.jpg", ContentType: "image/jpeg", Content: strings.NewReader("img")},
		{Field: "marksheet", Filename: "marks.pdf", ContentType: "application/pdf", Content: strings.NewReader("pdf")},
	}
	res, err := svc.RegisterStudent(context.Background(), studentPayload(docs...))
	require.NoError(t, err, "one failed upload must not abort the registration")

	// the failed field degrades to an absent URL, the other is recorded
	require.Len(t, res.DocumentURLs, 2)
	assert.Nil(t, res.DocumentURLs["photo"])
	require.NotNil(t, res.DocumentURLs["marksheet"])
	assert.Contains(t, *res.DocumentURLs["marksheet"], res.UserID+"/marksheet-marks.pdf")

	row := backend.Profile(res.UserID)
	urls, ok := row["document_urls"].(map[string]interface{})
	require.True(t, ok)
	assert.Nil(t, urls["photo"])
	assert.NotEmpty(t, urls["marksheet"])
}

func TestRegisterCompensatesUploadsOnUpdateFailure(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.FailProfileUpdate = true
	svc := newService(backend, 5)

	docs := []register.Document{
		{Field: "photo", Filename: "face.jpg", ContentType: "image/jpeg", Content: strings.NewReader("img")},
		{Field: "resume", Filename: "cv.pdf", ContentType: "application/pdf", Content: strings.NewReader("pdf")},
	}
	_, err := svc.RegisterStudent(context.Background(), studentPayload(docs...))
	require.Error(t, err)

	var updateErr *register.ProfileUpdateError
	require.ErrorAs(t, err, &updateErr)

	// both committed uploads are requested for deletion exactly once
	require.Len(t, backend.RemoveCalls, 2)
	for _, call := range backend.RemoveCalls {
		assert.True(t, strings.HasPrefix(call, "student-documents/"+updateErr.UserID+"/"), call)
	}
	assert.Empty(t, backend.StoredObjects())
}

func TestRegisterTeacher(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	svc := newService(backend, 5)

	reg := register.TeacherRegistration{
		Person: register.Person{
			Name:     "Vikram Iyer",
			Email:    "vikram@test.com",
			Password: "Abcd1234",
			Phone:    "9123456780",
			Address:  "22 FC Road, Pune, Maharashtra",
		},
		Qualification: "MSc Mathematics",
		Experience:    7,
		Subjects:      []string{" Maths", "Physics ", ""},
		TimeAndDays:   "Mon-Fri evenings",
		Documents: []register.Document{
			{Field: "resume", Filename: "cv.pdf", ContentType: "application/pdf", Content: strings.NewReader("pdf")},
		},
	}
	res, err := svc.RegisterTeacher(context.Background(), reg)
	require.NoError(t, err)

	row := backend.Profile(res.UserID)
	require.NotNil(t, row)
	assert.Equal(t, "teacher", row["type"])
	assert.Equal(t, "MSc Mathematics", row["qualification"])
	assert.Equal(t, []interface{}{"Maths", "Physics"}, row["subjects"])

	require.Len(t, backend.UploadCalls, 1)
	assert.Equal(t, "documents/"+res.UserID+"/resume-cv.pdf", backend.UploadCalls[0])
}
