package supabase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raavitutorials/webapp/services/supabase"
	"github.com/raavitutorials/webapp/tests"
)

func TestAuthSignUpAndSignIn(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	client := supabase.NewClient(backend.URL(), "anon-key")
	ctx := context.Background()

	res, err := client.Auth.SignUp(ctx, supabase.SignUpParams{
		Email:    "student@test.com",
		Password: "Secret123",
		Data:     map[string]interface{}{"full_name": "Test Student"},
	})
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.NotEmpty(t, res.User.ID)
	require.NotNil(t, res.Session)
	assert.NotEmpty(t, res.Session.AccessToken)

	// duplicate sign-up is rejected
	_, err = client.Auth.SignUp(ctx, supabase.SignUpParams{Email: "student@test.com", Password: "Secret123"})
	require.Error(t, err)
	assert.True(t, supabase.IsDuplicate(err))

	session, err := client.Auth.SignInWithPassword(ctx, "student@test.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, session.User.ID)

	_, err = client.Auth.SignInWithPassword(ctx, "student@test.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestAuthSignUpConfirmationRequired(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.RequireConfirmation = true
	client := supabase.NewClient(backend.URL(), "anon-key")
	ctx := context.Background()

	res, err := client.Auth.SignUp(ctx, supabase.SignUpParams{Email: "new@test.com", Password: "Secret123"})
	require.NoError(t, err)
	require.NotNil(t, res.User)
	assert.Nil(t, res.Session)

	_, err = client.Auth.SignInWithPassword(ctx, "new@test.com", "Secret123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email not confirmed")

	backend.Confirm("new@test.com")
	_, err = client.Auth.SignInWithPassword(ctx, "new@test.com", "Secret123")
	assert.NoError(t, err)
}

func TestAuthStateChangeSubscription(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.AddUser("teacher@test.com", "Secret123", "teacher")
	client := supabase.NewClient(backend.URL(), "anon-key")
	ctx := context.Background()

	var events []supabase.AuthEvent
	sub := client.Auth.OnAuthStateChange(func(change supabase.AuthChange) {
		events = append(events, change.Event)
	})

	session, err := client.Auth.SignInWithPassword(ctx, "teacher@test.com", "Secret123")
	require.NoError(t, err)
	require.NoError(t, client.Auth.SignOut(ctx, session.AccessToken))
	assert.Equal(t, []supabase.AuthEvent{supabase.EventSignedIn, supabase.EventSignedOut}, events)

	// nothing is delivered after unsubscribing
	sub.Unsubscribe()
	_, err = client.Auth.SignInWithPassword(ctx, "teacher@test.com", "Secret123")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRestSingleNotFound(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	client := supabase.NewClient(backend.URL(), "anon-key")

	var row map[string]interface{}
	err := client.From("profiles").Select("*").Eq("id", "missing").Single().Get(context.Background(), &row)
	require.Error(t, err)
	assert.True(t, supabase.IsNotFound(err))
}

func TestRestUpdateAndGet(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	user := backend.AddUser("student@test.com", "Secret123", "student")
	client := supabase.NewClient(backend.URL(), "anon-key")
	ctx := context.Background()

	values := map[string]interface{}{"phone": "9876543210"}
	err := client.From("profiles").Eq("id", user.ID).Update(ctx, values, nil)
	require.NoError(t, err)

	var row map[string]interface{}
	err = client.From("profiles").Select("*").Eq("id", user.ID).Single().Get(ctx, &row)
	require.NoError(t, err)
	assert.Equal(t, "9876543210", row["phone"])
}

func TestStorageUploadAndRemove(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	client := supabase.NewClient(backend.URL(), "anon-key")
	ctx := context.Background()
	bucket := client.Storage.From("student-documents")

	err := bucket.Upload(ctx, "abc/photo-face.jpg", strings.NewReader("jpeg-bytes"), supabase.UploadOptions{
		ContentType:  "image/jpeg",
		CacheControl: "3600",
		Upsert:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"student-documents/abc/photo-face.jpg"}, backend.UploadCalls)

	url := bucket.GetPublicURL("abc/photo-face.jpg")
	assert.Equal(t, backend.URL()+"/storage/v1/object/public/student-documents/abc/photo-face.jpg", url)

	require.NoError(t, bucket.Remove(ctx, []string{"abc/photo-face.jpg"}, ""))
	assert.Empty(t, backend.StoredObjects())
}
