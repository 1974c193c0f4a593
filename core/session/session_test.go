package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raavitutorials/webapp/core/profile"
	"github.com/raavitutorials/webapp/core/session"
	"github.com/raavitutorials/webapp/services/supabase"
	"github.com/raavitutorials/webapp/tests"
)

func newContext(backend *testutil.FakeBackend) *session.Context {
	client := supabase.NewClient(backend.URL(), "anon-key")
	return session.New(client, profile.NewService(client), testutil.NopLogger{})
}

func TestInitAnonymous(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	sc := newContext(backend)
	defer sc.Close()
	assert.Equal(t, session.StateUninitialized, sc.State())

	sc.Init(context.Background(), "")
	assert.Equal(t, session.StateAnonymous, sc.State())
	assert.Empty(t, sc.Role())
	assert.Empty(t, sc.Token())
}

func TestInitWithInvalidToken(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	sc := newContext(backend)
	defer sc.Close()
	sc.Init(context.Background(), "expired-refresh-token")
	// no account exists, the refresh fails, the visitor stays anonymous
	assert.Equal(t, session.StateAnonymous, sc.State())
}

func TestSignInResolvesRole(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.AddUser("student@test.com", "Secret123", "student")

	sc := newContext(backend)
	defer sc.Close()
	sc.Init(context.Background(), "")

	sess, err := sc.SignIn(context.Background(), "student@test.com", "Secret123")
	require.NoError(t, err)
	require.NotNil(t, sess)

	snap := sc.Snapshot()
	assert.Equal(t, session.StateAuthenticated, snap.State)
	assert.Equal(t, profile.RoleStudent, snap.Role)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "student@test.com", snap.Profile.Email)
	assert.NotEmpty(t, sc.Token())
}

func TestSignInBadCredentials(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.AddUser("student@test.com", "Secret123", "student")

	sc := newContext(backend)
	defer sc.Close()
	sc.Init(context.Background(), "")

	_, err := sc.SignIn(context.Background(), "student@test.com", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid login credentials")
	assert.Equal(t, session.StateAnonymous, sc.State())
}

func TestSignOutClearsLocalStateImmediately(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.AddUser("teacher@test.com", "Secret123", "teacher")

	sc := newContext(backend)
	defer sc.Close()
	sc.Init(context.Background(), "")
	_, err := sc.SignIn(context.Background(), "teacher@test.com", "Secret123")
	require.NoError(t, err)

	require.NoError(t, sc.SignOut(context.Background()))
	snap := sc.Snapshot()
	assert.Equal(t, session.StateAnonymous, snap.State)
	assert.Nil(t, snap.Session)
	assert.Nil(t, snap.Profile)

	// idempotent without a session
	assert.NoError(t, sc.SignOut(context.Background()))
}

func TestExternalSignOutNotification(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.AddUser("student@test.com", "Secret123", "student")

	client := supabase.NewClient(backend.URL(), "anon-key")
	sc := session.New(client, profile.NewService(client), testutil.NopLogger{})
	defer sc.Close()
	sc.Init(context.Background(), "")

	sess, err := sc.SignIn(context.Background(), "student@test.com", "Secret123")
	require.NoError(t, err)

	// another consumer of the shared client signs out; the notification
	// stream flips this context to anonymous
	require.NoError(t, client.Auth.SignOut(context.Background(), sess.AccessToken))
	assert.Eventually(t, func() bool {
		return sc.State() == session.StateAnonymous
	}, time.Second, 5*time.Millisecond)
}

func TestUpdateProfile(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()
	backend.AddUser("student@test.com", "Secret123", "student")

	sc := newContext(backend)
	defer sc.Close()
	sc.Init(context.Background(), "")
	_, err := sc.SignIn(context.Background(), "student@test.com", "Secret123")
	require.NoError(t, err)

	prof, err := sc.UpdateProfile(context.Background(), map[string]interface{}{"phone": "9876543210"})
	require.NoError(t, err)
	assert.Equal(t, "9876543210", prof.Phone)
	assert.Equal(t, "9876543210", sc.Snapshot().Profile.Phone)
}

func TestUpdateProfileRequiresSession(t *testing.T) {
	backend := testutil.NewFakeBackend()
	defer backend.Close()

	sc := newContext(backend)
	defer sc.Close()
	sc.Init(context.Background(), "")

	_, err := sc.UpdateProfile(context.Background(), map[string]interface{}{"phone": "1"})
	var notSignedIn *session.NotSignedInError
	require.ErrorAs(t, err, &notSignedIn)
}
