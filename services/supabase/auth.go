package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// User is an account held by the auth service.
type User struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// Session is an authenticated session: the tokens plus the user they belong to.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// AuthEvent identifies a change in authentication state.
type AuthEvent string

const (
	EventSignedIn         AuthEvent = "SIGNED_IN"
	EventSignedOut        AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed   AuthEvent = "TOKEN_REFRESHED"
	EventPasswordRecovery AuthEvent = "PASSWORD_RECOVERY"
)

// AuthChange is delivered to state-change listeners. Session is nil for
// EventSignedOut.
type AuthChange struct {
	Event   AuthEvent
	Session *Session
}

// Subscription is a handle to a registered auth-change listener. Calling
// Unsubscribe stops delivery; it is safe to call more than once.
type Subscription struct {
	Unsubscribe func()
}

// AuthClient talks to the auth endpoints and notifies registered listeners
// when a call changes the authentication state.
type AuthClient struct {
	client *Client

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(AuthChange)
}

// SignUpParams are the inputs to SignUp. Data is attached to the account as
// user metadata.
type SignUpParams struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// SignUpResult is what account creation returns. Session is nil when the
// service requires the email to be confirmed before the first sign-in.
type SignUpResult struct {
	User    *User
	Session *Session
}

// SignUp creates a new account. When the service is configured to
// auto-confirm, the response carries a session and listeners are notified.
func (a *AuthClient) SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error) {
	resp, err := a.post(ctx, "/auth/v1/signup", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	// The endpoint answers with a session when confirmation is off and with
	// the bare user otherwise. A session is recognizable by its access token.
	var probe struct {
		AccessToken string `json:"access_token"`
	}
	_ = json.Unmarshal(body, &probe)

	res := &SignUpResult{}
	if probe.AccessToken != "" {
		var session Session
		if err = json.Unmarshal(body, &session); err != nil {
			return nil, errors.Wrap(err, "decoding session")
		}
		res.Session = &session
		res.User = session.User
		a.notify(AuthChange{Event: EventSignedIn, Session: &session})
		return res, nil
	}

	var user User
	if err = json.Unmarshal(body, &user); err != nil {
		return nil, errors.Wrap(err, "decoding user")
	}
	res.User = &user
	return res, nil
}

// SignInWithPassword exchanges email/password credentials for a session.
func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	payload := map[string]string{"email": email, "password": password}
	resp, err := a.post(ctx, "/auth/v1/token?grant_type=password", payload)
	if err != nil {
		return nil, err
	}

	var session Session
	if err = decodeJSON(resp, &session); err != nil {
		return nil, err
	}
	a.notify(AuthChange{Event: EventSignedIn, Session: &session})
	return &session, nil
}

// RefreshSession exchanges a refresh token for a fresh session.
func (a *AuthClient) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	payload := map[string]string{"refresh_token": refreshToken}
	resp, err := a.post(ctx, "/auth/v1/token?grant_type=refresh_token", payload)
	if err != nil {
		return nil, err
	}

	var session Session
	if err = decodeJSON(resp, &session); err != nil {
		return nil, err
	}
	a.notify(AuthChange{Event: EventTokenRefreshed, Session: &session})
	return &session, nil
}

// GetUser fetches the account the access token belongs to.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	resp, err := a.client.doRequest(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err = decodeJSON(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserAttributes are the mutable fields of an account. Zero values are left
// untouched.
type UserAttributes struct {
	Email    string                 `json:"email,omitempty"`
	Password string                 `json:"password,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// UpdateUser updates the account the access token belongs to.
func (a *AuthClient) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error) {
	body, err := json.Marshal(attrs)
	if err != nil {
		return nil, errors.Wrap(err, "encoding attributes")
	}

	headers := map[string]string{"Content-Type": "application/json"}
	resp, err := a.client.doRequest(ctx, http.MethodPut, "/auth/v1/user", accessToken, bytes.NewReader(body), headers)
	if err != nil {
		return nil, err
	}

	var user User
	if err = decodeJSON(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignOut revokes the session's tokens and notifies listeners. Local state
// held by callers should be discarded regardless of the returned error.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	resp, err := a.client.doRequest(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
	if err == nil {
		err = decodeJSON(resp, nil)
	}
	a.notify(AuthChange{Event: EventSignedOut})
	return err
}

// ResetPasswordForEmail asks the service to email a password-recovery link.
// redirectTo, when non-empty, is where the link lands the user.
func (a *AuthClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	payload := map[string]string{"email": email}
	path := "/auth/v1/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	resp, err := a.post(ctx, path, payload)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}

// OnAuthStateChange registers fn to be called whenever a client operation
// changes the authentication state. Listeners run synchronously on the
// goroutine performing the operation.
func (a *AuthClient) OnAuthStateChange(fn func(AuthChange)) *Subscription {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.listeners == nil {
		a.listeners = make(map[int]func(AuthChange))
	}
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn

	return &Subscription{
		Unsubscribe: func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			delete(a.listeners, id)
		},
	}
}

func (a *AuthClient) notify(change AuthChange) {
	a.mu.Lock()
	fns := make([]func(AuthChange), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

func (a *AuthClient) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encoding payload")
	}
	headers := map[string]string{"Content-Type": "application/json"}
	return a.client.doRequest(ctx, http.MethodPost, path, "", bytes.NewReader(body), headers)
}
