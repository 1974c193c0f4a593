// Package session holds the authentication state of one signed-in browser:
// a small state machine fed by auth-change notifications, plus the account
// operations pages call. Every state mutation is applied by a single
// goroutine draining an event queue, so handlers never interleave.
package session

import (
	"context"
	"sync"

	"github.com/raavitutorials/webapp/core"
	"github.com/raavitutorials/webapp/core/profile"
	"github.com/raavitutorials/webapp/services/supabase"
)

// State is where the context is in its lifecycle.
type State string

const (
	// StateUninitialized: Init has not been called.
	StateUninitialized State = "uninitialized"
	// StateLoading: the startup session check is in flight. Role-gated
	// decisions must wait rather than reject.
	StateLoading State = "loading"
	// StateAuthenticated: a session is held. The role may still be unknown
	// while the profile fetch resolves.
	StateAuthenticated State = "authenticated"
	// StateAnonymous: no session.
	StateAnonymous State = "anonymous"
)

// Snapshot is a consistent read of the context's state.
type Snapshot struct {
	State   State
	Session *supabase.Session
	Profile *profile.Profile
	// Role is "" until the profile fetch resolves; unknown is treated as
	// unauthorized by the route guard.
	Role string
}

type event struct {
	change supabase.AuthChange
	ack    chan struct{}
}

// Context is the per-visitor session state machine. Only the event-queue
// goroutine mutates the authentication state; consumers read through
// Snapshot.
type Context struct {
	client   *supabase.Client
	profiles *profile.Service
	logger   core.Logger

	mu      sync.RWMutex
	state   State
	session *supabase.Session
	profile *profile.Profile

	events    chan event
	done      chan struct{}
	closeOnce sync.Once
	sub       *supabase.Subscription
}

// New creates an uninitialized Context. Call Init before use and Close when
// the visitor's session ends.
func New(client *supabase.Client, profiles *profile.Service, logger core.Logger) *Context {
	return &Context{
		client:   client,
		profiles: profiles,
		logger:   logger,
		state:    StateUninitialized,
		events:   make(chan event, 16),
		done:     make(chan struct{}),
	}
}

// Init hydrates the context from a previously persisted refresh token and
// starts consuming auth-change notifications. An empty or stale token lands
// the context in StateAnonymous.
func (c *Context) Init(ctx context.Context, refreshToken string) {
	c.setState(StateLoading, nil, nil)

	c.sub = c.client.Auth.OnAuthStateChange(func(change supabase.AuthChange) {
		select {
		case c.events <- event{change: change}:
		case <-c.done:
		}
	})
	go c.consume()

	if refreshToken == "" {
		c.submit(supabase.AuthChange{Event: supabase.EventSignedOut})
		return
	}

	session, err := c.client.Auth.RefreshSession(ctx, refreshToken)
	if err != nil {
		c.logger.Info("stored session no longer valid:", err)
		c.submit(supabase.AuthChange{Event: supabase.EventSignedOut})
		return
	}
	// the refresh notification is already queued; waiting on a duplicate
	// guarantees the state is settled before Init returns
	c.submit(supabase.AuthChange{Event: supabase.EventTokenRefreshed, Session: session})
}

// Close stops notification handling. Safe to call more than once.
func (c *Context) Close() {
	c.closeOnce.Do(func() {
		if c.sub != nil {
			c.sub.Unsubscribe()
		}
		close(c.done)
	})
}

// submit queues a change and waits until the queue goroutine has applied it,
// together with everything queued before it.
func (c *Context) submit(change supabase.AuthChange) {
	ev := event{change: change, ack: make(chan struct{})}
	select {
	case c.events <- ev:
	case <-c.done:
		return
	}
	select {
	case <-ev.ack:
	case <-c.done:
	}
}

func (c *Context) consume() {
	for {
		select {
		case <-c.done:
			return
		case ev := <-c.events:
			c.apply(ev.change)
			if ev.ack != nil {
				close(ev.ack)
			}
		}
	}
}

// apply runs on the queue goroutine only.
func (c *Context) apply(change supabase.AuthChange) {
	switch change.Event {
	case supabase.EventSignedIn, supabase.EventTokenRefreshed:
		if change.Session == nil {
			return
		}
		// duplicate notification for the session already held
		snap := c.Snapshot()
		if snap.State == StateAuthenticated && snap.Session != nil &&
			snap.Session.AccessToken == change.Session.AccessToken {
			return
		}
		c.setState(StateAuthenticated, change.Session, nil)
		c.resolveRole(change.Session)

	case supabase.EventSignedOut:
		c.setState(StateAnonymous, nil, nil)
	}
}

// resolveRole fetches the profile backing the session. Until it returns the
// role reads as unknown; on failure it stays unknown.
func (c *Context) resolveRole(session *supabase.Session) {
	if session.User == nil {
		return
	}
	prof, err := c.profiles.Get(context.Background(), session.AccessToken, session.User.ID)
	if err != nil {
		c.logger.Warn("fetching profile for session:", err)
		return
	}

	c.mu.Lock()
	// a sign-out may have been applied meanwhile; do not resurrect
	if c.state == StateAuthenticated && c.session == session {
		c.profile = prof
	}
	c.mu.Unlock()
}

// SignIn exchanges credentials for a session. When it returns, the state
// machine has adopted the session and resolved the account role.
func (c *Context) SignIn(ctx context.Context, email, password string) (*supabase.Session, error) {
	session, err := c.client.Auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.submit(supabase.AuthChange{Event: supabase.EventSignedIn, Session: session})
	return session, nil
}

// SignUp creates an account without adopting its session.
func (c *Context) SignUp(ctx context.Context, params supabase.SignUpParams) (*supabase.SignUpResult, error) {
	return c.client.Auth.SignUp(ctx, params)
}

// SignOut clears local state first, so consumers react immediately, then
// revokes the session remotely. A failed remote call is logged and returned;
// the local session is gone either way.
func (c *Context) SignOut(ctx context.Context) error {
	session := c.Snapshot().Session
	c.submit(supabase.AuthChange{Event: supabase.EventSignedOut})

	if session == nil {
		return nil
	}
	if err := c.client.Auth.SignOut(ctx, session.AccessToken); err != nil {
		c.logger.Warn("remote sign-out failed:", err)
		return err
	}
	return nil
}

// UpdateProfile patches the signed-in account's profile row and refreshes
// the cached copy.
func (c *Context) UpdateProfile(ctx context.Context, values interface{}) (*profile.Profile, error) {
	snap := c.Snapshot()
	if snap.Session == nil || snap.Session.User == nil {
		return nil, &NotSignedInError{}
	}

	token, userID := snap.Session.AccessToken, snap.Session.User.ID
	if err := c.profiles.Update(ctx, token, userID, values); err != nil {
		return nil, err
	}
	prof, err := c.profiles.Get(ctx, token, userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state == StateAuthenticated {
		c.profile = prof
	}
	c.mu.Unlock()
	return prof, nil
}

// UpdateUser updates the signed-in account's credentials or metadata.
func (c *Context) UpdateUser(ctx context.Context, attrs supabase.UserAttributes) (*supabase.User, error) {
	snap := c.Snapshot()
	if snap.Session == nil {
		return nil, &NotSignedInError{}
	}
	return c.client.Auth.UpdateUser(ctx, snap.Session.AccessToken, attrs)
}

// ResetPassword asks for a password-recovery email.
func (c *Context) ResetPassword(ctx context.Context, email, redirectTo string) error {
	return c.client.Auth.ResetPasswordForEmail(ctx, email, redirectTo)
}

// Snapshot returns a consistent copy of the current state.
func (c *Context) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		State:   c.state,
		Session: c.session,
		Profile: c.profile,
		Role:    c.profile.Role(),
	}
}

// State returns the current lifecycle state.
func (c *Context) State() State { return c.Snapshot().State }

// Role returns the resolved account role, "" while unknown.
func (c *Context) Role() string { return c.Snapshot().Role }

// Token returns the current access token, "" when anonymous.
func (c *Context) Token() string {
	snap := c.Snapshot()
	if snap.Session == nil {
		return ""
	}
	return snap.Session.AccessToken
}

func (c *Context) setState(state State, session *supabase.Session, prof *profile.Profile) {
	c.mu.Lock()
	c.state = state
	c.session = session
	c.profile = prof
	c.mu.Unlock()
}

// NotSignedInError is returned by operations that need a session when the
// context holds none.
type NotSignedInError struct{}

func (*NotSignedInError) Error() string { return "not signed in" }
