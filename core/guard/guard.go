// Package guard decides whether a visitor may see a role-gated page. The
// decision is a pure function of session state, the page's allowed roles and
// the requested path; it performs no I/O.
package guard

import "github.com/raavitutorials/webapp/core/session"

// Action is the outcome of a guard decision.
type Action string

const (
	// Render: show the requested page.
	Render Action = "render"
	// Wait: the session is still resolving; show a neutral waiting
	// indicator, never a premature rejection.
	Wait Action = "wait"
	// RedirectLogin: send the visitor to the login page, remembering the
	// path they asked for.
	RedirectLogin Action = "redirect-login"
	// RedirectUnauthorized: signed in, wrong role.
	RedirectUnauthorized Action = "redirect-unauthorized"
)

// Decision is what the router should do with the request.
type Decision struct {
	Action Action
	// From is the originally requested path, set on RedirectLogin so the
	// login page can send the visitor back after they sign in.
	From string
}

// Decide evaluates a request for path against the session snapshot. roles is
// the set allowed to see the page; empty means any signed-in account.
// An authenticated session whose role is still unknown is unauthorized: the
// profile fetch may simply not have resolved yet, but granting access on a
// guess is worse than a redirect.
func Decide(snap session.Snapshot, roles []string, path string) Decision {
	switch snap.State {
	case session.StateUninitialized, session.StateLoading:
		return Decision{Action: Wait}
	case session.StateAnonymous:
		return Decision{Action: RedirectLogin, From: path}
	}

	if len(roles) == 0 {
		return Decision{Action: Render}
	}
	for _, role := range roles {
		if snap.Role != "" && snap.Role == role {
			return Decision{Action: Render}
		}
	}
	return Decision{Action: RedirectUnauthorized}
}
