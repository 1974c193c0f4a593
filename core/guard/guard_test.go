package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raavitutorials/webapp/core/profile"
	"github.com/raavitutorials/webapp/core/session"
)

func snap(state session.State, role string) session.Snapshot {
	s := session.Snapshot{State: state, Role: role}
	if role != "" {
		s.Profile = &profile.Profile{Type: role}
	}
	return s
}

func TestDecide(t *testing.T) {
	adminOnly := []string{profile.RoleAdmin}

	tests := []struct {
		name     string
		snap     session.Snapshot
		roles    []string
		path     string
		want     Decision
	}{
		{
			"loading renders neither",
			snap(session.StateLoading, ""), adminOnly, "/admin-panel",
			Decision{Action: Wait},
		},
		{
			"uninitialized waits too",
			snap(session.StateUninitialized, ""), nil, "/admin-panel",
			Decision{Action: Wait},
		},
		{
			"anonymous is sent to login with the original path",
			snap(session.StateAnonymous, ""), adminOnly, "/admin-panel",
			Decision{Action: RedirectLogin, From: "/admin-panel"},
		},
		{
			"wrong role is sent to unauthorized",
			snap(session.StateAuthenticated, profile.RoleStudent), adminOnly, "/admin-panel",
			Decision{Action: RedirectUnauthorized},
		},
		{
			"unknown role is unauthorized, not granted",
			snap(session.StateAuthenticated, ""), adminOnly, "/admin-panel",
			Decision{Action: RedirectUnauthorized},
		},
		{
			"matching role renders",
			snap(session.StateAuthenticated, profile.RoleAdmin), adminOnly, "/admin-panel",
			Decision{Action: Render},
		},
		{
			"no role requirement admits any signed-in account",
			snap(session.StateAuthenticated, ""), nil, "/profile",
			Decision{Action: Render},
		},
		{
			"several allowed roles",
			snap(session.StateAuthenticated, profile.RoleTeacher),
			[]string{profile.RoleStudent, profile.RoleTeacher}, "/classes",
			Decision{Action: Render},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.snap, tt.roles, tt.path))
		})
	}
}
