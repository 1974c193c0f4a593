// Package profile reads and enriches the profile rows backing every account.
package profile

import (
	"context"

	"github.com/pkg/errors"

	"github.com/raavitutorials/webapp/services/supabase"
)

// Table is the profiles table name.
const Table = "profiles"

// Service exposes profile operations on top of the remote table.
type Service struct {
	client *supabase.Client
}

// NewService creates a profile Service.
func NewService(client *supabase.Client) *Service {
	return &Service{client: client}
}

// Get fetches the profile with the given account ID. The read is never
// cached: callers poll it right after sign-up while the provisioning trigger
// races them. supabase.IsNotFound distinguishes a missing row from a failure.
func (s *Service) Get(ctx context.Context, token, id string) (*Profile, error) {
	var p Profile
	err := s.client.From(Table).
		Auth(token).
		Select("*").
		Eq("id", id).
		Single().
		Get(ctx, &p)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching profile %s", id)
	}
	return &p, nil
}

// Exists reports whether a profile row has been provisioned for the account.
func (s *Service) Exists(ctx context.Context, token, id string) (bool, error) {
	var row struct {
		ID string `json:"id"`
	}
	err := s.client.From(Table).
		Auth(token).
		Select("id").
		Eq("id", id).
		Single().
		Get(ctx, &row)
	if err != nil {
		if supabase.IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "checking profile %s", id)
	}
	return true, nil
}

// Update patches the profile row with values; fields left zero are not sent.
func (s *Service) Update(ctx context.Context, token, id string, values interface{}) error {
	err := s.client.From(Table).
		Auth(token).
		Eq("id", id).
		Update(ctx, values, nil)
	return errors.Wrapf(err, "updating profile %s", id)
}

// ListByRole returns profiles with the given role, newest first, at most
// limit rows when limit is positive. The read is served from the client's
// short-lived cache, which profile writes invalidate, so the admin listings
// stay cheap without going stale.
func (s *Service) ListByRole(ctx context.Context, token, role string, limit int) ([]Profile, error) {
	q := s.client.From(Table).
		Auth(token).
		Select("*").
		Eq("type", role).
		Order("created_at", false)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Profile
	err := q.Cached().Get(ctx, &rows)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s profiles", role)
	}
	return rows, nil
}
