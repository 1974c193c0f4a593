// Package register implements the account registration workflow: create the
// identity, wait out profile provisioning, upload documents one at a time and
// enrich the profile, compensating uploaded files when enrichment fails.
package register

import (
	"context"
	"strings"
	"time"

	"github.com/raavitutorials/webapp/core"
	"github.com/raavitutorials/webapp/core/profile"
	"github.com/raavitutorials/webapp/services/supabase"
)

// Storage buckets documents land in.
const (
	StudentBucket = "student-documents"
	TeacherBucket = "documents"
)

// Service runs registrations against the remote auth, table and storage
// collaborators.
type Service struct {
	client   *supabase.Client
	profiles *profile.Service
	logger   core.Logger

	pollInterval time.Duration
	pollAttempts int
}

// NewService creates a registration Service.
func NewService(client *supabase.Client, profiles *profile.Service, logger core.Logger, cfg *core.Config) *Service {
	return &Service{
		client:       client,
		profiles:     profiles,
		logger:       logger,
		pollInterval: cfg.Registration.ProfilePollInterval,
		pollAttempts: cfg.Registration.ProfilePollAttempts,
	}
}

// RegisterStudent runs the full workflow for a student payload.
func (s *Service) RegisterStudent(ctx context.Context, reg StudentRegistration) (*Result, error) {
	enrich := func(urls map[string]*string, now time.Time) interface{} {
		level := reg.Level
		if level == "" {
			level = "standard"
		}
		var selections []profile.SubjectSelection
		for _, subject := range reg.Subjects {
			selections = append(selections, profile.SubjectSelection{Name: subject, Level: level})
		}
		return &profile.Profile{
			Type:             profile.RoleStudent,
			Phone:            reg.Phone,
			Gender:           reg.Gender,
			Address:          reg.Address,
			CurrentClass:     reg.Grade,
			Board:            reg.Board,
			School:           reg.School,
			Medium:           reg.Medium,
			SelectedSubjects: selections,
			BloodGroup:       reg.BloodGroup,
			Nationality:      reg.Nationality,
			Religion:         reg.Religion,
			Category:         reg.Category,
			Aadhaar:          reg.Aadhaar,
			ParentInfo:       &reg.ParentInfo,
			EmergencyContact: &reg.EmergencyContact,
			DocumentURLs:     urls,
			UpdatedAt:        &now,
		}
	}
	return s.run(ctx, profile.RoleStudent, StudentBucket, reg.Person, reg.Documents, enrich)
}

// RegisterTeacher runs the full workflow for a teacher payload.
func (s *Service) RegisterTeacher(ctx context.Context, reg TeacherRegistration) (*Result, error) {
	enrich := func(urls map[string]*string, now time.Time) interface{} {
		return &profile.Profile{
			Type:          profile.RoleTeacher,
			Phone:         reg.Phone,
			Address:       reg.Address,
			Qualification: reg.Qualification,
			Experience:    reg.Experience,
			Subjects:      cleanSubjects(reg.Subjects),
			TimeAndDays:   reg.TimeAndDays,
			DocumentURLs:  urls,
			UpdatedAt:     &now,
		}
	}
	return s.run(ctx, profile.RoleTeacher, TeacherBucket, reg.Person, reg.Documents, enrich)
}

func (s *Service) run(
	ctx context.Context,
	role, bucketName string,
	person Person,
	docs []Document,
	enrich func(urls map[string]*string, now time.Time) interface{},
) (*Result, error) {
	// 1. create the identity, carrying role and display name as metadata
	signup, err := s.client.Auth.SignUp(ctx, supabase.SignUpParams{
		Email:    person.Email,
		Password: person.Password,
		Data: map[string]interface{}{
			"username":  usernameFor(person.Email),
			"name":      person.Name,
			"user_type": role,
		},
	})
	if err != nil {
		return nil, mapAuthError(err)
	}

	userID := signup.User.ID
	var token string
	if signup.Session != nil {
		token = signup.Session.AccessToken
	}

	// 2. the profile row is provisioned by a server-side trigger; wait for it
	if err = s.waitForProfile(ctx, token, userID); err != nil {
		return nil, err
	}

	// 3. sequential uploads; a failed file degrades to an absent URL
	bucket := s.client.Storage.From(bucketName)
	urls := make(map[string]*string, len(docs))
	var committed []string
	for _, doc := range docs {
		if doc.Field == "" || doc.Content == nil {
			continue
		}
		path := userID + "/" + doc.Field + "-" + core.SanitizeFilename(doc.Filename)
		err = bucket.Upload(ctx, path, doc.Content, supabase.UploadOptions{
			ContentType:  doc.ContentType,
			CacheControl: "3600",
			Upsert:       true,
			Token:        token,
		})
		if err != nil {
			s.logger.Warn("document upload failed:", &UploadError{Field: doc.Field, Path: path, Err: err})
			urls[doc.Field] = nil
			continue
		}
		url := bucket.GetPublicURL(path)
		urls[doc.Field] = &url
		committed = append(committed, path)
	}

	// 4. enrich the profile with role-specific fields and the URL map
	if err = s.profiles.Update(ctx, token, userID, enrich(urls, time.Now().UTC())); err != nil {
		s.removeUploads(ctx, bucket, committed, token)
		return nil, &ProfileUpdateError{UserID: userID, Err: err}
	}

	// 5. drop the half-verified session; the user signs in after confirming
	if token != "" {
		if err = s.client.Auth.SignOut(ctx, token); err != nil {
			s.logger.Warn("post-registration sign-out failed:", err)
		}
	}

	return &Result{
		UserID:               userID,
		ConfirmationRequired: signup.Session == nil,
		DocumentURLs:         urls,
	}, nil
}

// waitForProfile polls the profile row at a fixed interval until it appears
// or the attempt bound is spent.
func (s *Service) waitForProfile(ctx context.Context, token, userID string) error {
	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		exists, err := s.profiles.Exists(ctx, token, userID)
		if err == nil && exists {
			return nil
		}
		if err != nil {
			s.logger.Warn("profile existence check failed:", err)
		}
		if attempt == s.pollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
	return &ProfileTimeoutError{UserID: userID, Attempts: s.pollAttempts}
}

// removeUploads compensates committed uploads after a fatal failure, newest
// first. Best effort: a failed deletion is logged and never re-thrown, the
// registration failure takes priority.
func (s *Service) removeUploads(ctx context.Context, bucket *supabase.Bucket, paths []string, token string) {
	if len(paths) == 0 {
		return
	}
	reversed := make([]string, len(paths))
	for i, p := range paths {
		reversed[len(paths)-1-i] = p
	}
	if err := bucket.Remove(ctx, reversed, token); err != nil {
		s.logger.Error("failed to clean up uploaded files:", err)
	}
}

func usernameFor(email string) string {
	return strings.SplitN(email, "@", 2)[0]
}

func cleanSubjects(subjects []string) []string {
	out := make([]string, 0, len(subjects))
	for _, s := range subjects {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// mapAuthError turns an account-creation failure into an AuthError with a
// message safe to show. Known duplicate-email responses get friendlier text.
func mapAuthError(err error) error {
	if supabase.IsDuplicate(err) || strings.Contains(strings.ToLower(err.Error()), "email already") {
		return &AuthError{Msg: duplicateEmailMsg, Err: err}
	}
	return &AuthError{Msg: err.Error(), Err: err}
}
