package register

import "fmt"

// User-facing messages for known failure modes.
const (
	duplicateEmailMsg = "This email is already registered. Please login instead."
	profileTimeoutMsg = "Profile creation failed. Please try again."
)

// AuthError is a failure creating the account. Its message is safe to show
// to the user; known unfriendly messages from the auth service are remapped.
type AuthError struct {
	Msg string
	Err error
}

func (e *AuthError) Error() string { return e.Msg }
func (e *AuthError) Unwrap() error { return e.Err }

// ProfileTimeoutError means the provisioned profile row never became visible
// within the polling bound. The account exists; the user is told to verify
// their email and retry later.
type ProfileTimeoutError struct {
	UserID   string
	Attempts int
}

func (e *ProfileTimeoutError) Error() string { return profileTimeoutMsg }

// UploadError is a single document upload failing. It is never returned from
// the workflow: the field's URL degrades to absent and registration carries
// on. It exists so logs carry the field and path that failed.
type UploadError struct {
	Field string
	Path  string
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading %s to %s: %v", e.Field, e.Path, e.Err)
}
func (e *UploadError) Unwrap() error { return e.Err }

// ProfileUpdateError is the enrichment step failing. It is fatal: uploaded
// documents are compensated away and the registration is reported failed.
type ProfileUpdateError struct {
	UserID string
	Err    error
}

func (e *ProfileUpdateError) Error() string {
	return fmt.Sprintf("updating profile %s: %v", e.UserID, e.Err)
}
func (e *ProfileUpdateError) Unwrap() error { return e.Err }
