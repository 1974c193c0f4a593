// Package testutil provides shared test helpers, chief among them an
// in-process fake of the hosted backend-as-a-service so the application can
// be exercised end to end without network access.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FakeUser is an account held by the fake auth service.
type FakeUser struct {
	ID        string
	Email     string
	Password  string
	Confirmed bool
	Metadata  map[string]interface{}
	CreatedAt time.Time
}

// FakeBackend is an httptest server emulating the auth, table and storage
// endpoints the application depends on. Zero value is not usable; construct
// with NewFakeBackend and remember to Close it.
//
// Knobs (set before the exercised call):
//
//   - ProfileVisibleAfter: number of single-profile reads that miss before
//     the row created at sign-up becomes visible, emulating a slow
//     provisioning trigger. Negative means the profile never appears.
//   - FailUploadsMatching: object uploads whose path contains the substring
//     fail with a server error.
//   - FailProfileUpdate: profile patches fail with a server error.
//   - RequireConfirmation: sign-up answers with the bare user and the account
//     cannot sign in until Confirm is called.
type FakeBackend struct {
	Server *httptest.Server

	ProfileVisibleAfter int
	FailUploadsMatching string
	FailProfileUpdate   bool
	RequireConfirmation bool

	mu           sync.Mutex
	users        map[string]*FakeUser // by email
	tokens       map[string]string    // access token -> user ID
	profiles     map[string]map[string]interface{}
	profileReads map[string]int
	objects      map[string][]byte

	UploadCalls        []string
	RemoveCalls        []string
	ProfileUpdateCalls int
}

// NewFakeBackend starts the fake service. Callers own the returned backend
// and must Close it.
func NewFakeBackend() *FakeBackend {
	b := &FakeBackend{
		users:        make(map[string]*FakeUser),
		tokens:       make(map[string]string),
		profiles:     make(map[string]map[string]interface{}),
		profileReads: make(map[string]int),
		objects:      make(map[string][]byte),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.handle))
	return b
}

// URL is the base URL clients should be pointed at.
func (b *FakeBackend) URL() string { return b.Server.URL }

// Close shuts the fake service down.
func (b *FakeBackend) Close() { b.Server.Close() }

// AddUser registers a confirmed account and its provisioned profile row,
// returning the account.
func (b *FakeBackend) AddUser(email, password, userType string) *FakeUser {
	b.mu.Lock()
	defer b.mu.Unlock()

	user := &FakeUser{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  password,
		Confirmed: true,
		CreatedAt: time.Now().UTC(),
	}
	b.users[email] = user
	b.profiles[user.ID] = map[string]interface{}{
		"id":         user.ID,
		"email":      email,
		"type":       userType,
		"created_at": user.CreatedAt.Format(time.RFC3339),
	}
	return user
}

// Confirm marks the account as email-confirmed.
func (b *FakeBackend) Confirm(email string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if user, ok := b.users[email]; ok {
		user.Confirmed = true
	}
}

// Profile returns a copy of the stored profile row, or nil.
func (b *FakeBackend) Profile(userID string) map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, ok := b.profiles[userID]
	if !ok {
		return nil
	}
	cp := make(map[string]interface{}, len(row))
	for k, v := range row {
		cp[k] = v
	}
	return cp
}

// StoredObjects returns the paths of every uploaded object, bucket included.
func (b *FakeBackend) StoredObjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	paths := make([]string, 0, len(b.objects))
	for path := range b.objects {
		paths = append(paths, path)
	}
	return paths
}

func (b *FakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/auth/v1/signup":
		b.handleSignUp(w, r)
	case path == "/auth/v1/token":
		b.handleToken(w, r)
	case path == "/auth/v1/logout":
		w.WriteHeader(http.StatusNoContent)
	case path == "/auth/v1/user":
		b.handleUser(w, r)
	case path == "/auth/v1/recover":
		writeJSON(w, http.StatusOK, map[string]string{})
	case strings.HasPrefix(path, "/rest/v1/profiles"):
		b.handleProfiles(w, r)
	case strings.HasPrefix(path, "/storage/v1/object/"):
		b.handleStorage(w, r)
	default:
		writeError(w, http.StatusNotFound, "", "not found")
	}
}

func (b *FakeBackend) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string                 `json:"email"`
		Password string                 `json:"password"`
		Data     map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid payload")
		return
	}

	b.mu.Lock()
	if _, exists := b.users[payload.Email]; exists {
		b.mu.Unlock()
		writeError(w, http.StatusBadRequest, "", "User already registered")
		return
	}
	user := &FakeUser{
		ID:        uuid.NewString(),
		Email:     payload.Email,
		Password:  payload.Password,
		Confirmed: !b.RequireConfirmation,
		Metadata:  payload.Data,
		CreatedAt: time.Now().UTC(),
	}
	b.users[payload.Email] = user
	// The provisioning trigger creates the profile row; visibility is gated
	// by ProfileVisibleAfter in handleProfiles.
	if b.ProfileVisibleAfter >= 0 {
		b.profiles[user.ID] = map[string]interface{}{
			"id":         user.ID,
			"email":      user.Email,
			"created_at": user.CreatedAt.Format(time.RFC3339),
		}
	}
	confirmed := user.Confirmed
	b.mu.Unlock()

	if !confirmed {
		writeJSON(w, http.StatusOK, b.userJSON(user))
		return
	}
	writeJSON(w, http.StatusOK, b.sessionJSON(user))
}

func (b *FakeBackend) handleToken(w http.ResponseWriter, r *http.Request) {
	grant := r.URL.Query().Get("grant_type")
	var payload struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	b.mu.Lock()
	defer b.mu.Unlock()

	switch grant {
	case "password":
		user, ok := b.users[payload.Email]
		if !ok || user.Password != payload.Password {
			writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid login credentials")
			return
		}
		if !user.Confirmed {
			writeError(w, http.StatusBadRequest, "invalid_grant", "Email not confirmed")
			return
		}
		writeJSON(w, http.StatusOK, b.sessionJSONLocked(user))
	case "refresh_token":
		for _, user := range b.users {
			writeJSON(w, http.StatusOK, b.sessionJSONLocked(user))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid Refresh Token")
	default:
		writeError(w, http.StatusBadRequest, "", "unsupported grant type")
	}
}

func (b *FakeBackend) handleUser(w http.ResponseWriter, r *http.Request) {
	user := b.userFromToken(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "", "invalid JWT")
		return
	}

	if r.Method == http.MethodPut {
		var attrs struct {
			Email    string                 `json:"email"`
			Password string                 `json:"password"`
			Data     map[string]interface{} `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&attrs)

		b.mu.Lock()
		if attrs.Password != "" {
			user.Password = attrs.Password
		}
		if attrs.Data != nil {
			user.Metadata = attrs.Data
		}
		b.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, b.userJSON(user))
}

func (b *FakeBackend) handleProfiles(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")
	single := strings.Contains(r.Header.Get("Accept"), "vnd.pgrst.object")

	switch r.Method {
	case http.MethodGet:
		if id != "" && single {
			b.profileReads[id]++
			row, ok := b.profiles[id]
			if !ok || b.profileReads[id] <= b.ProfileVisibleAfter {
				writeError(w, http.StatusNotAcceptable, "PGRST116",
					"JSON object requested, multiple (or no) rows returned")
				return
			}
			writeJSON(w, http.StatusOK, row)
			return
		}

		rows := make([]map[string]interface{}, 0, len(b.profiles))
		wantType := strings.TrimPrefix(r.URL.Query().Get("type"), "eq.")
		for _, row := range b.profiles {
			if wantType != "" && row["type"] != wantType {
				continue
			}
			rows = append(rows, row)
		}
		writeJSON(w, http.StatusOK, rows)

	case http.MethodPatch:
		b.ProfileUpdateCalls++
		if b.FailProfileUpdate {
			writeError(w, http.StatusInternalServerError, "", "profile update failed")
			return
		}
		row, ok := b.profiles[id]
		if !ok {
			writeError(w, http.StatusNotAcceptable, "PGRST116", "no rows returned")
			return
		}
		var values map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
			writeError(w, http.StatusBadRequest, "", "invalid payload")
			return
		}
		for k, v := range values {
			row[k] = v
		}
		if single || r.Header.Get("Prefer") == "return=representation" {
			writeJSON(w, http.StatusOK, row)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
	}
}

func (b *FakeBackend) handleStorage(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/")

	switch r.Method {
	case http.MethodPost:
		b.mu.Lock()
		b.UploadCalls = append(b.UploadCalls, rest)
		failing := b.FailUploadsMatching != "" && strings.Contains(rest, b.FailUploadsMatching)
		b.mu.Unlock()

		if failing {
			writeError(w, http.StatusInternalServerError, "", "upload failed")
			return
		}
		body, _ := io.ReadAll(r.Body)

		b.mu.Lock()
		b.objects[rest] = body
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"Key": rest})

	case http.MethodDelete:
		var payload struct {
			Prefixes []string `json:"prefixes"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		bucket := rest

		b.mu.Lock()
		for _, p := range payload.Prefixes {
			key := bucket + "/" + p
			b.RemoveCalls = append(b.RemoveCalls, key)
			delete(b.objects, key)
		}
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, []map[string]string{})

	case http.MethodGet:
		b.mu.Lock()
		body, ok := b.objects[strings.TrimPrefix(rest, "public/")]
		b.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "", "object not found")
			return
		}
		_, _ = w.Write(body)

	default:
		writeError(w, http.StatusMethodNotAllowed, "", "method not allowed")
	}
}

func (b *FakeBackend) userFromToken(r *http.Request) *FakeUser {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.tokens[token]
	if !ok {
		return nil
	}
	for _, user := range b.users {
		if user.ID == id {
			return user
		}
	}
	return nil
}

func (b *FakeBackend) sessionJSON(user *FakeUser) map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionJSONLocked(user)
}

func (b *FakeBackend) sessionJSONLocked(user *FakeUser) map[string]interface{} {
	token := uuid.NewString()
	b.tokens[token] = user.ID
	return map[string]interface{}{
		"access_token":  token,
		"token_type":    "bearer",
		"expires_in":    3600,
		"refresh_token": uuid.NewString(),
		"user":          b.userJSONLocked(user),
	}
}

func (b *FakeBackend) userJSON(user *FakeUser) map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.userJSONLocked(user)
}

func (b *FakeBackend) userJSONLocked(user *FakeUser) map[string]interface{} {
	out := map[string]interface{}{
		"id":            user.ID,
		"email":         user.Email,
		"user_metadata": user.Metadata,
		"created_at":    user.CreatedAt.Format(time.RFC3339),
		"updated_at":    user.CreatedAt.Format(time.RFC3339),
	}
	if user.Confirmed {
		out["email_confirmed_at"] = user.CreatedAt.Format(time.RFC3339)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	payload := map[string]string{"message": message}
	if code != "" {
		payload["code"] = code
	}
	if status == http.StatusBadRequest && strings.HasPrefix(code, "invalid_") {
		payload = map[string]string{"error": code, "error_description": message}
	}
	writeJSON(w, status, payload)
}

// NopLogger discards everything logged to it.
type NopLogger struct{}

func (NopLogger) Debug(msg string, args ...interface{}) {}
func (NopLogger) Info(msg string, args ...interface{})  {}
func (NopLogger) Warn(msg string, args ...interface{})  {}
func (NopLogger) Error(msg string, args ...interface{}) {}
func (NopLogger) Fatal(msg string, args ...interface{}) {}

// Err returns a formatted assertion message in the shared style.
func Err(want, got interface{}) string {
	return fmt.Sprintf("expected %v, got %v", want, got)
}
