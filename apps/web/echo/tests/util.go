package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/stretchr/testify/require"

	. "github.com/raavitutorials/webapp/apps/web/echo"
	"github.com/raavitutorials/webapp/core"
	"github.com/raavitutorials/webapp/core/profile"
	"github.com/raavitutorials/webapp/core/register"
	emailsvc "github.com/raavitutorials/webapp/services/email"
	"github.com/raavitutorials/webapp/services/supabase"
	testutil "github.com/raavitutorials/webapp/tests"
)

func testConfig(backend *testutil.FakeBackend) *core.Config {
	conf := &core.Config{
		TestMode:     true,
		AppName:      "Raavi Tutorials",
		Env:          "TEST",
		ContactEmail: "contact@test.com",
	}
	conf.Supabase.URL = backend.URL()
	conf.Supabase.AnonKey = "anon-key"
	conf.Registration.ProfilePollInterval = time.Millisecond
	conf.Registration.ProfilePollAttempts = 5
	conf.Registration.LoginRedirectDelay = 3 * time.Second
	conf.Session.CookieName = "rt_session"
	conf.Session.TTL = time.Hour
	return conf
}

func setup(t *testing.T) (Server, *testutil.FakeBackend) {
	backend := testutil.NewFakeBackend()
	t.Cleanup(backend.Close)
	emailsvc.ClearSentMessages()

	conf := testConfig(backend)
	logger := testutil.NopLogger{}
	client := supabase.NewClient(conf.Supabase.URL, conf.Supabase.AnonKey)
	profileSvc := profile.NewService(client)
	registerSvc := register.NewService(client, profileSvc, logger, conf)
	sessions := NewSessionStore(conf, client, profileSvc, logger)
	t.Cleanup(sessions.Close)

	return NewServer(&Options{
		DisableReqLogs: true,
		Config:         conf,
		Logger:         logger,
		Client:         client,
		ProfileSvc:     profileSvc,
		RegisterSvc:    registerSvc,
		EmailSvc:       emailsvc.NewConsoleService(conf),
		Sessions:       sessions,
		Translator:     newTranslator(),
		SignalShutdown: func() {},
	}), backend
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
}

func newJSONRequest(method, path string, data []byte, cookies ...*http.Cookie) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req, httptest.NewRecorder()
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// login signs credentials in through the given login page and returns the
// session cookie carrying the authenticated context.
func login(t *testing.T, srv Server, path, email, password string) *http.Cookie {
	body := marshallObj(t, map[string]string{"email": email, "password": password})
	req, rec := newJSONRequest(http.MethodPost, path, body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "login failed: %s", rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "rt_session" {
			return c
		}
	}
	t.Fatal("no session cookie returned")
	return nil
}

// multipartBody builds a multipart form of text fields plus named files.
func multipartBody(t *testing.T, fields map[string]string, files map[string][2]string) ([]byte, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for field, value := range fields {
		require.NoError(t, w.WriteField(field, value))
	}
	for field, file := range files {
		fw, err := w.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = io.WriteString(fw, file[1])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}
