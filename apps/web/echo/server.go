package echoweb

import (
	"context"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/raavitutorials/webapp/core"
	"github.com/raavitutorials/webapp/core/form"
	"github.com/raavitutorials/webapp/core/profile"
	"github.com/raavitutorials/webapp/core/register"
	"github.com/raavitutorials/webapp/services/supabase"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Config      *core.Config
		Logger      core.Logger
		Client      *supabase.Client
		ProfileSvc  *profile.Service
		RegisterSvc *register.Service
		EmailSvc    core.EmailService
		Sessions    *SessionStore
		Translator  ut.Translator

		// SignalShutdown is called when an integrity error demands a
		// graceful stop.
		SignalShutdown func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Config

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.Use(s.opts.Sessions.Middleware())

	validate := validator.New()
	core.InitValidators(validate, s.opts.Translator)

	pages := pagesAPI{conf: conf, emailSvc: s.opts.EmailSvc, profileSvc: s.opts.ProfileSvc}
	s.app.GET("/", pages.home)
	s.app.GET("/about", pages.about)
	s.app.GET("/contact", pages.contactInfo)
	s.app.POST("/contact", pages.submitContact)
	s.app.GET("/unauthorized", pages.unauthorized)
	s.app.GET("/auth/callback", pages.authCallback)

	auth := authAPI{conf: conf, validate: validate}
	s.app.GET("/student-login", auth.loginPage(profile.RoleStudent))
	s.app.GET("/teacher-login", auth.loginPage(profile.RoleTeacher))
	s.app.GET("/admin-login", auth.loginPage(profile.RoleAdmin))
	s.app.POST("/student-login", auth.login(profile.RoleStudent))
	s.app.POST("/teacher-login", auth.login(profile.RoleTeacher))
	s.app.POST("/admin-login", auth.login(profile.RoleAdmin))
	s.app.POST("/logout", auth.logout)
	s.app.POST("/forgot-password", auth.forgotPassword)

	reg := registerAPI{conf: conf, svc: s.opts.RegisterSvc}
	s.app.GET("/student-registration", reg.registrationPage(profile.RoleStudent, form.StudentSchema))
	s.app.GET("/teacher-registration", reg.registrationPage(profile.RoleTeacher, form.TeacherSchema))
	s.app.POST("/student-registration", reg.registerStudent)
	s.app.POST("/teacher-registration", reg.registerTeacher)

	admin := adminAPI{profileSvc: s.opts.ProfileSvc}
	s.app.GET("/admin-panel", admin.panel, roleMiddleware(profile.RoleAdmin))
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
