package core

import (
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds all application settings. It is loaded once at startup from
// defaults, an optional config/.env.<env> file and the environment.
type Config struct {
	Debug    bool
	TestMode bool
	AppName  string
	Env      string // DEV (default), TEST, QA, PROD
	Build    string
	WorkDir  string

	SecretKey        string
	DefaultFromEmail string
	ContactEmail     string // inbox notified on new contact messages

	SendgridAPIKey string
	RollbarToken   string

	Server struct {
		Host            string
		Addr            string
		ShutdownTimeout time.Duration
	}

	Supabase struct {
		URL       string // required
		AnonKey   string // required
		JWTSecret string // verifies access tokens locally when set
	}

	Registration struct {
		ProfilePollInterval time.Duration
		ProfilePollAttempts int
		LoginRedirectDelay  time.Duration
	}

	Session struct {
		CookieName string
		TTL        time.Duration
	}
}

// NewConfig loads the application configuration.
// The Supabase service URL and anonymous API key are mandatory; a missing
// value is a startup error the caller is expected to die on.
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Raavi Tutorials")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "v2a%x_0m)7s&+qe5(d!#8u4yjz$rw1cg^hb3nfk6l9tpio-@")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("contactEmail", "raavitutorialsindore@gmail.com")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("profilePollInterval", time.Second)
	v.SetDefault("profilePollAttempts", 5)
	v.SetDefault("loginRedirectDelay", 3*time.Second)
	v.SetDefault("sessionCookieName", "rt_session")
	v.SetDefault("sessionTTL", 7*24*time.Hour)

	env := os.Getenv("ENV")
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	// service credentials keep their canonical names, unprefixed
	_ = v.BindEnv("supabaseUrl", "SUPABASE_URL")
	_ = v.BindEnv("supabaseAnonKey", "SUPABASE_ANON_KEY")
	_ = v.BindEnv("supabaseJwtSecret", "SUPABASE_JWT_SECRET")
	_ = v.BindEnv("sendgridApiKey", "SENDGRID_API_KEY")
	_ = v.BindEnv("rollbarToken", "ROLLBAR_TOKEN")

	conf := &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		WorkDir:          Getwd(),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: v.GetString("defaultFromEmail"),
		ContactEmail:     v.GetString("contactEmail"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Addr = v.GetString("serverAddr")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Supabase.URL = strings.TrimSuffix(v.GetString("supabaseUrl"), "/")
	conf.Supabase.AnonKey = v.GetString("supabaseAnonKey")
	conf.Supabase.JWTSecret = v.GetString("supabaseJwtSecret")
	conf.Registration.ProfilePollInterval = v.GetDuration("profilePollInterval")
	conf.Registration.ProfilePollAttempts = v.GetInt("profilePollAttempts")
	conf.Registration.LoginRedirectDelay = v.GetDuration("loginRedirectDelay")
	conf.Session.CookieName = v.GetString("sessionCookieName")
	conf.Session.TTL = v.GetDuration("sessionTTL")

	if conf.Supabase.URL == "" || conf.Supabase.AnonKey == "" {
		return nil, errors.New("missing Supabase environment variables (SUPABASE_URL, SUPABASE_ANON_KEY)")
	}

	return conf, nil
}

// DefaultFrom returns the default sender address.
func (c *Config) DefaultFrom() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}
