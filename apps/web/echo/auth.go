package echoweb

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/raavitutorials/webapp/core"
	"github.com/raavitutorials/webapp/core/form"
	"github.com/raavitutorials/webapp/core/profile"
)

// authAPI serves the role login pages, logout and password recovery.
type authAPI struct {
	conf     *core.Config
	validate *validator.Validate
}

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// loginPage serves the form shape for a role's login page.
func (api authAPI) loginPage(role string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{
			"page":   role + "-login",
			"fields": form.LoginSchema().Names(),
		})
	}
}

// login authenticates credentials and enforces that the account's profile
// carries the expected role; a mismatch signs the session back out.
func (api authAPI) login(role string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var creds credentials
		if err := ctx.Bind(&creds); err != nil {
			return errors.Wrap(err, "binding credentials")
		}
		if err := api.validate.Struct(&creds); err != nil {
			return err
		}

		sc := ContextSession(ctx)
		reqCtx := ctx.Request().Context()

		if _, err := sc.SignIn(reqCtx, creds.Email, creds.Password); err != nil {
			return loginError(err)
		}

		snap := sc.Snapshot()
		if snap.Profile == nil {
			_ = sc.SignOut(reqCtx)
			return echo.NewHTTPError(http.StatusInternalServerError,
				"Failed to retrieve user profile. Please try again.")
		}
		if snap.Role != role {
			_ = sc.SignOut(reqCtx)
			return echo.NewHTTPError(http.StatusForbidden,
				"Access denied. This account is not registered as a "+role+".")
		}

		redirect := ctx.QueryParam("from")
		if redirect == "" {
			redirect = roleHome(role)
		}
		return ctx.JSON(http.StatusOK, echo.Map{
			"user": echo.Map{
				"id":    snap.Session.User.ID,
				"email": snap.Session.User.Email,
			},
			"role":     role,
			"redirect": redirect,
		})
	}
}

func (api authAPI) logout(ctx echo.Context) error {
	sc := ContextSession(ctx)
	// local state is cleared regardless of the remote call's outcome
	_ = sc.SignOut(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Logged out."})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (api authAPI) forgotPassword(ctx echo.Context) error {
	var req forgotPasswordRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding request")
	}
	if err := api.validate.Struct(&req); err != nil {
		return err
	}

	sc := ContextSession(ctx)
	redirectTo := ctx.Scheme() + "://" + ctx.Request().Host + "/auth/callback"
	if err := sc.ResetPassword(ctx.Request().Context(), req.Email, redirectTo); err != nil {
		return errors.Wrap(err, "requesting password reset")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message": "Password reset email sent. Please check your inbox.",
	})
}

// loginError remaps known auth-service messages to friendlier ones.
func loginError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Email not confirmed"):
		return echo.NewHTTPError(http.StatusBadRequest,
			"Please verify your email address before logging in.")
	case strings.Contains(msg, "Invalid login credentials"):
		return echo.NewHTTPError(http.StatusBadRequest,
			"Invalid email or password. Please try again.")
	}
	return err
}

func roleHome(role string) string {
	if role == profile.RoleAdmin {
		return "/admin-panel"
	}
	return "/"
}
