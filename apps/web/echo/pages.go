package echoweb

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/raavitutorials/webapp/core"
	"github.com/raavitutorials/webapp/core/form"
	"github.com/raavitutorials/webapp/core/profile"
)

// pagesAPI serves the public pages and the contact form.
type pagesAPI struct {
	conf       *core.Config
	emailSvc   core.EmailService
	profileSvc *profile.Service
}

func (api pagesAPI) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"page": "home",
		"app":  api.conf.AppName,
	})
}

func (api pagesAPI) about(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"page": "about",
		"app":  api.conf.AppName,
	})
}

func (api pagesAPI) contactInfo(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"page":  "contact",
		"email": api.conf.ContactEmail,
	})
}

func (api pagesAPI) unauthorized(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"page":    "unauthorized",
		"message": "You are not authorized to view this page.",
	})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

func (api pagesAPI) submitContact(ctx echo.Context) error {
	var req contactRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.Wrap(err, "binding contact request")
	}

	values := map[string]string{
		"name":    req.Name,
		"email":   req.Email,
		"phone":   req.Phone,
		"message": req.Message,
	}
	if errs := form.ContactSchema().ValidateAll(values); len(errs) > 0 {
		return validationError(errs)
	}

	api.emailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: api.conf.ContactEmail}},
		Subject: "New contact message from " + req.Name,
		TextContent: fmt.Sprintf(
			"Name: %s\nEmail: %s\nPhone: %s\n\n%s",
			req.Name, req.Email, req.Phone, req.Message,
		),
	})

	return ctx.JSON(http.StatusOK, echo.Map{
		"message": "Thank you for contacting us! We will get back to you soon.",
	})
}

// authCallback lands email-verification and password-recovery links. It
// points the visitor at the login page matching their account.
func (api pagesAPI) authCallback(ctx echo.Context) error {
	sc := ContextSession(ctx)
	snap := sc.Snapshot()
	if snap.Session == nil || snap.Session.User == nil {
		return ctx.JSON(http.StatusOK, echo.Map{
			"message":  "Authentication error. Please try logging in again.",
			"redirect": "/student-login",
		})
	}

	redirect := "/"
	switch snap.Role {
	case profile.RoleStudent:
		redirect = "/student-login"
	case profile.RoleTeacher:
		redirect = "/teacher-login"
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"message":  "Email verified successfully! Please log in to continue.",
		"redirect": redirect,
	})
}

// validationError renders a schema error map as a core.ValidationError.
func validationError(errs map[string]string) error {
	fields := make([]core.FieldError, 0, len(errs))
	for field, msg := range errs {
		fields = append(fields, core.FieldError{Field: field, Error: msg})
	}
	return core.NewValidationError(errors.New("validation failed"), fields...)
}
