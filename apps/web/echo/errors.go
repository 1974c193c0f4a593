package echoweb

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/raavitutorials/webapp/core"
	"github.com/raavitutorials/webapp/core/register"
	"github.com/raavitutorials/webapp/core/session"
	"github.com/raavitutorials/webapp/services/supabase"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	errHTTPForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")

	registrationFailedMsg = "Registration failed. Please try again."
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows
// how to render the application's error taxonomy.
// signalShutdown is called whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message

		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = echo.Map{"errors": fldErrs}

		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = echo.Map{"errors": fldErrs}
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest

		case *register.AuthError:
			code = http.StatusBadRequest
			message = origErr.Msg

		case *register.ProfileTimeoutError:
			// the account exists but its profile never showed up; the user
			// should verify their email and retry later
			code = http.StatusServiceUnavailable
			message = origErr.Error()

		case *register.ProfileUpdateError:
			code = http.StatusInternalServerError
			message = registrationFailedMsg
			logger.Error(registrationFailedMsg, origErr)

		case *session.NotSignedInError:
			code = http.StatusUnauthorized
			message = origErr.Error()

		case *supabase.Error:
			code = origErr.Status
			message = origErr.Message

		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg
			logger.Error(msg, errors.Wrap(err, msg))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
