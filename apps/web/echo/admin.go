package echoweb

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/raavitutorials/webapp/core/profile"
)

// adminAPI serves the role-gated admin panel.
type adminAPI struct {
	profileSvc *profile.Service
}

// panel lists the student and teacher accounts for review. An optional
// ?limit= query bounds each listing.
func (api adminAPI) panel(ctx echo.Context) error {
	sc := ContextSession(ctx)
	token := sc.Token()
	reqCtx := ctx.Request().Context()

	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))

	students, err := api.profileSvc.ListByRole(reqCtx, token, profile.RoleStudent, limit)
	if err != nil {
		return errors.Wrap(err, "listing students")
	}
	teachers, err := api.profileSvc.ListByRole(reqCtx, token, profile.RoleTeacher, limit)
	if err != nil {
		return errors.Wrap(err, "listing teachers")
	}

	return ctx.JSON(http.StatusOK, echo.Map{
		"students": students,
		"teachers": teachers,
		"counts": echo.Map{
			"students": len(students),
			"teachers": len(teachers),
		},
	})
}
