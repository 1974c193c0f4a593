package echoweb

import (
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/raavitutorials/webapp/core"
	"github.com/raavitutorials/webapp/core/form"
	"github.com/raavitutorials/webapp/core/profile"
	"github.com/raavitutorials/webapp/core/register"
)

// registerAPI serves the registration pages. Submissions arrive as multipart
// forms: text fields plus the document files, uploaded under their form
// field names.
type registerAPI struct {
	conf *core.Config
	svc  *register.Service
}

// registrationPage serves the form shape for a role's registration page.
func (api registerAPI) registrationPage(role string, schema func() form.Schema) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, echo.Map{
			"page":   role + "-registration",
			"fields": schema().Names(),
		})
	}
}

func (api registerAPI) registerStudent(ctx echo.Context) error {
	values, docs, closeDocs, err := parseRegistrationForm(ctx)
	if err != nil {
		return err
	}
	defer closeDocs()

	if errs := form.StudentSchema().ValidateAll(values); len(errs) > 0 {
		return validationError(errs)
	}

	reg := register.StudentRegistration{
		Person:      personFrom(values),
		Gender:      values["gender"],
		Grade:       values["grade"],
		Board:       values["board"],
		School:      values["school"],
		Medium:      values["medium"],
		Subjects:    splitList(values["subjects"]),
		Level:       values["level"],
		BloodGroup:  values["bloodGroup"],
		Nationality: values["nationality"],
		Religion:    values["religion"],
		Category:    values["category"],
		Aadhaar:     values["aadhaar"],
		ParentInfo: profile.ParentInfo{
			FatherName:       values["fatherName"],
			FatherPhone:      values["fatherPhone"],
			FatherOccupation: values["fatherOccupation"],
			MotherName:       values["motherName"],
			MotherPhone:      values["motherPhone"],
			MotherOccupation: values["motherOccupation"],
		},
		EmergencyContact: profile.EmergencyContact{
			Name:     values["emergencyContactName"],
			Phone:    values["emergencyContactPhone"],
			Relation: values["emergencyContactRelation"],
		},
		Documents: docs,
	}

	res, err := api.svc.RegisterStudent(ctx.Request().Context(), reg)
	if err != nil {
		return err
	}
	return api.registered(ctx, res, "/student-login")
}

func (api registerAPI) registerTeacher(ctx echo.Context) error {
	values, docs, closeDocs, err := parseRegistrationForm(ctx)
	if err != nil {
		return err
	}
	defer closeDocs()

	if errs := form.TeacherSchema().ValidateAll(values); len(errs) > 0 {
		return validationError(errs)
	}
	// the schema guarantees the field is numeric
	experience, _ := strconv.Atoi(values["experience"])

	reg := register.TeacherRegistration{
		Person:        personFrom(values),
		Qualification: values["qualification"],
		Experience:    experience,
		Subjects:      splitList(values["subjects"]),
		TimeAndDays:   values["timeAndDays"],
		Documents:     docs,
	}

	res, err := api.svc.RegisterTeacher(ctx.Request().Context(), reg)
	if err != nil {
		return err
	}
	return api.registered(ctx, res, "/teacher-login")
}

func (api registerAPI) registered(ctx echo.Context, res *register.Result, loginPath string) error {
	return ctx.JSON(http.StatusCreated, echo.Map{
		"message":       "Registration successful! Please check your email to verify your account.",
		"user_id":       res.UserID,
		"document_urls": res.DocumentURLs,
		"redirect":      loginPath,
		"redirect_delay_seconds": int(api.conf.Registration.LoginRedirectDelay.Seconds()),
	})
}

// parseRegistrationForm flattens the multipart form into a value map and the
// opened document files, in stable field order. closeDocs must be called once
// the documents have been consumed.
func parseRegistrationForm(ctx echo.Context) (map[string]string, []register.Document, func(), error) {
	mform, err := ctx.MultipartForm()
	if err != nil {
		return nil, nil, nil, echo.NewHTTPError(http.StatusBadRequest, "expected a multipart form")
	}

	values := make(map[string]string, len(mform.Value))
	for field, vals := range mform.Value {
		if len(vals) > 0 {
			values[field] = vals[0]
		}
	}

	fields := make([]string, 0, len(mform.File))
	for field := range mform.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var docs []register.Document
	var opened []multipart.File
	closeDocs := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	for _, field := range fields {
		headers := mform.File[field]
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		f, err := fh.Open()
		if err != nil {
			closeDocs()
			return nil, nil, nil, errors.Wrapf(err, "opening uploaded file %s", field)
		}
		opened = append(opened, f)
		docs = append(docs, register.Document{
			Field:       field,
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}
	return values, docs, closeDocs, nil
}

func personFrom(values map[string]string) register.Person {
	return register.Person{
		Name:     values["name"],
		Email:    core.CleanString(values["email"], true),
		Password: values["password"],
		Phone:    values["phone"],
		Address:  values["address"],
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
