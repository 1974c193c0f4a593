// Package form implements declarative field validation and the form-state
// controller driving the public pages: values, per-field errors and touched
// flags evolve through change/blur/submit events.
package form

import (
	"regexp"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/raavitutorials/webapp/core"
)

var validate = validator.New()

var (
	nameRegex    = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	aadhaarRegex = regexp.MustCompile(`^\d{12}$`)
	specialRegex = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// Rule is a single validation applied to a field. Exactly one of Tag, Other
// or Check drives the evaluation:
//
//   - Tag is evaluated with the validator engine against the raw value;
//   - Other names another field the value must equal;
//   - Check is a plain predicate for rules the engine cannot express on
//     string input, such as numeric ranges.
//
// Rules other than "required" are skipped for empty values, so an untouched
// optional field never errors.
type Rule struct {
	Tag     string
	Other   string
	Check   func(value string) bool
	Message string
}

func (r Rule) check(value string, values map[string]string) bool {
	switch {
	case r.Tag == "required":
		return validate.Var(value, "required") == nil
	case value == "":
		return true
	case r.Other != "":
		return validate.VarWithValue(value, values[r.Other], "eqfield") == nil
	case r.Check != nil:
		return r.Check(value)
	default:
		return validate.Var(value, r.Tag) == nil
	}
}

// Field is a named field and its rules, evaluated in order; the first failing
// rule's message is the field's error.
type Field struct {
	Name  string
	Rules []Rule
}

// Schema is an ordered list of fields. Order matters twice: rules within a
// field short-circuit, and ValidateAll reports errors in field order.
type Schema struct {
	Fields []Field
}

// Names lists the schema's field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, field := range s.Fields {
		names[i] = field.Name
	}
	return names
}

// Extend returns a copy of the schema with extra fields appended.
func (s Schema) Extend(fields ...Field) Schema {
	combined := make([]Field, 0, len(s.Fields)+len(fields))
	combined = append(combined, s.Fields...)
	combined = append(combined, fields...)
	return Schema{Fields: combined}
}

// ValidateField evaluates a single field against values, returning the first
// failing rule's message or "" when the field is valid or unknown.
func (s Schema) ValidateField(name string, values map[string]string) string {
	for _, field := range s.Fields {
		if field.Name != name {
			continue
		}
		for _, rule := range field.Rules {
			if !rule.check(values[name], values) {
				return rule.Message
			}
		}
		return ""
	}
	return ""
}

// ValidateAll evaluates every field, returning a message per invalid field.
func (s Schema) ValidateAll(values map[string]string) map[string]string {
	errs := make(map[string]string)
	for _, field := range s.Fields {
		if msg := s.ValidateField(field.Name, values); msg != "" {
			errs[field.Name] = msg
		}
	}
	return errs
}

// Shared field rules, reused across the page schemas.

// UsernameRules allow 3-30 characters of letters, numbers, dots and
// underscores.
func UsernameRules() []Rule {
	return []Rule{
		{Tag: "required", Message: "Username is required"},
		{Tag: "min=3", Message: "Username must be at least 3 characters"},
		{Tag: "max=30", Message: "Username must be at most 30 characters"},
		{Check: usernameCheck, Message: "Username can only contain letters, numbers, dots and underscores"},
	}
}

// PasswordRules enforce the strict complexity used for account credentials.
func PasswordRules() []Rule {
	return []Rule{
		{Tag: "required", Message: "Password is required"},
		{Tag: "min=8", Message: "Password must be at least 8 characters"},
		{Check: core.CheckPasswordComplexity, Message: "Password must contain at least one uppercase letter, one lowercase letter, and one number"},
		{Check: specialRegex.MatchString, Message: "Password must contain at least one special character"},
	}
}

// EmailRules require a syntactically valid address.
func EmailRules() []Rule {
	return []Rule{
		{Tag: "required", Message: "Email is required"},
		{Tag: "email", Message: "Invalid email address"},
	}
}

// PhoneRules require an Indian 10-digit number.
func PhoneRules(requiredMsg string) []Rule {
	return []Rule{
		{Tag: "required", Message: requiredMsg},
		{Check: core.PhoneRegex.MatchString, Message: "Phone number must be 10 digits"},
	}
}

// NameRules allow 2-50 characters of letters and spaces.
func NameRules() []Rule {
	return []Rule{
		{Tag: "required", Message: "Name is required"},
		{Tag: "min=2", Message: "Name must be at least 2 characters"},
		{Tag: "max=50", Message: "Name must be at most 50 characters"},
		{Check: nameRegex.MatchString, Message: "Name can only contain letters and spaces"},
	}
}

// AadhaarRules require a 12-digit Aadhaar number.
func AadhaarRules() []Rule {
	return []Rule{
		{Tag: "required", Message: "Aadhaar number is required"},
		{Check: aadhaarRegex.MatchString, Message: "Aadhaar number must be 12 digits"},
	}
}

func usernameCheck(value string) bool {
	return core.UsernameRegex.MatchString(value)
}

// LoginSchema validates the role login forms.
func LoginSchema() Schema {
	return Schema{Fields: []Field{
		{Name: "email", Rules: EmailRules()},
		{Name: "password", Rules: []Rule{
			{Tag: "required", Message: "Password is required"},
		}},
	}}
}

// ContactSchema validates the public contact form.
func ContactSchema() Schema {
	return Schema{Fields: []Field{
		{Name: "name", Rules: []Rule{
			{Tag: "required", Message: "Name is required"},
		}},
		{Name: "email", Rules: EmailRules()},
		{Name: "phone", Rules: PhoneRules("Phone number is required")},
		{Name: "message", Rules: []Rule{
			{Tag: "required", Message: "Message is required"},
		}},
	}}
}

// registrationSchema is the base both roles share. The registration password
// rule is looser than PasswordRules: no special character demanded.
func registrationSchema() Schema {
	return Schema{Fields: []Field{
		{Name: "name", Rules: []Rule{
			{Tag: "required", Message: "Full name is required"},
			{Tag: "min=3", Message: "Name must be at least 3 characters"},
		}},
		{Name: "email", Rules: EmailRules()},
		{Name: "phone", Rules: PhoneRules("Phone number is required")},
		{Name: "password", Rules: []Rule{
			{Tag: "required", Message: "Password is required"},
			{Tag: "min=8", Message: "Password must be at least 8 characters"},
			{Check: core.CheckPasswordComplexity, Message: "Password must contain at least one uppercase letter, one lowercase letter, and one number"},
		}},
		{Name: "confirmPassword", Rules: []Rule{
			{Other: "password", Message: "Passwords must match"},
			{Tag: "required", Message: "Confirm password is required"},
		}},
		{Name: "address", Rules: []Rule{
			{Tag: "required", Message: "Address is required"},
			{Tag: "min=10", Message: "Please enter complete address"},
		}},
	}}
}

// StudentSchema validates the student registration form.
func StudentSchema() Schema {
	return registrationSchema().Extend(
		Field{Name: "grade", Rules: []Rule{
			{Tag: "required", Message: "Grade is required"},
		}},
		Field{Name: "school", Rules: []Rule{
			{Tag: "required", Message: "School name is required"},
		}},
		Field{Name: "parentName", Rules: []Rule{
			{Tag: "required", Message: "Parent/Guardian name is required"},
		}},
		Field{Name: "parentPhone", Rules: PhoneRules("Parent/Guardian phone is required")},
	)
}

// TeacherSchema validates the teacher registration form.
func TeacherSchema() Schema {
	return registrationSchema().Extend(
		Field{Name: "qualification", Rules: []Rule{
			{Tag: "required", Message: "Qualification is required"},
		}},
		Field{Name: "experience", Rules: []Rule{
			{Tag: "required", Message: "Years of experience is required"},
			{Check: nonNegativeNumber, Message: "Experience cannot be negative"},
			{Check: atMostFifty, Message: "Please enter valid years of experience"},
		}},
		Field{Name: "subjects", Rules: []Rule{
			{Tag: "required", Message: "Subjects are required"},
		}},
	)
}

func nonNegativeNumber(value string) bool {
	n, err := strconv.Atoi(value)
	return err == nil && n >= 0
}

func atMostFifty(value string) bool {
	n, err := strconv.Atoi(value)
	return err == nil && n <= 50
}
