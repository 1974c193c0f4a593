package core

import (
	"reflect"
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	phoneTag   = "phone_in"
	phoneText  = "phone number must be 10 digits"
	PhoneRegex = regexp.MustCompile(`^[0-9]{10}$`)

	passwordTag  = "password_"
	passwordText = "password must contain at least one uppercase letter, one lowercase letter, and one number"

	usernameTag   = "username_"
	usernameText  = "only letters, numbers, dots and underscores are allowed"
	UsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	RegisterCustomTranslation(validate, translator, phoneTag, phoneText)

	_ = validate.RegisterValidation(passwordTag, passwordValidation)
	RegisterCustomTranslation(validate, translator, passwordTag, passwordText)

	_ = validate.RegisterValidation(usernameTag, usernameValidation)
	RegisterCustomTranslation(validate, translator, usernameTag, usernameText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// phoneValidation only allows 10-digit phone numbers.
func phoneValidation(fl validator.FieldLevel) bool {
	return PhoneRegex.MatchString(fl.Field().String())
}

// passwordValidation requires at least one uppercase letter, one lowercase
// letter and one digit. Length is enforced separately with `min`.
func passwordValidation(fl validator.FieldLevel) bool {
	return CheckPasswordComplexity(fl.Field().String())
}

// usernameValidation only allows letters, numbers, dots and underscores.
func usernameValidation(fl validator.FieldLevel) bool {
	return UsernameRegex.MatchString(fl.Field().String())
}

// CheckPasswordComplexity reports whether pwd mixes upper, lower and digits.
func CheckPasswordComplexity(pwd string) bool {
	var upper, lower, digit bool
	for _, r := range pwd {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}
