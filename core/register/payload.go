package register

import (
	"io"

	"github.com/raavitutorials/webapp/core/profile"
)

// Document is one file submitted with a registration. Field is the logical
// name ("photo", "resume") the file is recorded under.
type Document struct {
	Field       string
	Filename    string
	ContentType string
	Content     io.Reader
}

// Person carries the fields every registration shares.
type Person struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

// StudentRegistration is a validated student sign-up payload.
type StudentRegistration struct {
	Person

	Gender           string
	Grade            string
	Board            string
	School           string
	Medium           string
	Subjects         []string
	Level            string
	BloodGroup       string
	Nationality      string
	Religion         string
	Category         string
	Aadhaar          string
	ParentInfo       profile.ParentInfo
	EmergencyContact profile.EmergencyContact

	Documents []Document
}

// TeacherRegistration is a validated teacher sign-up payload.
type TeacherRegistration struct {
	Person

	Qualification string
	Experience    int
	Subjects      []string
	TimeAndDays   string

	Documents []Document
}

// Result is what a successful registration hands back.
type Result struct {
	UserID string
	// ConfirmationRequired is true when the auth service demands the email
	// be verified before the first sign-in.
	ConfirmationRequired bool
	// DocumentURLs maps each submitted document field to its public URL;
	// nil entries mark uploads that failed.
	DocumentURLs map[string]*string
}
