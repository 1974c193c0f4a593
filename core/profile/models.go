package profile

import "time"

// Account roles. The role of an account is the "type" column of its profile
// row; an account whose profile lacks the column carries no role and is
// treated as unauthorized everywhere a role is demanded.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// SubjectSelection is one subject a student enrolled for.
type SubjectSelection struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// ParentInfo groups the guardian details collected at registration.
type ParentInfo struct {
	FatherName       string `json:"father_name,omitempty"`
	FatherPhone      string `json:"father_phone,omitempty"`
	FatherOccupation string `json:"father_occupation,omitempty"`
	MotherName       string `json:"mother_name,omitempty"`
	MotherPhone      string `json:"mother_phone,omitempty"`
	MotherOccupation string `json:"mother_occupation,omitempty"`
}

// EmergencyContact is who to reach when the student's parents cannot be.
type EmergencyContact struct {
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Relation string `json:"relation,omitempty"`
}

// Profile is a row of the profiles table. The row is provisioned empty when
// the account is created and enriched by the registration workflow; most
// fields therefore apply to one role only and stay zero for the other.
type Profile struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type,omitempty"`

	Phone   string `json:"phone,omitempty"`
	Gender  string `json:"gender,omitempty"`
	Address string `json:"address,omitempty"`

	// student enrichment
	CurrentClass     string             `json:"current_class,omitempty"`
	Board            string             `json:"board,omitempty"`
	School           string             `json:"school,omitempty"`
	Medium           string             `json:"medium,omitempty"`
	SelectedSubjects []SubjectSelection `json:"selected_subjects,omitempty"`
	BloodGroup       string             `json:"blood_group,omitempty"`
	Nationality      string             `json:"nationality,omitempty"`
	Religion         string             `json:"religion,omitempty"`
	Category         string             `json:"category,omitempty"`
	Aadhaar          string             `json:"aadhaar,omitempty"`
	ParentInfo       *ParentInfo        `json:"parent_info,omitempty"`
	EmergencyContact *EmergencyContact  `json:"emergency_contact,omitempty"`

	// teacher enrichment
	Qualification string   `json:"qualification,omitempty"`
	Experience    int      `json:"experience,omitempty"`
	Subjects      []string `json:"subjects,omitempty"`
	TimeAndDays   string   `json:"time_and_days,omitempty"`

	// DocumentURLs maps document field names to public URLs; a nil entry
	// records an upload that failed without sinking the registration.
	DocumentURLs map[string]*string `json:"document_urls,omitempty"`

	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Role returns the account role recorded on the profile, "" when none is.
func (p *Profile) Role() string {
	if p == nil {
		return ""
	}
	return p.Type
}

// IsStudent reports whether the profile belongs to a student account.
func (p *Profile) IsStudent() bool { return p.Role() == RoleStudent }

// IsTeacher reports whether the profile belongs to a teacher account.
func (p *Profile) IsTeacher() bool { return p.Role() == RoleTeacher }

// IsAdmin reports whether the profile belongs to an admin account.
func (p *Profile) IsAdmin() bool { return p.Role() == RoleAdmin }
