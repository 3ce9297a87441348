package model

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Not exposed
}

type Term struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Seq  int    `json:"seq"`
}

type Course struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	TermID int    `json:"term_id"`
	Year   int    `json:"year"`
}

type CourseRegistration struct {
	ID               int                    `json:"id"`
	CourseID         int                    `json:"course_id"`
	UserID           int                    `json:"user_id"`
	RegistrationType CourseRegistrationType `json:"registration_type"`
	Section          int                    `json:"section"`
}

// CourseAndRegistration is one course a user is registered in.
type CourseAndRegistration struct {
	Course       Course             `json:"course"`
	Term         Term               `json:"term"`
	Registration CourseRegistration `json:"registration"`
}

type ConfigurationSetting struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Well-known configuration setting names.
const (
	SettingInstitutionName = "pub.text.institutionName"
)
