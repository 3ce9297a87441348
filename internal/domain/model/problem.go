package model

// ProblemData is the portable part of a problem: everything that is
// exchanged through the XML interchange format.
type ProblemData struct {
	ProblemType      ProblemType    `json:"problem_type"`
	Testname         string         `json:"testname"`
	BriefDescription string         `json:"brief_description"`
	Description      string         `json:"description"`
	Skeleton         string         `json:"skeleton"`
	SchemaVersion    int            `json:"schema_version"`
	AuthorName       string         `json:"author_name"`
	AuthorEmail      string         `json:"author_email"`
	AuthorWebsite    string         `json:"author_website"`
	TimestampUTC     int64          `json:"timestamp_utc"`
	License          ProblemLicense `json:"license"`
}

// Problem is an exercise in a course. ProblemID is assigned by the store on
// insert; zero means the problem has not been stored yet.
type Problem struct {
	ProblemID    int   `json:"problem_id"`
	CourseID     int   `json:"course_id"`
	WhenAssigned int64 `json:"when_assigned"` // milliseconds since epoch
	WhenDue      int64 `json:"when_due"`      // milliseconds since epoch
	Visible      bool  `json:"visible"`
	ProblemData
}

// TestCaseData is the portable part of a test case.
type TestCaseData struct {
	TestCaseName string `json:"test_case_name"`
	Input        string `json:"input"`
	Output       string `json:"output"`
	Secret       bool   `json:"secret"`
}

type TestCase struct {
	TestCaseID int `json:"test_case_id"`
	ProblemID  int `json:"problem_id"`
	TestCaseData
}

type ProblemAndTestCaseList struct {
	Problem   Problem    `json:"problem"`
	TestCases []TestCase `json:"test_cases"`
}

// ProblemAndTestCaseData is the unit of XML interchange.
type ProblemAndTestCaseData struct {
	Problem   ProblemData
	TestCases []TestCaseData
}

// Data strips store identities from the bundle.
func (l *ProblemAndTestCaseList) Data() *ProblemAndTestCaseData {
	data := &ProblemAndTestCaseData{Problem: l.Problem.ProblemData}
	for _, tc := range l.TestCases {
		data.TestCases = append(data.TestCases, tc.TestCaseData)
	}
	return data
}

// NewProblemAndTestCaseList builds an unsaved bundle for courseID from interchange data.
func NewProblemAndTestCaseList(courseID int, data *ProblemAndTestCaseData) *ProblemAndTestCaseList {
	list := &ProblemAndTestCaseList{
		Problem: Problem{CourseID: courseID, ProblemData: data.Problem},
	}
	for _, tcd := range data.TestCases {
		list.TestCases = append(list.TestCases, TestCase{TestCaseData: tcd})
	}
	return list
}

type ProblemSummary struct {
	Problem                 Problem `json:"problem"`
	NumStudents             int     `json:"num_students"`
	NumStarted              int     `json:"num_started"`
	NumPassedAtLeastOneTest int     `json:"num_passed_at_least_one_test"`
	NumCompleted            int     `json:"num_completed"`
}

type ProblemAndSubmissionReceipt struct {
	Problem Problem            `json:"problem"`
	Receipt *SubmissionReceipt `json:"receipt,omitempty"` // nil if the user has not started
}
