package repository

import (
	"database/sql"
	"unicode/utf8"

	"cloudcoder/internal/domain/model"
	"cloudcoder/internal/platform/database"
)

const (
	usersTable               = "cc_users"
	termsTable               = "cc_terms"
	coursesTable             = "cc_courses"
	courseRegistrationsTable = "cc_course_registrations"
	problemsTable            = "cc_problems"
	testCasesTable           = "cc_test_cases"
	eventsTable              = "cc_events"
	changesTable             = "cc_changes"
	submissionReceiptsTable  = "cc_submission_receipts"
	testResultsTable         = "cc_test_results"
	configurationTable       = "cc_configuration_settings"
)

var userTable = &database.Table[model.User]{
	Name: usersTable,
	Key:  "id",
	Columns: []database.Column[model.User]{
		{Name: "id", Ref: func(u *model.User) any { return &u.ID }},
		{Name: "username", Ref: func(u *model.User) any { return &u.Username }},
		{Name: "password_hash", Ref: func(u *model.User) any { return &u.PasswordHash }},
	},
}

var termTable = &database.Table[model.Term]{
	Name: termsTable,
	Key:  "id",
	Columns: []database.Column[model.Term]{
		{Name: "id", Ref: func(t *model.Term) any { return &t.ID }},
		{Name: "name", Ref: func(t *model.Term) any { return &t.Name }},
		{Name: "seq", Ref: func(t *model.Term) any { return &t.Seq }},
	},
}

var courseTable = &database.Table[model.Course]{
	Name: coursesTable,
	Key:  "id",
	Columns: []database.Column[model.Course]{
		{Name: "id", Ref: func(c *model.Course) any { return &c.ID }},
		{Name: "name", Ref: func(c *model.Course) any { return &c.Name }},
		{Name: "title", Ref: func(c *model.Course) any { return &c.Title }},
		{Name: "url", Ref: func(c *model.Course) any { return &c.URL }},
		{Name: "term_id", Ref: func(c *model.Course) any { return &c.TermID }},
		{Name: "year", Ref: func(c *model.Course) any { return &c.Year }},
	},
}

var registrationTable = &database.Table[model.CourseRegistration]{
	Name: courseRegistrationsTable,
	Key:  "id",
	Columns: []database.Column[model.CourseRegistration]{
		{Name: "id", Ref: func(r *model.CourseRegistration) any { return &r.ID }},
		{Name: "course_id", Ref: func(r *model.CourseRegistration) any { return &r.CourseID }},
		{Name: "user_id", Ref: func(r *model.CourseRegistration) any { return &r.UserID }},
		{Name: "registration_type", Ref: func(r *model.CourseRegistration) any { return &r.RegistrationType }},
		{Name: "section", Ref: func(r *model.CourseRegistration) any { return &r.Section }},
	},
}

var problemTable = &database.Table[model.Problem]{
	Name: problemsTable,
	Key:  "problem_id",
	Columns: []database.Column[model.Problem]{
		{Name: "problem_id", Ref: func(p *model.Problem) any { return &p.ProblemID }},
		{Name: "course_id", Ref: func(p *model.Problem) any { return &p.CourseID }},
		{Name: "when_assigned", Ref: func(p *model.Problem) any { return &p.WhenAssigned }},
		{Name: "when_due", Ref: func(p *model.Problem) any { return &p.WhenDue }},
		{Name: "visible", Ref: func(p *model.Problem) any { return &p.Visible }},
		{Name: "problem_type", Ref: func(p *model.Problem) any { return &p.ProblemType }},
		{Name: "testname", Ref: func(p *model.Problem) any { return &p.Testname }},
		{Name: "brief_description", Ref: func(p *model.Problem) any { return &p.BriefDescription }},
		{Name: "description", Ref: func(p *model.Problem) any { return &p.Description }},
		{Name: "skeleton", Ref: func(p *model.Problem) any { return &p.Skeleton }},
		{Name: "schema_version", Ref: func(p *model.Problem) any { return &p.SchemaVersion }},
		{Name: "author_name", Ref: func(p *model.Problem) any { return &p.AuthorName }},
		{Name: "author_email", Ref: func(p *model.Problem) any { return &p.AuthorEmail }},
		{Name: "author_website", Ref: func(p *model.Problem) any { return &p.AuthorWebsite }},
		{Name: "timestamp_utc", Ref: func(p *model.Problem) any { return &p.TimestampUTC }},
		{Name: "license", Ref: func(p *model.Problem) any { return &p.License }},
	},
}

var testCaseTable = &database.Table[model.TestCase]{
	Name: testCasesTable,
	Key:  "test_case_id",
	Columns: []database.Column[model.TestCase]{
		{Name: "test_case_id", Ref: func(tc *model.TestCase) any { return &tc.TestCaseID }},
		{Name: "problem_id", Ref: func(tc *model.TestCase) any { return &tc.ProblemID }},
		{Name: "test_case_name", Ref: func(tc *model.TestCase) any { return &tc.TestCaseName }},
		{Name: "input", Ref: func(tc *model.TestCase) any { return &tc.Input }},
		{Name: "output", Ref: func(tc *model.TestCase) any { return &tc.Output }},
		{Name: "secret", Ref: func(tc *model.TestCase) any { return &tc.Secret }},
	},
}

var eventTable = &database.Table[model.Event]{
	Name: eventsTable,
	Key:  "id",
	Columns: []database.Column[model.Event]{
		{Name: "id", Ref: func(e *model.Event) any { return &e.ID }},
		{Name: "user_id", Ref: func(e *model.Event) any { return &e.UserID }},
		{Name: "problem_id", Ref: func(e *model.Event) any { return &e.ProblemID }},
		{Name: "type", Ref: func(e *model.Event) any { return &e.Type }},
		{Name: "timestamp", Ref: func(e *model.Event) any { return &e.Timestamp }},
	},
}

// changeRow carries a change's text split over its two storage columns.
type changeRow struct {
	model.Change
	textShort sql.NullString
	textLong  sql.NullString
}

func newChangeRow(c *model.Change) *changeRow {
	row := &changeRow{Change: *c}
	if utf8.RuneCountInString(c.Text) < model.MaxTextLenInRow {
		row.textShort = sql.NullString{String: c.Text, Valid: true}
	} else {
		row.textLong = sql.NullString{String: c.Text, Valid: true}
	}
	return row
}

func (r *changeRow) change() *model.Change {
	c := r.Change
	if r.textShort.Valid {
		c.Text = r.textShort.String
	} else {
		c.Text = r.textLong.String
	}
	return &c
}

var changeTable = &database.Table[changeRow]{
	Name: changesTable,
	Columns: []database.Column[changeRow]{
		{Name: "event_id", Ref: func(c *changeRow) any { return &c.EventID }},
		{Name: "type", Ref: func(c *changeRow) any { return &c.Type }},
		{Name: "start_row", Ref: func(c *changeRow) any { return &c.StartRow }},
		{Name: "end_row", Ref: func(c *changeRow) any { return &c.EndRow }},
		{Name: "start_column", Ref: func(c *changeRow) any { return &c.StartColumn }},
		{Name: "end_column", Ref: func(c *changeRow) any { return &c.EndColumn }},
		{Name: "text_short", Ref: func(c *changeRow) any { return &c.textShort }},
		{Name: "text_long", Ref: func(c *changeRow) any { return &c.textLong }},
	},
}

var receiptTable = &database.Table[model.SubmissionReceipt]{
	Name: submissionReceiptsTable,
	Columns: []database.Column[model.SubmissionReceipt]{
		{Name: "event_id", Ref: func(r *model.SubmissionReceipt) any { return &r.EventID }},
		{Name: "last_edit_event_id", Ref: func(r *model.SubmissionReceipt) any { return &r.LastEditEventID }},
		{Name: "status", Ref: func(r *model.SubmissionReceipt) any { return &r.Status }},
		{Name: "num_tests_attempted", Ref: func(r *model.SubmissionReceipt) any { return &r.NumTestsAttempted }},
		{Name: "num_tests_passed", Ref: func(r *model.SubmissionReceipt) any { return &r.NumTestsPassed }},
	},
}

var testResultTable = &database.Table[model.TestResult]{
	Name: testResultsTable,
	Key:  "id",
	Columns: []database.Column[model.TestResult]{
		{Name: "id", Ref: func(r *model.TestResult) any { return &r.ID }},
		{Name: "submission_receipt_event_id", Ref: func(r *model.TestResult) any { return &r.SubmissionReceiptEventID }},
		{Name: "test_outcome", Ref: func(r *model.TestResult) any { return &r.Outcome }},
		{Name: "message", Ref: func(r *model.TestResult) any { return &r.Message }},
		{Name: "stdout", Ref: func(r *model.TestResult) any { return &r.Stdout }},
		{Name: "stderr", Ref: func(r *model.TestResult) any { return &r.Stderr }},
	},
}

var settingTable = &database.Table[model.ConfigurationSetting]{
	Name: configurationTable,
	Columns: []database.Column[model.ConfigurationSetting]{
		{Name: "name", Ref: func(s *model.ConfigurationSetting) any { return &s.Name }},
		{Name: "value", Ref: func(s *model.ConfigurationSetting) any { return &s.Value }},
	},
}

// loadJoined scans a row produced by selecting several tables' columns in
// sequence.
func loadJoined(s database.Scanner, refs ...[]any) error {
	var all []any
	for _, r := range refs {
		all = append(all, r...)
	}
	return s.Scan(all...)
}
