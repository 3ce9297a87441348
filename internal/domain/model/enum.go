package model

import (
	"database/sql/driver"
	"fmt"
)

// Enumerations are persisted by ordinal and exchanged (XML) by name.

type ordinal interface {
	~int
}

func enumName[E ordinal](names []string, v E) string {
	if int(v) < 0 || int(v) >= len(names) {
		return fmt.Sprintf("%d", int(v))
	}
	return names[v]
}

func parseEnum[E ordinal](names []string, name string) (E, bool) {
	for i, n := range names {
		if n == name {
			return E(i), true
		}
	}
	return 0, false
}

func scanOrdinal[E ordinal](names []string, dst *E, src any) error {
	var n int64
	switch v := src.(type) {
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int:
		n = int64(v)
	case []byte:
		if _, err := fmt.Sscan(string(v), &n); err != nil {
			return err
		}
	case string:
		if _, err := fmt.Sscan(v, &n); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot scan %T into enum", src)
	}
	if n < 0 || int(n) >= len(names) {
		return fmt.Errorf("ordinal %d out of range", n)
	}
	*dst = E(n)
	return nil
}

type CourseRegistrationType int

const (
	RegistrationStudent CourseRegistrationType = iota
	RegistrationInstructor
)

var courseRegistrationTypeNames = []string{"STUDENT", "INSTRUCTOR"}

func (t CourseRegistrationType) String() string               { return enumName(courseRegistrationTypeNames, t) }
func (t CourseRegistrationType) Value() (driver.Value, error) { return int64(t), nil }
func (t *CourseRegistrationType) Scan(src any) error {
	return scanOrdinal(courseRegistrationTypeNames, t, src)
}

// AtLeast reports whether t grants the privileges of level.
func (t CourseRegistrationType) AtLeast(level CourseRegistrationType) bool { return t >= level }

type ProblemType int

const (
	ProblemTypeJavaMethod ProblemType = iota
	ProblemTypePythonFunction
	ProblemTypeCFunction
	ProblemTypeCProgram
)

var problemTypeNames = []string{"JAVA_METHOD", "PYTHON_FUNCTION", "C_FUNCTION", "C_PROGRAM"}

func (t ProblemType) String() string                   { return enumName(problemTypeNames, t) }
func (t ProblemType) Value() (driver.Value, error)     { return int64(t), nil }
func (t *ProblemType) Scan(src any) error              { return scanOrdinal(problemTypeNames, t, src) }
func ParseProblemType(name string) (ProblemType, bool) { return parseEnum[ProblemType](problemTypeNames, name) }

type ProblemLicense int

const (
	LicenseNotRedistributable ProblemLicense = iota
	LicenseCCAttribShareAlike30
	LicenseGNUFDL13NoExceptions
)

var problemLicenseNames = []string{"NOT_REDISTRIBUTABLE", "CC_ATTRIB_SHAREALIKE_3_0", "GNU_FDL_1_3_NO_EXCEPTIONS"}

func (l ProblemLicense) String() string               { return enumName(problemLicenseNames, l) }
func (l ProblemLicense) Value() (driver.Value, error) { return int64(l), nil }
func (l *ProblemLicense) Scan(src any) error          { return scanOrdinal(problemLicenseNames, l, src) }
func ParseProblemLicense(name string) (ProblemLicense, bool) {
	return parseEnum[ProblemLicense](problemLicenseNames, name)
}

type EventType int

const (
	EventChange EventType = iota
	EventSubmit
	EventLogin
	EventLogout
)

var eventTypeNames = []string{"CHANGE", "SUBMIT", "LOGIN", "LOGOUT"}

func (t EventType) String() string               { return enumName(eventTypeNames, t) }
func (t EventType) Value() (driver.Value, error) { return int64(t), nil }
func (t *EventType) Scan(src any) error          { return scanOrdinal(eventTypeNames, t, src) }

type ChangeType int

const (
	ChangeInsertText ChangeType = iota
	ChangeInsertLines
	ChangeRemoveText
	ChangeRemoveLines
	ChangeFullText
)

var changeTypeNames = []string{"INSERT_TEXT", "INSERT_LINES", "REMOVE_TEXT", "REMOVE_LINES", "FULL_TEXT"}

func (t ChangeType) String() string               { return enumName(changeTypeNames, t) }
func (t ChangeType) Value() (driver.Value, error) { return int64(t), nil }
func (t *ChangeType) Scan(src any) error          { return scanOrdinal(changeTypeNames, t, src) }
func ParseChangeType(name string) (ChangeType, bool) {
	return parseEnum[ChangeType](changeTypeNames, name)
}

type SubmissionStatus int

const (
	SubmissionNotStarted SubmissionStatus = iota
	SubmissionStarted
	SubmissionTestsPassed
	SubmissionTestsFailed
	SubmissionCompileError
	SubmissionBuildError
)

var submissionStatusNames = []string{"NOT_STARTED", "STARTED", "TESTS_PASSED", "TESTS_FAILED", "COMPILE_ERROR", "BUILD_ERROR"}

func (s SubmissionStatus) String() string               { return enumName(submissionStatusNames, s) }
func (s SubmissionStatus) Value() (driver.Value, error) { return int64(s), nil }
func (s *SubmissionStatus) Scan(src any) error          { return scanOrdinal(submissionStatusNames, s, src) }
func ParseSubmissionStatus(name string) (SubmissionStatus, bool) {
	return parseEnum[SubmissionStatus](submissionStatusNames, name)
}

type TestOutcome int

const (
	OutcomePassed TestOutcome = iota
	OutcomeFailedAssertion
	OutcomeFailedWithException
	OutcomeFailedFromTimeout
	OutcomeFailedFromSecurityException
	OutcomeInternalError
)

var testOutcomeNames = []string{
	"PASSED", "FAILED_ASSERTION", "FAILED_WITH_EXCEPTION",
	"FAILED_FROM_TIMEOUT", "FAILED_BY_SECURITY_MANAGER", "INTERNAL_ERROR",
}

func (o TestOutcome) String() string               { return enumName(testOutcomeNames, o) }
func (o TestOutcome) Value() (driver.Value, error) { return int64(o), nil }
func (o *TestOutcome) Scan(src any) error          { return scanOrdinal(testOutcomeNames, o, src) }
func ParseTestOutcome(name string) (TestOutcome, bool) {
	return parseEnum[TestOutcome](testOutcomeNames, name)
}
