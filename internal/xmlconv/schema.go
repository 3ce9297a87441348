package xmlconv

import (
	"fmt"
	"strconv"
	"strings"

	"cloudcoder/internal/domain/model"
)

// Value is a field value. It is one of String, Int, Long, Bool or Enum.
type Value interface {
	text() string
}

type (
	String string
	Int    int
	Long   int64
	Bool   bool
	// Enum carries an enumeration member by name.
	Enum string
)

func (v String) text() string { return string(v) }
func (v Int) text() string    { return strconv.Itoa(int(v)) }
func (v Long) text() string   { return strconv.FormatInt(int64(v), 10) }
func (v Bool) text() string   { return strconv.FormatBool(bool(v)) }
func (v Enum) text() string   { return string(v) }

// Field is one entry of a Schema: an element name, how to read the field's
// Value out of an E and how to decode element text back into it.
type Field[E any] struct {
	Name string
	// Literal string fields are written as CDATA.
	Literal bool
	get     func(*E) Value
	decode  func(*E, string) error
}

// Schema is the ordered field list of one element type.
type Schema[E any] []Field[E]

func (s Schema[E]) field(name string) *Field[E] {
	for i := range s {
		if s[i].Name == name {
			return &s[i]
		}
	}
	return nil
}

func StringField[E any](name string, literal bool, ref func(*E) *string) Field[E] {
	return Field[E]{
		Name:    name,
		Literal: literal,
		get:     func(e *E) Value { return String(*ref(e)) },
		decode: func(e *E, s string) error {
			*ref(e) = s
			return nil
		},
	}
}

func IntField[E any](name string, ref func(*E) *int) Field[E] {
	return Field[E]{
		Name: name,
		get:  func(e *E) Value { return Int(*ref(e)) },
		decode: func(e *E, s string) error {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("could not convert %q to a number: %w", s, err)
			}
			*ref(e) = n
			return nil
		},
	}
}

func LongField[E any](name string, ref func(*E) *int64) Field[E] {
	return Field[E]{
		Name: name,
		get:  func(e *E) Value { return Long(*ref(e)) },
		decode: func(e *E, s string) error {
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return fmt.Errorf("could not convert %q to a number: %w", s, err)
			}
			*ref(e) = n
			return nil
		},
	}
}

// BoolField decodes "true" in any case as true and anything else as false.
func BoolField[E any](name string, ref func(*E) *bool) Field[E] {
	return Field[E]{
		Name: name,
		get:  func(e *E) Value { return Bool(*ref(e)) },
		decode: func(e *E, s string) error {
			*ref(e) = strings.EqualFold(strings.TrimSpace(s), "true")
			return nil
		},
	}
}

type enumeration interface {
	~int
	String() string
}

func EnumField[E any, T enumeration](name string, ref func(*E) *T, parse func(string) (T, bool)) Field[E] {
	return Field[E]{
		Name: name,
		get:  func(e *E) Value { return Enum((*ref(e)).String()) },
		decode: func(e *E, s string) error {
			v, ok := parse(strings.TrimSpace(s))
			if !ok {
				return fmt.Errorf("value %q is not a member of %s", strings.TrimSpace(s), name)
			}
			*ref(e) = v
			return nil
		},
	}
}

var ProblemDataSchema = Schema[model.ProblemData]{
	EnumField("problem_type", func(p *model.ProblemData) *model.ProblemType { return &p.ProblemType }, model.ParseProblemType),
	StringField("testname", false, func(p *model.ProblemData) *string { return &p.Testname }),
	StringField("brief_description", false, func(p *model.ProblemData) *string { return &p.BriefDescription }),
	StringField("description", true, func(p *model.ProblemData) *string { return &p.Description }),
	StringField("skeleton", true, func(p *model.ProblemData) *string { return &p.Skeleton }),
	IntField("schema_version", func(p *model.ProblemData) *int { return &p.SchemaVersion }),
	StringField("author_name", false, func(p *model.ProblemData) *string { return &p.AuthorName }),
	StringField("author_email", false, func(p *model.ProblemData) *string { return &p.AuthorEmail }),
	StringField("author_website", false, func(p *model.ProblemData) *string { return &p.AuthorWebsite }),
	LongField("timestamp_utc", func(p *model.ProblemData) *int64 { return &p.TimestampUTC }),
	EnumField("license", func(p *model.ProblemData) *model.ProblemLicense { return &p.License }, model.ParseProblemLicense),
}

var TestCaseDataSchema = Schema[model.TestCaseData]{
	StringField("test_case_name", false, func(t *model.TestCaseData) *string { return &t.TestCaseName }),
	StringField("input", true, func(t *model.TestCaseData) *string { return &t.Input }),
	StringField("output", true, func(t *model.TestCaseData) *string { return &t.Output }),
	BoolField("secret", func(t *model.TestCaseData) *bool { return &t.Secret }),
}
