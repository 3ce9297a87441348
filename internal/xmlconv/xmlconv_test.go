package xmlconv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloudcoder/internal/domain/model"
)

func sampleData() *model.ProblemAndTestCaseData {
	return &model.ProblemAndTestCaseData{
		Problem: model.ProblemData{
			ProblemType:      model.ProblemTypeJavaMethod,
			Testname:         "isEven",
			BriefDescription: "Is it even?",
			Description:      "<p>Return true if <code>n</code> is even & false otherwise.</p>",
			Skeleton:         "public boolean isEven(int n) {\n  // ]]> tricky\n}\n",
			SchemaVersion:    2,
			AuthorName:       "Pat Author",
			AuthorEmail:      "pat@example.edu",
			AuthorWebsite:    "http://example.edu/~pat",
			TimestampUTC:     1357924680000,
			License:          model.LicenseCCAttribShareAlike30,
		},
		TestCases: []model.TestCaseData{
			{TestCaseName: "zero", Input: "0", Output: "true"},
			{TestCaseName: "odd", Input: "7", Output: "false", Secret: true},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleData()))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, sampleData(), got)
}

func TestWriteReadRoundTripKeepsCarriageReturns(t *testing.T) {
	data := sampleData()
	data.Problem.Skeleton = "int main() {\r\n  return 0; // ]]>\r\n}\r"
	data.Problem.Description = "\r\nleading and trailing\r"
	data.TestCases[0].TestCaseName = "line1\r\nline2"
	data.TestCases[0].Input = "line1\r\nline2"
	data.TestCases[1].Output = "\r"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, data))
	assert.Contains(t, buf.String(), "<input><![CDATA[line1]]>&#xD;<![CDATA[\nline2]]></input>")

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestWriteRejectsUnrepresentableText(t *testing.T) {
	for name, mutate := range map[string]func(*model.ProblemAndTestCaseData){
		"nul in literal":     func(d *model.ProblemAndTestCaseData) { d.TestCases[0].Input = "nul\x00char" },
		"control in name":    func(d *model.ProblemAndTestCaseData) { d.Problem.Testname = "bell\x07" },
		"invalid utf-8":      func(d *model.ProblemAndTestCaseData) { d.Problem.Skeleton = "bad \xff byte" },
		"non-character FFFE": func(d *model.ProblemAndTestCaseData) { d.TestCases[1].Output = "\ufffe" },
	} {
		t.Run(name, func(t *testing.T) {
			data := sampleData()
			mutate(data)
			err := Write(&bytes.Buffer{}, data)
			assert.Error(t, err)
		})
	}
}

func TestWriteUsesElementNamesAndCDATA(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleData()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "<problemandtestcasedata>")
	assert.Contains(t, out, "<problem_type>JAVA_METHOD</problem_type>")
	assert.Contains(t, out, "<license>CC_ATTRIB_SHAREALIKE_3_0</license>")
	assert.Contains(t, out, "<secret>true</secret>")
	assert.Contains(t, out, "<description><![CDATA[<p>Return true")
	assert.Equal(t, 2, strings.Count(out, "<testcasedata>"))
}

func TestReadSkipsUnknownElements(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<problemandtestcasedata>
  <comment>exported by a newer version</comment>
  <problemdata>
    <problem_type>C_PROGRAM</problem_type>
    <testname>hello</testname>
    <difficulty><level>3</level></difficulty>
    <schema_version> 1 </schema_version>
    <timestamp_utc>99</timestamp_utc>
    <license>NOT_REDISTRIBUTABLE</license>
  </problemdata>
  <testcasedata>
    <test_case_name>only</test_case_name>
    <output><![CDATA[Hello, world!
]]></output>
    <secret>TRUE</secret>
  </testcasedata>
</problemandtestcasedata>`

	got, err := Read(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, model.ProblemTypeCProgram, got.Problem.ProblemType)
	assert.Equal(t, "hello", got.Problem.Testname)
	assert.Equal(t, 1, got.Problem.SchemaVersion)
	assert.Equal(t, int64(99), got.Problem.TimestampUTC)
	assert.Equal(t, "", got.Problem.Description)
	require.Len(t, got.TestCases, 1)
	assert.Equal(t, "Hello, world!\n", got.TestCases[0].Output)
	assert.True(t, got.TestCases[0].Secret)
}

func TestReadErrors(t *testing.T) {
	cases := map[string]string{
		"wrong root":     `<problems></problems>`,
		"no problemdata": `<problemandtestcasedata><testcasedata></testcasedata></problemandtestcasedata>`,
		"bad number":     `<problemandtestcasedata><problemdata><schema_version>one</schema_version></problemdata></problemandtestcasedata>`,
		"bad enum":       `<problemandtestcasedata><problemdata><license>PUBLIC_DOMAIN</license></problemdata></problemandtestcasedata>`,
		"truncated":      `<problemandtestcasedata><problemdata>`,
		"empty document": ``,
		"unclosed root":  `<problemandtestcasedata><problemdata></problemdata>`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestSchemaLookup(t *testing.T) {
	assert.NotNil(t, ProblemDataSchema.field("skeleton"))
	assert.True(t, ProblemDataSchema.field("skeleton").Literal)
	assert.False(t, ProblemDataSchema.field("testname").Literal)
	assert.Nil(t, TestCaseDataSchema.field("testname"))
	assert.Len(t, ProblemDataSchema, 11)
	assert.Len(t, TestCaseDataSchema, 4)
}
