package roster

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
)

func TestSplitFields(t *testing.T) {
	cases := []struct {
		name string
		line string
		want []string
	}{
		{name: "plain", line: "John,Doe,555-123-4567", want: []string{"John", "Doe", "555-123-4567"}},
		{name: "quoted comma", line: `"Smith, Jr.",Doe,555-000-1111`, want: []string{"Smith, Jr.", "Doe", "555-000-1111"}},
		{name: "doubled quote", line: `"Bob ""BJ""",Jones`, want: []string{`Bob "BJ"`, "Jones"}},
		{name: "trims whitespace", line: "  Ana  , Lee ,", want: []string{"Ana", "Lee", ""}},
		{name: "empty line", line: "", want: []string{""}},
		{name: "carriage return", line: "a,b\r", want: []string{"a", "b"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitFields(tc.line))
		})
	}
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("+1 (555) 123-4567"))
	assert.True(t, ValidPhone("555-123-4567"))
	assert.True(t, ValidPhone("5551234"))
	assert.False(t, ValidPhone("abc"))
	assert.False(t, ValidPhone("12345"))
	assert.False(t, ValidPhone("555-123-456x"))
	assert.False(t, ValidPhone("++5551234567"))
}

func TestParseRejectsMissingData(t *testing.T) {
	for _, input := range []string{"", "First Name,Last Name,Phone\n", "\n  \n"} {
		outcome := Parse(input)
		assert.False(t, outcome.Success)
		require.Len(t, outcome.Errors, 1)
		require.Len(t, outcome.Issues, 1)
		assert.Equal(t, KindEmptyInput, outcome.Issues[0].Kind)
		assert.True(t, outcome.Structural())
		assert.Empty(t, outcome.Students)
	}
}

func TestParseRejectsMissingColumns(t *testing.T) {
	outcome := Parse("Foo,Bar\nA,B")

	assert.False(t, outcome.Success)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "phone")
	assert.Contains(t, outcome.Errors[0], "first name")
	assert.Contains(t, outcome.Errors[0], "last name")
	assert.Equal(t, KindMissingColumns, outcome.Issues[0].Kind)
	assert.Empty(t, outcome.InvalidRows)
}

func TestParseValidRow(t *testing.T) {
	outcome := Parse("First Name,Last Name,Phone\nJohn,Doe,555-123-4567")

	assert.True(t, outcome.Success)
	assert.Equal(t, []models.CreateStudentData{{FirstName: "John", LastName: "Doe", Phone: "555-123-4567"}}, outcome.Students)
	assert.Empty(t, outcome.Errors)
	assert.Empty(t, outcome.InvalidRows)
}

func TestParseDropsByteOrderMark(t *testing.T) {
	outcome := Parse("\ufeffFirst Name,Last Name,Phone\nJohn,Doe,5551234567")

	assert.True(t, outcome.Success)
	assert.Empty(t, outcome.Errors)
	assert.Equal(t, []models.CreateStudentData{{FirstName: "John", LastName: "Doe", Phone: "5551234567"}}, outcome.Students)
}

func TestParseReplacesInvalidUTF8(t *testing.T) {
	outcome := Parse("First Name,Last Name,Phone\nJ\xff,Doe,5551234567")

	require.True(t, outcome.Success)
	require.Len(t, outcome.Students, 1)
	assert.Equal(t, "J\uFFFD", outcome.Students[0].FirstName)
	assert.True(t, utf8.ValidString(outcome.Students[0].FirstName))
}

func TestParsePartialSuccess(t *testing.T) {
	outcome := Parse("First Name,Last Name,Phone\nJohn,Doe,555-123-4567\nJane,Smith,\n")

	assert.True(t, outcome.Success)
	assert.Len(t, outcome.Students, 1)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "Phone")
	assert.NotContains(t, outcome.Errors[0], "First Name")
	assert.Equal(t, []int{3}, outcome.InvalidRows)
	assert.Equal(t, KindMissingFields, outcome.Issues[0].Kind)
	assert.False(t, outcome.Structural())
}

func TestParseNamesEveryMissingField(t *testing.T) {
	outcome := Parse("First Name,Last Name,Phone\n,,\n")

	assert.False(t, outcome.Success)
	require.Len(t, outcome.Errors, 1)
	assert.Equal(t, "Row 2: Missing required fields: First Name, Last Name, Phone", outcome.Errors[0])
}

func TestParseInvalidPhone(t *testing.T) {
	outcome := Parse("First Name,Last Name,Phone\nJohn,Doe,abc\nJane,Roe,+1 (555) 123-4567")

	assert.True(t, outcome.Success)
	require.Len(t, outcome.Errors, 1)
	assert.Contains(t, outcome.Errors[0], "abc")
	assert.Equal(t, []int{2}, outcome.InvalidRows)
	assert.Equal(t, KindInvalidPhoneFormat, outcome.Issues[0].Kind)
	assert.Equal(t, "Jane", outcome.Students[0].FirstName)
}

func TestParseHeaderOrderAndCase(t *testing.T) {
	input := "Email, PHONE ,last name,First Name\nx@example.com,555-000-1111,Doe,\"Smith, Jr.\"\n"
	outcome := Parse(input)

	require.True(t, outcome.Success)
	assert.Equal(t, models.CreateStudentData{FirstName: "Smith, Jr.", LastName: "Doe", Phone: "555-000-1111"}, outcome.Students[0])
}

func TestParseSkipsBlankLinesWhenNumbering(t *testing.T) {
	outcome := Parse("First Name,Last Name,Phone\n\n\nJohn,Doe,nope\r\n")

	assert.False(t, outcome.Success)
	assert.Equal(t, []int{2}, outcome.InvalidRows)
}

func TestParseShortRowIsMissingFields(t *testing.T) {
	outcome := Parse("First Name,Last Name,Phone\nJohn")

	assert.False(t, outcome.Success)
	assert.Equal(t, "Row 2: Missing required fields: Last Name, Phone", outcome.Errors[0])
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 9, 15, 4, 5, 0, time.UTC)
}

func TestExportRoundTrip(t *testing.T) {
	students := []models.Student{
		{FirstName: "John", LastName: "Doe", Phone: "555-123-4567", Status: models.StudentStatusActive, EnrollmentDate: fixedClock()},
		{FirstName: "Smith, Jr.", LastName: "O'Neil", Phone: "+1 (555) 000-1111", Status: models.StudentStatusInactive, EnrollmentDate: fixedClock()},
	}

	file, err := NewTranscoder().WithClock(fixedClock).Export(students, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "students_export_2026-03-09.csv", file.Name)
	assert.Equal(t, ContentTypeCSV, file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"First Name","Last Name","Phone","Status","Enrollment Date"`, lines[0])
	assert.Equal(t, `"John","Doe","555-123-4567","active","2026-03-09"`, lines[1])

	outcome := Parse(string(file.Content))
	require.True(t, outcome.Success)
	require.Len(t, outcome.Students, len(students))
	for i, s := range students {
		assert.Equal(t, s.FirstName, outcome.Students[i].FirstName)
		assert.Equal(t, s.LastName, outcome.Students[i].LastName)
		assert.Equal(t, s.Phone, outcome.Students[i].Phone)
	}
}

func TestExportEmbeddedQuotesDoNotRoundTrip(t *testing.T) {
	students := []models.Student{{FirstName: `Bob "BJ"`, LastName: "Jones", Phone: "555-123-4567", Status: models.StudentStatusActive}}

	file, err := NewTranscoder().Export(students, FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(file.Content), `"Bob "BJ""`)

	outcome := Parse(string(file.Content))
	require.True(t, outcome.Success)
	assert.Equal(t, "Bob BJ", outcome.Students[0].FirstName)
}

func TestExportEmptyRoster(t *testing.T) {
	file, err := NewTranscoder().Export(nil, FormatCSV)
	assert.ErrorIs(t, err, ErrNothingToExport)
	assert.Nil(t, file)
}

func TestExportPDF(t *testing.T) {
	students := []models.Student{{FirstName: "John", LastName: "Doe", Phone: "555-123-4567", Status: models.StudentStatusActive}}

	file, err := NewTranscoder().WithClock(fixedClock).Export(students, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "students_export_2026-03-09.pdf", file.Name)
	assert.Equal(t, ContentTypePDF, file.ContentType)

	_, err = NewTranscoder().Export(students, Format("xlsx"))
	assert.Error(t, err)
}

func TestSample(t *testing.T) {
	file, err := NewTranscoder().Sample()
	require.NoError(t, err)
	assert.Equal(t, SampleFilename, file.Name)

	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`))
	}

	outcome := Parse(string(file.Content))
	assert.True(t, outcome.Success)
	assert.Len(t, outcome.Students, 3)
	assert.Empty(t, outcome.Errors)
}
