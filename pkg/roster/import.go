package roster

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/teacher-dashboard-api/internal/models"
)

// IssueKind classifies an import error.
type IssueKind string

// Issue kinds reported by Parse and by upload handling.
const (
	KindEmptyInput         IssueKind = "EmptyInput"
	KindMissingColumns     IssueKind = "MissingColumns"
	KindMissingFields      IssueKind = "MissingFields"
	KindInvalidPhoneFormat IssueKind = "InvalidPhoneFormat"
	KindFileRead           IssueKind = "FileRead"
)

const (
	colFirstName = "first name"
	colLastName  = "last name"
	colPhone     = "phone"
)

const byteOrderMark = "\ufeff"

var requiredColumns = []string{colFirstName, colLastName, colPhone}

// Issue describes one import error. Row is 0 for failures affecting the whole file.
type Issue struct {
	Row     int       `json:"row"`
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
}

// ImportOutcome is the result of parsing one uploaded roster.
type ImportOutcome struct {
	Success     bool                       `json:"success"`
	Students    []models.CreateStudentData `json:"students"`
	Errors      []string                   `json:"errors"`
	InvalidRows []int                      `json:"invalid_rows"`
	Issues      []Issue                    `json:"issues"`
}

// Structural reports whether the parse was rejected before any row was examined.
func (o ImportOutcome) Structural() bool {
	for _, issue := range o.Issues {
		if issue.Row == 0 {
			return true
		}
	}
	return false
}

func newOutcome() ImportOutcome {
	return ImportOutcome{
		Students:    []models.CreateStudentData{},
		Errors:      []string{},
		InvalidRows: []int{},
		Issues:      []Issue{},
	}
}

// Failed builds an outcome holding a single file level error.
func Failed(kind IssueKind, message string) ImportOutcome {
	outcome := newOutcome()
	outcome.Errors = append(outcome.Errors, message)
	outcome.Issues = append(outcome.Issues, Issue{Kind: kind, Message: message})
	return outcome
}

func (o *ImportOutcome) reject(row int, kind IssueKind, message string) {
	o.Errors = append(o.Errors, message)
	o.InvalidRows = append(o.InvalidRows, row)
	o.Issues = append(o.Issues, Issue{Row: row, Kind: kind, Message: message})
}

// Parse validates CSV text and returns every valid row alongside per-row errors.
//
// Row numbers count non-empty lines starting with the header as row 1. Row level
// errors never abort the parse; a missing data section or missing required
// columns do. A leading byte order mark is dropped and invalid UTF-8 sequences
// become U+FFFD before any field is read.
func Parse(text string) ImportOutcome {
	lines := nonEmptyLines(decodeText(text))
	if len(lines) < 2 {
		return Failed(KindEmptyInput, "CSV file must contain a header row and at least one data row")
	}

	columns := make(map[string]int)
	for i, name := range SplitFields(lines[0]) {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := columns[key]; !seen {
			columns[key] = i
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Failed(KindMissingColumns, "Missing required columns: "+strings.Join(missing, ", "))
	}

	outcome := newOutcome()
	for i, line := range lines[1:] {
		row := i + 2
		fields := SplitFields(line)
		firstName := cleanCell(fields, columns[colFirstName])
		lastName := cleanCell(fields, columns[colLastName])
		phone := cleanCell(fields, columns[colPhone])

		var empty []string
		if firstName == "" {
			empty = append(empty, "First Name")
		}
		if lastName == "" {
			empty = append(empty, "Last Name")
		}
		if phone == "" {
			empty = append(empty, "Phone")
		}
		if len(empty) > 0 {
			outcome.reject(row, KindMissingFields, fmt.Sprintf("Row %d: Missing required fields: %s", row, strings.Join(empty, ", ")))
			continue
		}

		if !ValidPhone(phone) {
			outcome.reject(row, KindInvalidPhoneFormat, fmt.Sprintf("Row %d: Invalid phone format: %s", row, phone))
			continue
		}

		outcome.Students = append(outcome.Students, models.CreateStudentData{
			FirstName: firstName,
			LastName:  lastName,
			Phone:     phone,
		})
	}

	outcome.Success = len(outcome.Students) > 0
	return outcome
}

func decodeText(text string) string {
	text = strings.ToValidUTF8(text, string(utf8.RuneError))
	return strings.TrimPrefix(text, byteOrderMark)
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
