package csvdetect

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	// sampleRows bounds how many data rows value scoring looks at.
	sampleRows = 100
	// threshold is the share of non-empty values that must match a pattern.
	threshold = 0.7
	// previewRows is how many rows Analyze returns for display.
	previewRows = 5
)

var (
	headerEmail   = regexp.MustCompile(`(?i)e-?mail|courriel|^mail$`)
	headerPhone   = regexp.MustCompile(`(?i)^t[ée]l|phone|mobile|portable|gsm|^cell`)
	headerCompany = regexp.MustCompile(`(?i)company|soci[ée]t[ée]|entreprise|organi[sz]ation|employer|raison.?sociale`)
	headerName    = regexp.MustCompile(`(?i)full.?name|^name|^nom|contact|pr[ée]nom|first.?name|last.?name|^client`)

	valueEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	valuePhone = regexp.MustCompile(`^\+?[\d\s().\-/]{6,24}$`)
	valueName  = regexp.MustCompile(`^\p{L}[\p{L}'’.\-]*(\s+\p{L}[\p{L}'’.\-]*)+$`)
)

// Mapping holds the column index of each prospect field, -1 when unknown.
type Mapping struct {
	Email    int `json:"email"`
	FullName int `json:"full_name"`
	Phone    int `json:"phone"`
	Company  int `json:"company"`
}

// UnknownMapping has every field unresolved.
func UnknownMapping() Mapping {
	return Mapping{Email: -1, FullName: -1, Phone: -1, Company: -1}
}

// Validate checks that indices fit width columns and no column is used
// twice. Email is required since rows are keyed on it.
func (m Mapping) Validate(width int) error {
	if m.Email < 0 {
		return errors.New("email column is required")
	}
	seen := map[int]string{}
	for name, idx := range map[string]int{"email": m.Email, "full_name": m.FullName, "phone": m.Phone, "company": m.Company} {
		if idx < 0 {
			continue
		}
		if idx >= width {
			return fmt.Errorf("%s column %d is out of range (file has %d columns)", name, idx, width)
		}
		if other, ok := seen[idx]; ok {
			return fmt.Errorf("column %d is mapped to both %s and %s", idx, other, name)
		}
		seen[idx] = name
	}
	return nil
}

// ProspectRow is one CSV row projected through a Mapping.
type ProspectRow struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
}

func (m Mapping) Extract(row []string) ProspectRow {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return ProspectRow{
		FullName: cell(m.FullName),
		Email:    strings.ToLower(cell(m.Email)),
		Phone:    cell(m.Phone),
		Company:  cell(m.Company),
	}
}

// IsEmail reports whether v looks like an email address.
func IsEmail(v string) bool {
	return valueEmail.MatchString(strings.TrimSpace(v))
}

func isPhone(v string) bool {
	if !valuePhone.MatchString(v) {
		return false
	}
	digits := 0
	for _, r := range v {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 6
}

func isText(v string) bool {
	if IsEmail(v) || isPhone(v) {
		return false
	}
	for _, r := range v {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// LooksLikeHeader reports whether row reads as column titles rather than
// data: no cell is an email address or a phone number.
func LooksLikeHeader(row []string) bool {
	if len(row) == 0 {
		return false
	}
	for _, c := range row {
		if IsEmail(c) || isPhone(c) {
			return false
		}
	}
	return true
}

// Detect guesses the mapping for header and rows. header may be nil when
// the file has none, in which case only value scoring applies.
func Detect(header []string, rows [][]string) Mapping {
	m := UnknownMapping()
	claimed := map[int]bool{}
	width := len(header)
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}

	byHeader := func(re *regexp.Regexp) int {
		for i, h := range header {
			if !claimed[i] && re.MatchString(strings.TrimSpace(h)) {
				claimed[i] = true
				return i
			}
		}
		return -1
	}
	// Company before name so "Company name" is not read as a person.
	m.Email = byHeader(headerEmail)
	m.Phone = byHeader(headerPhone)
	m.Company = byHeader(headerCompany)
	m.FullName = byHeader(headerName)

	sample := rows
	if len(sample) > sampleRows {
		sample = sample[:sampleRows]
	}

	byValue := func(match func(string) bool) int {
		best, bestScore := -1, 0.0
		for col := 0; col < width; col++ {
			if claimed[col] {
				continue
			}
			if s := score(sample, col, match); s >= threshold && s > bestScore {
				best, bestScore = col, s
			}
		}
		if best >= 0 {
			claimed[best] = true
		}
		return best
	}
	if m.Email < 0 {
		m.Email = byValue(IsEmail)
	}
	if m.Phone < 0 {
		m.Phone = byValue(isPhone)
	}
	if m.FullName < 0 {
		m.FullName = byValue(valueName.MatchString)
	}
	if m.FullName < 0 {
		for col := 0; col < width; col++ {
			if !claimed[col] && score(sample, col, isText) >= threshold {
				claimed[col] = true
				m.FullName = col
				break
			}
		}
	}
	return m
}

// score is the share of non-empty values in col accepted by match.
func score(rows [][]string, col int, match func(string) bool) float64 {
	var total, hits int
	for _, r := range rows {
		if col >= len(r) || r[col] == "" {
			continue
		}
		total++
		if match(r[col]) {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Result is the outcome of Analyze.
type Result struct {
	Delimiter string     `json:"delimiter"`
	HasHeader bool       `json:"has_header"`
	Header    []string   `json:"header,omitempty"`
	Width     int        `json:"width"`
	RowCount  int        `json:"row_count"`
	Sample    [][]string `json:"sample"`
	Mapping   Mapping    `json:"mapping"`
	Rows      [][]string `json:"-"`
}

var ErrEmpty = errors.New("csv file has no rows")

// Analyze decodes, splits and classifies a raw CSV upload.
func Analyze(raw []byte) (*Result, error) {
	text := Decode(raw)
	delim := DetectDelimiter(text)
	records, err := Parse(text, delim)
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	res := &Result{Delimiter: string(delim)}
	rows := records
	if LooksLikeHeader(records[0]) && len(records) > 1 {
		res.HasHeader = true
		res.Header = records[0]
		rows = records[1:]
	}
	for _, r := range records {
		if len(r) > res.Width {
			res.Width = len(r)
		}
	}

	res.Rows = rows
	res.RowCount = len(rows)
	res.Sample = rows
	if len(res.Sample) > previewRows {
		res.Sample = res.Sample[:previewRows]
	}
	res.Mapping = Detect(res.Header, rows)
	return res, nil
}
