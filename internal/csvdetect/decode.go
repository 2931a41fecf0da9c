package csvdetect

import (
	"bytes"
	"encoding/csv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns raw as text. A UTF-8 BOM is stripped; input that is not
// valid UTF-8 is read as Windows-1252, the superset of Latin-1 that
// spreadsheet exports use.
func Decode(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		out, _ = charmap.ISO8859_1.NewDecoder().Bytes(raw)
	}
	return string(out)
}

// DetectDelimiter inspects the first non-blank line, ignoring quoted
// sections. Semicolon wins over comma only when it occurs more often; tab
// wins when it beats both.
func DetectDelimiter(text string) rune {
	var line string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	var commas, semis, tabs int
	inQuotes := false
	for _, r := range line {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				commas++
			}
		case ';':
			if !inQuotes {
				semis++
			}
		case '\t':
			if !inQuotes {
				tabs++
			}
		}
	}

	switch {
	case tabs > commas && tabs > semis:
		return '\t'
	case semis > commas:
		return ';'
	default:
		return ','
	}
}

// Parse splits text into trimmed records. Quoted cells may contain the
// delimiter, newlines and doubled quotes. Blank lines are skipped and rows
// may have differing widths.
func Parse(text string, delim rune) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = false

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make([][]string, 0, len(records))
	for _, rec := range records {
		empty := true
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
			if rec[i] != "" {
				empty = false
			}
		}
		if !empty {
			out = append(out, rec)
		}
	}
	return out, nil
}
