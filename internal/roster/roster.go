// Package roster parses and validates recipient rosters from XLSX files.
package roster

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/choicecert/certmill/internal/model"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^[0-9]{10}$`)
)

// ValidEmail reports whether s looks like a deliverable address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// ValidPhone reports whether s is a 10-digit phone number.
func ValidPhone(s string) bool {
	return phoneRe.MatchString(s)
}

// Options configures roster validation.
type Options struct {
	// RequirePhone drops rows without a valid email and 10-digit phone.
	// Credential rosters need all three fields for the signup call.
	RequirePhone bool
}

// Load reads the first sheet of an XLSX roster and returns the validated
// rows. Rows missing mandatory fields or carrying a malformed email are
// dropped, not errored: a roster is usable as long as the file opens.
func Load(path string, opts Options) ([]model.RowRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "roster: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("roster: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}

	return Parse(rows, opts), nil
}

// Parse validates raw tabular data. The first row is the header; name,
// email and phone columns are matched case-insensitively with positional
// fallback (first column name, second email, third phone).
func Parse(rows [][]string, opts Options) []model.RowRecord {
	if len(rows) == 0 {
		return nil
	}

	nameIdx, emailIdx, phoneIdx := 0, 1, 2
	for j, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "name":
			nameIdx = j
		case "email":
			emailIdx = j
		case "phone":
			phoneIdx = j
		}
	}

	var out []model.RowRecord
	for _, cells := range rows[1:] {
		rec := model.RowRecord{
			Name:  cellAt(cells, nameIdx),
			Email: cellAt(cells, emailIdx),
			Phone: cellAt(cells, phoneIdx),
		}

		if rec.Name == "" {
			continue
		}
		if rec.Email != "" && !ValidEmail(rec.Email) {
			continue
		}
		if opts.RequirePhone && (!ValidEmail(rec.Email) || !ValidPhone(rec.Phone)) {
			continue
		}

		out = append(out, rec)
	}

	return out
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}
