// Package importer reads invitee and leader spreadsheets (.xlsx) into typed rows.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"assessmentlinks/internal/models"
	"assessmentlinks/internal/normalize"
)

var (
	// ErrMissingColumn is returned when the header row lacks a required column
	ErrMissingColumn = errors.New("missing required column")
	// ErrTooManyRows is returned when a sheet exceeds the configured row limit
	ErrTooManyRows = errors.New("too many rows")
	// ErrEmptySheet is returned when the workbook has no header row
	ErrEmptySheet = errors.New("spreadsheet is empty")
)

type column struct {
	name     string
	required bool
}

var registrationColumns = []column{
	{name: "nome", required: true},
	{name: "email", required: true},
	{name: "empresa", required: true},
	{name: "codrodada", required: true},
	{name: "nomeLider", required: true},
	{name: "emailLider", required: true},
	{name: "produto"},
	{name: "tipo", required: true},
}

var leaderColumns = []column{
	{name: "nomeLider", required: true},
	{name: "emailLider", required: true},
	{name: "emailEnvio"},
	{name: "empresa", required: true},
	{name: "codrodada", required: true},
}

// Reader parses uploads. A MaxRows of zero means no limit.
type Reader struct {
	MaxRows int
}

// New creates a Reader that rejects sheets with more than maxRows data rows
func New(maxRows int) *Reader {
	return &Reader{MaxRows: maxRows}
}

// ReadRegistrationRows reads invitees from the first sheet of an .xlsx workbook
func (r *Reader) ReadRegistrationRows(src io.Reader) ([]models.RegistrationRow, error) {
	var rows []models.RegistrationRow
	err := r.read(src, registrationColumns, func(line int, get func(string) string) {
		rows = append(rows, models.RegistrationRow{
			Line:        line,
			Name:        get("nome"),
			Email:       get("email"),
			Company:     get("empresa"),
			RoundCode:   get("codrodada"),
			LeaderName:  get("nomeLider"),
			LeaderEmail: get("emailLider"),
			Product:     get("produto"),
			Type:        get("tipo"),
		})
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadLeaderRows reads leaders from the first sheet of an .xlsx workbook
func (r *Reader) ReadLeaderRows(src io.Reader) ([]models.LeaderRow, error) {
	var rows []models.LeaderRow
	err := r.read(src, leaderColumns, func(line int, get func(string) string) {
		rows = append(rows, models.LeaderRow{
			Line:        line,
			LeaderName:  get("nomeLider"),
			LeaderEmail: get("emailLider"),
			SendEmail:   get("emailEnvio"),
			Company:     get("empresa"),
			RoundCode:   get("codrodada"),
		})
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// read walks the first sheet, mapping header names to column indexes and
// calling emit for every non-blank data row. Line numbers are 1-based sheet rows.
func (r *Reader) read(src io.Reader, columns []column, emit func(line int, get func(string) string)) error {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ErrEmptySheet
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	var (
		index map[string]int
		line  int
		count int
	)
	for rows.Next() {
		line++
		cells, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read row %d: %w", line, err)
		}

		if index == nil {
			if isBlank(cells) {
				continue
			}
			index, err = headerIndex(cells, columns)
			if err != nil {
				return err
			}
			continue
		}

		if isBlank(cells) {
			continue
		}

		count++
		if r.MaxRows > 0 && count > r.MaxRows {
			return fmt.Errorf("%w: limit is %d", ErrTooManyRows, r.MaxRows)
		}

		emit(line, func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[i])
		})
	}
	if err := rows.Error(); err != nil {
		return fmt.Errorf("failed to iterate rows: %w", err)
	}

	if index == nil {
		return ErrEmptySheet
	}
	return nil
}

// headerIndex matches header cells to columns ignoring case, accents and surrounding spaces
func headerIndex(header []string, columns []column) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, cell := range header {
		key := normalize.Normalize(cell)
		if _, dup := positions[key]; !dup && key != "" {
			positions[key] = i
		}
	}

	index := make(map[string]int, len(columns))
	var missing []string
	for _, c := range columns {
		i, ok := positions[normalize.Normalize(c.name)]
		if !ok {
			if c.required {
				missing = append(missing, c.name)
			}
			continue
		}
		index[c.name] = i
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return index, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
