// Package treatmentcsv reads and writes the treatment catalog spreadsheet format:
// UTF-8, comma separated, header row first.
package treatmentcsv

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
)

const (
	ColumnInternalName = "internal_name"
	ColumnPatientName  = "patient_name"
	ColumnCategory     = "category"
	ColumnDescription  = "description"

	ContentType      = "text/csv; charset=utf-8"
	TemplateFilename = "treatment_template.csv"
	ExportFilename   = "treatments.csv"
)

var (
	Columns         = []string{ColumnInternalName, ColumnPatientName, ColumnCategory, ColumnDescription}
	requiredColumns = []string{ColumnInternalName, ColumnPatientName}

	ErrEmpty = errors.New("csv file is empty")
)

var templateRows = [][]string{
	{"C処置", "虫歯治療", "治療", "虫歯の除去と詰め物"},
	{"SRP", "歯石除去・歯面清掃", "予防", "歯石の除去と歯面のクリーニング"},
	{"Ext", "抜歯", "外科", "歯の抜去"},
	{"Imp", "インプラント", "外科", "人工歯根の埋入"},
	{"Endo", "根管治療", "治療", "歯の神経の治療"},
}

// MissingColumnsError names every required header that was not found.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// Row is one accepted data line.
type Row struct {
	InternalName string
	PatientName  string
	Category     string
	Description  string
}

// Parse reads a catalog file. Rows missing internal_name or patient_name are
// dropped without error.
func Parse(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		records = append(records, rec)
	}
	if len(records) < 2 {
		return nil, ErrEmpty
	}

	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	field := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := Row{
			InternalName: field(rec, ColumnInternalName),
			PatientName:  field(rec, ColumnPatientName),
			Category:     field(rec, ColumnCategory),
			Description:  field(rec, ColumnDescription),
		}
		if row.InternalName == "" || row.PatientName == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ToItems turns parsed rows into active catalog entries numbered from startOrder.
func ToItems(rows []Row, clinicID string, startOrder int, now time.Time) []domain.TreatmentItem {
	items := make([]domain.TreatmentItem, 0, len(rows))
	for i, row := range rows {
		items = append(items, domain.TreatmentItem{
			ID:           uuid.NewString(),
			ClinicID:     clinicID,
			InternalName: row.InternalName,
			PatientName:  row.PatientName,
			Category:     row.Category,
			Description:  row.Description,
			Order:        startOrder + i,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return items
}

// Export writes items with every field double-quoted. Embedded quotes are
// doubled so the output parses back to the same values.
func Export(w io.Writer, items []domain.TreatmentItem) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Columns, ",") + "\n"); err != nil {
		return err
	}
	for _, item := range items {
		fields := []string{item.InternalName, item.PatientName, item.Category, item.Description}
		for i, f := range fields {
			fields[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
		}
		if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteTemplate writes the example file offered to staff before their first import.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(templateRows); err != nil {
		return err
	}
	return cw.Error()
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
