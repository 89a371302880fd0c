package admin

import (
	"encoding/csv"
	"io"
	"time"

	"fleetonboard/pkg/domain"
)

// csvHeader is the fixed export column list. Zero rows still produce
// this header rather than an empty file.
var csvHeader = []string{"id", "applicant_name", "email", "phone", "status", "submitted_at"}

// WriteCSV serializes the given result set. Quoting and quote-doubling
// of embedded special characters follow RFC 4180 via encoding/csv.
func WriteCSV(w io.Writer, rows []domain.Application) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, app := range rows {
		record := []string{
			app.ID,
			app.ApplicantName,
			app.Email,
			app.Phone,
			string(app.Status),
			app.SubmittedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the board's currently fetched rows.
func (b *Board) ExportCSV(w io.Writer) error {
	return WriteCSV(w, b.Rows())
}
