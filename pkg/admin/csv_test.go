package admin

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"fleetonboard/pkg/domain"
)

func TestWriteCSVEmptyResultKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got := strings.TrimRight(buf.String(), "\n")
	want := "id,applicant_name,email,phone,status,submitted_at"
	if got != want {
		t.Fatalf("empty export = %q, want %q", got, want)
	}
}

func TestWriteCSVQuotesSpecialCharacters(t *testing.T) {
	rows := []domain.Application{
		{
			ID:            "a1",
			ApplicantName: `Dlamini, Alice "Ali"`,
			Email:         "alice@x.com",
			Phone:         "0821234567",
			Status:        domain.StatusPending,
			SubmittedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-reading export: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("export has %d records, want 2", len(records))
	}
	row := records[1]
	if row[1] != `Dlamini, Alice "Ali"` {
		t.Fatalf("name round-trip = %q", row[1])
	}
	if row[5] != "2026-03-01T10:00:00Z" {
		t.Fatalf("timestamp = %q, want RFC3339", row[5])
	}
}

func TestBoardExportCSVUsesFetchedRows(t *testing.T) {
	b, _ := seedBoard(t)
	var buf bytes.Buffer
	if err := b.ExportCSV(&buf); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-reading export: %v", err)
	}
	if len(records) != 4 { // header + 3 rows
		t.Fatalf("export has %d records, want 4", len(records))
	}
	if records[1][0] != "a3" {
		t.Fatalf("first data row = %v, want newest application a3", records[1])
	}
}
