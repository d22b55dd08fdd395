package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

func TestWriteJudgmentsXLSX(t *testing.T) {
	created := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)
	judged := []domain.JudgedInteraction{
		{
			Interaction: domain.Interaction{
				ID: "int-1",
				Query: domain.Query{
					RawText:          "landlord wan comot me",
					DetectedLanguage: domain.LanguagePidgin,
					NormalizedText:   "my landlord wants to evict me",
				},
				Persona:       "pidgin_everyday",
				Answer:        "My guy, dis law talk say...",
				CitedSections: []string{"Section 13", "Section 14"},
				CreatedAt:     created,
			},
			Judgment: domain.Judgment{
				InteractionID: "int-1",
				Score:         0.85,
				Rationale:     "well grounded",
				Status:        domain.JudgmentScored,
				EvaluatedAt:   created.Add(time.Minute),
			},
		},
	}

	var buf bytes.Buffer
	if err := WriteJudgmentsXLSX(&buf, judged); err != nil {
		t.Fatalf("WriteJudgmentsXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open written workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(judgmentSheet)
	if err != nil {
		t.Fatalf("read sheet rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "Interaction ID" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "int-1" {
		t.Fatalf("unexpected first cell %q", rows[1][0])
	}
	if rows[1][8] != "Section 13; Section 14" {
		t.Fatalf("cited sections not joined: %q", rows[1][8])
	}
}

func TestWriteJudgmentsXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJudgmentsXLSX(&buf, nil); err != nil {
		t.Fatalf("WriteJudgmentsXLSX() error = %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected a workbook even with no rows")
	}
}
