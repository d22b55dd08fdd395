package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/civicaccess/streetlaw/internal/core/domain"
)

const judgmentSheet = "Judgments"

var judgmentColumns = []string{
	"Interaction ID", "Created At", "Language", "Persona",
	"Raw Query", "Normalized Query", "Degraded",
	"Answer", "Cited Sections",
	"Judgment Status", "Score", "Rationale", "Evaluated At",
}

// WriteJudgmentsXLSX renders judged interactions as a spreadsheet for
// offline quality review.
func WriteJudgmentsXLSX(w io.Writer, judged []domain.JudgedInteraction) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	index, err := f.NewSheet(judgmentSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	header := make([]any, len(judgmentColumns))
	for i, col := range judgmentColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(judgmentSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for i, item := range judged {
		row := []any{
			item.Interaction.ID,
			item.Interaction.CreatedAt.Format("2006-01-02 15:04:05"),
			string(item.Interaction.Query.DetectedLanguage),
			item.Interaction.Persona,
			item.Interaction.Query.RawText,
			item.Interaction.Query.NormalizedText,
			item.Interaction.Query.Degraded,
			item.Interaction.Answer,
			strings.Join(item.Interaction.CitedSections, "; "),
			string(item.Judgment.Status),
			item.Judgment.Score,
			item.Judgment.Rationale,
			item.Judgment.EvaluatedAt.Format("2006-01-02 15:04:05"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("compute cell name: %w", err)
		}
		if err := f.SetSheetRow(judgmentSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
