package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/theo-assistant/internal/core/domain"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetName   = "Checklist"
)

var header = []string{"Etapa", "Título", "Descrição", "Detalhes", "Concluído"}

// ChecklistWorkbook renders the checklist of one benefit as a single-sheet workbook, one step per row.
func ChecklistWorkbook(benefit domain.BenefitDescriptor, items []domain.ChecklistItem) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   benefit.Name,
		Subject: "Checklist",
		Creator: "Theo",
	}); err != nil {
		return nil, fmt.Errorf("set doc props: %w", err)
	}

	if err := writeRow(f, 1, toAny(header)); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", "E1", bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, item := range items {
		row := []any{i + 1, item.Title, item.Description, item.Details, doneLabel(item.Completed)}
		if err := writeRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	for col, width := range map[string]float64{"A": 8, "B": 40, "C": 60, "D": 60, "E": 12} {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename is the download name for a benefit checklist.
func Filename(benefit domain.BenefitDescriptor) string {
	return "checklist-" + benefit.ID + ".xlsx"
}

func writeRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func doneLabel(done bool) string {
	if done {
		return "Sim"
	}
	return "Não"
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
