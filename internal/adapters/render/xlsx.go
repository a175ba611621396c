package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/HMasataka/chatwork-log-exporter/internal/domain"
)

const xlsxSheetName = "Messages"

// MessagesXLSX renders messages as an XLSX workbook with the same column
// order as the CSV export. Spreadsheet output needs no escaping: cell
// values carry quotes and newlines as-is.
func MessagesXLSX(messages []domain.Message) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(xlsxSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	for i, h := range CSVColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(xlsxSheetName, cell, h); err != nil {
			return nil, fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for row, m := range messages {
		values := []string{
			scalarString(m["id"]),
			scalarString(m["aid"]),
			scalarString(m["aid_name"]),
			scalarString(m["datetime"]),
			scalarString(m["type"]),
			scalarString(m["msg"]),
			scalarString(m["tm"]),
			scalarString(m["utm"]),
			scalarString(m["index"]),
			rawReactions(m),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(xlsxSheetName, cell, v); err != nil {
				return nil, fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// rawReactions renders the opaque reactions value as compact JSON without
// the CSV quoting.
func rawReactions(m domain.Message) string {
	v, ok := m["reactions"]
	if !ok || v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
