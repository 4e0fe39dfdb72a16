package dataset

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Load reads the selected sheet; its first row is the header.
func (xlsxLoader) Load(path string, opt Options) (*Dataset, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	sheet, err := pickSheet(f, opt)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return New(baseName(path), nil, nil)
	}

	header := rowCells(sheet.Rows[0])
	if opt.IndexColumn && len(header) > 0 {
		header = header[1:]
	}
	var records [][]string
	for _, row := range sheet.Rows[1:] {
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
		cells := rowCells(row)
		if opt.IndexColumn && len(cells) > 0 {
			cells = cells[1:]
		}
		// trailing blank cells are an artifact of sheet formatting
		for len(cells) > len(header) && strings.TrimSpace(cells[len(cells)-1]) == "" {
			cells = cells[:len(cells)-1]
		}
		records = append(records, cells)
	}
	return New(baseName(path), header, records)
}

func pickSheet(f *xlsx.File, opt Options) (*xlsx.Sheet, error) {
	if opt.SheetName != "" {
		sheet, ok := f.Sheet[opt.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opt.SheetName)
		}
		return sheet, nil
	}
	if opt.SheetIndex < 0 || opt.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opt.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opt.SheetIndex], nil
}

func rowCells(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
