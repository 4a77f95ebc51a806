// Package matrix reads and writes externally maintained pricing matrices
// and turns them into pricing tables.
package matrix

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/buyawarranty/warranty-quote/internal/pricing"
)

// Header is the column layout written by WriteXLSX and expected by ReadXLSX.
var Header = []string{"period", "excess", "claim_limit", "price"}

// ReadXLSX reads pricing cells from a workbook. The first row of the sheet
// must name the period, excess, claim_limit and price columns, in any order.
// An empty sheet name selects the first sheet.
func ReadXLSX(path, sheetName string) ([]pricing.Cell, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "matrix: open xlsx")
	}

	sheet, err := getSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	return parseRows(rows)
}

// WriteXLSX saves cells to a new workbook with a single "prices" sheet.
func WriteXLSX(path string, cells []pricing.Cell) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("prices")
	if err != nil {
		return eris.Wrap(err, "matrix: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range Header {
		header.AddCell().SetString(h)
	}
	for _, c := range cells {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(c.Period))
		row.AddCell().SetInt(c.Excess)
		row.AddCell().SetInt(c.ClaimLimit)
		row.AddCell().SetInt(c.Price)
	}

	return eris.Wrap(f.Save(path), "matrix: save xlsx")
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("matrix: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("matrix: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

// parseRows converts a header row plus data rows into cells. Blank rows are
// skipped.
func parseRows(rows [][]string) ([]pricing.Cell, error) {
	if len(rows) == 0 {
		return nil, eris.New("matrix: no header row")
	}

	idx, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	var cells []pricing.Cell
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		line := i + 2
		vals := make([]int, len(Header))
		for j, col := range Header {
			pos := idx[col]
			if pos >= len(row) {
				return nil, eris.Errorf("matrix: row %d: missing %s", line, col)
			}
			n, err := parseMoney(row[pos])
			if err != nil {
				return nil, eris.Wrapf(err, "matrix: row %d: %s", line, col)
			}
			vals[j] = n
		}
		cells = append(cells, pricing.Cell{
			Period:     pricing.Period(vals[0]),
			Excess:     vals[1],
			ClaimLimit: vals[2],
			Price:      vals[3],
		})
	}
	return cells, nil
}

func headerIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(Header))
	for i, h := range header {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		idx[key] = i
	}
	for _, col := range Header {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("matrix: header missing %q column", col)
		}
	}
	return idx, nil
}

// parseMoney accepts plain integers and spreadsheet-formatted amounts such
// as "£1,207" or "1207.00".
func parseMoney(s string) (int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "£")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, ".00")
	s = strings.TrimSuffix(s, ".0")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, eris.Errorf("not a whole number: %q", s)
	}
	return n, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
