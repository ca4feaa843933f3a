package parse

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/extrame/xls"
)

// TableXLS reads the first sheet of a legacy .xls export and maps it to rows
// keyed by the header line, with the same drop-mismatched-rows tolerance as
// Table. Some banking and budgeting tools still hand out .xls instead of CSV.
func TableXLS(data []byte) ([]Row, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("error creating workbook: %w", err)
	}

	cells := workbook.ReadAllCells(10000)
	if len(cells) == 0 {
		return nil, fmt.Errorf("no data found in sheet")
	}

	var header []string
	var rows []Row
	for _, cellRow := range cells {
		if blankRecord(cellRow) {
			continue
		}
		if header == nil {
			header = make([]string, len(cellRow))
			for i, h := range cellRow {
				header[i] = strings.TrimSpace(h)
			}
			continue
		}
		if len(cellRow) != len(header) {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			row[h] = strings.TrimSpace(cellRow[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}
