package excel

import (
	"io"
	"strings"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheets      = errors.New("workbook has no sheets")
	ErrSheetNotFound = errors.New("sheet not found")
)

// Workbook wraps an excelize file opened for reading. Callers must Close it.
type Workbook struct {
	file *excelize.File
}

func OpenReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workbook")
	}
	return &Workbook{file: f}, nil
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

// SheetNames returns visible sheet names in workbook order.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Rows returns every row of the sheet as trimmed string cells. Trailing
// empty cells are preserved up to the widest row excelize reports.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	idx, err := w.file.GetSheetIndex(sheet)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve sheet")
	}
	if idx < 0 {
		return nil, errors.Wrapf(ErrSheetNotFound, "sheet %q", sheet)
	}
	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %q", sheet)
	}
	for _, row := range rows {
		for i, cell := range row {
			row[i] = strings.TrimSpace(cell)
		}
	}
	return rows, nil
}

// FirstSheet returns the name of the first sheet in the workbook.
func (w *Workbook) FirstSheet() (string, error) {
	names := w.SheetNames()
	if len(names) == 0 {
		return "", ErrNoSheets
	}
	return names[0], nil
}

// Cell returns the trimmed value at the given column and row of a parsed
// row set, or an empty string when the row is too short.
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
