package timeseries

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// LoadPanelXLSX loads a long-format panel from a worksheet. An empty sheet
// name selects the first worksheet.
func LoadPanelXLSX(filename, sheet string, opts *PanelOptions) (*Panel, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return loadPanelWorkbook(f, sheet, opts)
}

// LoadPanelXLSXFromReader loads a long-format panel from a workbook stream.
func LoadPanelXLSXFromReader(r io.Reader, sheet string, opts *PanelOptions) (*Panel, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return loadPanelWorkbook(f, sheet, opts)
}

func loadPanelWorkbook(f *excelize.File, sheet string, opts *PanelOptions) (*Panel, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	b := newPanelBuilder(opts)
	if len(rows) <= b.opts.SkipRows {
		return nil, fmt.Errorf("sheet %s: no header row", sheet)
	}
	rows = rows[b.opts.SkipRows:]

	if err := b.header(rows[0]); err != nil {
		return nil, err
	}
	for i, record := range rows[1:] {
		if len(record) == 0 {
			continue
		}
		// GetRows drops trailing empty cells.
		for len(record) < len(rows[0]) {
			record = append(record, "")
		}
		if err := b.row(i+2, record); err != nil {
			return nil, err
		}
	}

	return b.build()
}
