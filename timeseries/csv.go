package timeseries

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// LoadPanelCSV loads a long-format panel from a CSV file.
func LoadPanelCSV(filename string, opts *PanelOptions) (*Panel, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadPanelCSVFromReader(file, opts)
}

// LoadPanelCSVFromReader loads a long-format panel from an io.Reader.
// Rows with missing values ("", NA, NaN, null, ..) are skipped; the
// remaining observations of every entity must be contiguous.
func LoadPanelCSVFromReader(r io.Reader, opts *PanelOptions) (*Panel, error) {
	b := newPanelBuilder(opts)

	reader := csv.NewReader(r)
	if b.opts.Delimiter != 0 {
		reader.Comma = b.opts.Delimiter
	}
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	// Skip rows if needed
	for i := 0; i < b.opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, err
		}
	}

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := b.header(header); err != nil {
		return nil, err
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if err := b.row(line, record); err != nil {
			return nil, err
		}
	}

	return b.build()
}

// WriteSeriesCSV writes series as long-format series,period,value rows.
func WriteSeriesCSV(w io.Writer, series ...*Series) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"series", "period", "value"}); err != nil {
		return err
	}

	for _, s := range series {
		if s == nil {
			continue
		}
		for i, v := range s.Values {
			record := []string{
				s.Name,
				s.PeriodAt(i).Format(s.freq()),
				strconv.FormatFloat(v, 'f', -1, 64),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// SaveSeriesCSV writes series to a CSV file.
func SaveSeriesCSV(filename string, series ...*Series) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := WriteSeriesCSV(file, series...); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
