package timeseries

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Panel holds one series per entity (country), all on the same frequency.
type Panel struct {
	Frequency int
	series    map[string]*Series
}

// NewPanel creates an empty panel.
func NewPanel(frequency int) *Panel {
	if frequency < 1 {
		frequency = DefaultFrequency
	}
	return &Panel{
		Frequency: frequency,
		series:    make(map[string]*Series),
	}
}

// Add stores s under id, replacing any previous series.
func (p *Panel) Add(id string, s *Series) error {
	if id == "" {
		return errors.New("panel id must not be empty")
	}
	if s == nil || s.Len() == 0 {
		return fmt.Errorf("panel %s: empty series", id)
	}
	if s.Frequency != 0 && s.Frequency != p.Frequency {
		return fmt.Errorf("panel %s: frequency %d does not match panel frequency %d", id, s.Frequency, p.Frequency)
	}
	s.Frequency = p.Frequency
	if s.Name == "" {
		s.Name = id
	}
	p.series[id] = s
	return nil
}

// Get returns the series stored under id.
func (p *Panel) Get(id string) (*Series, bool) {
	s, ok := p.series[id]
	return s, ok
}

// IDs returns the entity identifiers in sorted order.
func (p *Panel) IDs() []string {
	ids := make([]string, 0, len(p.series))
	for id := range p.series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of entities in the panel.
func (p *Panel) Len() int {
	return len(p.series)
}

// PanelOptions describes a long-format panel table (one row per entity and
// period).
type PanelOptions struct {
	IDColumn    string // Column holding the entity id (default: auto-detect "country", "id", "unique_id")
	DateColumn  string // Column holding the period (default: auto-detect "period", "date", "quarter", "ds")
	ValueColumn string // Column holding the value (default: auto-detect "value", "gdp", "y")
	Frequency   int    // Periods per year (default: 4)
	Delimiter   rune   // CSV field delimiter (default: ',')
	SkipRows    int    // Number of rows to skip before the header
}

// DefaultPanelOptions returns options for a quarterly country,period,value table.
func DefaultPanelOptions() *PanelOptions {
	return &PanelOptions{
		Frequency: DefaultFrequency,
		Delimiter: ',',
	}
}

type observation struct {
	period Period
	value  float64
}

// panelBuilder collects rows from any tabular source and assembles a Panel.
type panelBuilder struct {
	opts                     *PanelOptions
	idIdx, dateIdx, valueIdx int
	rows                     map[string][]observation
}

func newPanelBuilder(opts *PanelOptions) *panelBuilder {
	if opts == nil {
		opts = DefaultPanelOptions()
	}
	if opts.Frequency < 1 {
		opts.Frequency = DefaultFrequency
	}
	return &panelBuilder{
		opts:     opts,
		idIdx:    -1,
		dateIdx:  -1,
		valueIdx: -1,
		rows:     make(map[string][]observation),
	}
}

func (b *panelBuilder) header(headers []string) error {
	for i, h := range headers {
		h = strings.TrimSpace(strings.Trim(h, "\""))
		lower := strings.ToLower(h)
		switch {
		case b.opts.IDColumn != "" && h == b.opts.IDColumn:
			b.idIdx = i
		case b.opts.DateColumn != "" && h == b.opts.DateColumn:
			b.dateIdx = i
		case b.opts.ValueColumn != "" && h == b.opts.ValueColumn:
			b.valueIdx = i
		case b.opts.IDColumn == "" && b.idIdx == -1 && (lower == "country" || lower == "id" || lower == "unique_id" || lower == "location"):
			b.idIdx = i
		case b.opts.DateColumn == "" && b.dateIdx == -1 && (lower == "period" || lower == "date" || lower == "quarter" || lower == "ds" || lower == "time"):
			b.dateIdx = i
		case b.opts.ValueColumn == "" && b.valueIdx == -1 && (lower == "value" || lower == "gdp" || lower == "y"):
			b.valueIdx = i
		}
	}

	if b.idIdx == -1 || b.dateIdx == -1 {
		return errors.New("panel header must contain an id column and a period column")
	}
	if b.valueIdx == -1 {
		// Default to last column if not specified
		b.valueIdx = len(headers) - 1
	}
	return nil
}

func (b *panelBuilder) row(line int, record []string) error {
	if b.idIdx >= len(record) || b.dateIdx >= len(record) || b.valueIdx >= len(record) {
		return fmt.Errorf("row %d: expected at least %d fields, got %d", line, max(b.idIdx, b.dateIdx, b.valueIdx)+1, len(record))
	}

	id := strings.TrimSpace(strings.Trim(record[b.idIdx], "\""))
	if id == "" {
		return nil
	}

	valStr := strings.TrimSpace(strings.Trim(record[b.valueIdx], "\""))
	if valStr == "" || valStr == "NA" || valStr == "NaN" || valStr == "null" || valStr == ".." {
		return nil
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return fmt.Errorf("row %d: value %q: %w", line, valStr, err)
	}

	period, err := ParsePeriod(record[b.dateIdx], b.opts.Frequency)
	if err != nil {
		return fmt.Errorf("row %d: %w", line, err)
	}

	b.rows[id] = append(b.rows[id], observation{period: period, value: val})
	return nil
}

func (b *panelBuilder) build() (*Panel, error) {
	if len(b.rows) == 0 {
		return nil, errors.New("no valid data found in panel")
	}

	freq := b.opts.Frequency
	panel := NewPanel(freq)

	for id, obs := range b.rows {
		sort.SliceStable(obs, func(i, j int) bool { return obs[i].period.Before(obs[j].period) })

		values := make([]float64, len(obs))
		for i, o := range obs {
			if i > 0 {
				step := o.period.Index(freq) - obs[i-1].period.Index(freq)
				switch {
				case step == 0:
					return nil, fmt.Errorf("panel %s: duplicate period %s", id, o.period.Format(freq))
				case step != 1:
					return nil, fmt.Errorf("panel %s: gap between %s and %s", id, obs[i-1].period.Format(freq), o.period.Format(freq))
				}
			}
			values[i] = o.value
		}

		s, err := NewWithStart(values, obs[0].period, freq)
		if err != nil {
			return nil, fmt.Errorf("panel %s: %w", id, err)
		}
		s.Name = id
		if err := panel.Add(id, s); err != nil {
			return nil, err
		}
	}

	return panel, nil
}
