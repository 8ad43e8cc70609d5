package timeseries

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Period identifies one observation slot: a year and a 1-based sub-period
// (quarter for frequency 4, month for frequency 12).
type Period struct {
	Year int
	Sub  int
}

// Index returns the absolute position of the period on a calendar with
// the given number of periods per year.
func (p Period) Index(frequency int) int {
	return p.Year*frequency + (p.Sub - 1)
}

// Add moves the period n steps forward (negative n moves backward).
func (p Period) Add(n, frequency int) Period {
	return PeriodFromIndex(p.Index(frequency)+n, frequency)
}

// Before reports whether p comes strictly before q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Sub < q.Sub
}

// PeriodFromIndex is the inverse of Period.Index.
func PeriodFromIndex(idx, frequency int) Period {
	year := idx / frequency
	sub := idx % frequency
	if sub < 0 {
		sub += frequency
		year--
	}
	return Period{Year: year, Sub: sub + 1}
}

// String formats quarters as "2019-Q4", months as "2019-M07" and anything
// else as "2019-3".
func (p Period) String() string {
	return p.Format(4)
}

// Format renders the period for the given frequency.
func (p Period) Format(frequency int) string {
	switch frequency {
	case 1:
		return strconv.Itoa(p.Year)
	case 4:
		return fmt.Sprintf("%d-Q%d", p.Year, p.Sub)
	case 12:
		return fmt.Sprintf("%d-M%02d", p.Year, p.Sub)
	default:
		return fmt.Sprintf("%d-%d", p.Year, p.Sub)
	}
}

// ParsePeriod accepts "2019-Q4", "2019Q4", "2019 Q4", "2019-M07",
// ISO dates ("2019-10-01", mapped onto the frequency) and bare years.
func ParsePeriod(s string, frequency int) (Period, error) {
	s = strings.TrimSpace(strings.Trim(s, "\""))
	if s == "" {
		return Period{}, errors.New("empty period")
	}

	upper := strings.ToUpper(s)
	for _, sep := range []string{"-Q", " Q", "Q", "-M", " M", "M"} {
		idx := strings.Index(upper, sep)
		if idx <= 0 {
			continue
		}
		year, err := strconv.Atoi(upper[:idx])
		if err != nil {
			continue
		}
		sub, err := strconv.Atoi(upper[idx+len(sep):])
		if err != nil {
			continue
		}
		if sub < 1 || sub > frequency {
			return Period{}, fmt.Errorf("period %q: sub-period %d out of range 1..%d", s, sub, frequency)
		}
		return Period{Year: year, Sub: sub}, nil
	}

	// ISO date: YYYY-MM-DD, month mapped to sub-period.
	if parts := strings.Split(s, "-"); len(parts) == 3 {
		year, errY := strconv.Atoi(parts[0])
		month, errM := strconv.Atoi(parts[1])
		if errY == nil && errM == nil && month >= 1 && month <= 12 {
			sub := (month-1)*frequency/12 + 1
			return Period{Year: year, Sub: sub}, nil
		}
	}

	if year, err := strconv.Atoi(s); err == nil {
		return Period{Year: year, Sub: 1}, nil
	}

	return Period{}, fmt.Errorf("unrecognised period %q", s)
}
