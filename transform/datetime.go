package transform

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Date/time fields a DateTimeVectorizer can extract.
const (
	FieldYear    = "year"
	FieldMonth   = "month"
	FieldDay     = "day"
	FieldWeekday = "weekday"
	FieldHour    = "hour"
	FieldMinute  = "minute"
	FieldSecond  = "second"
)

// Vectorizer modes.
const (
	ModeCyclic  = "cyclic"
	ModeOrdinal = "ordinal"
)

// DefaultDateTimeFields is the extraction order used when Fields is empty.
var DefaultDateTimeFields = []string{FieldYear, FieldMonth, FieldDay, FieldWeekday, FieldHour, FieldMinute, FieldSecond}

// periods of the cyclic fields; year has none and is always ordinal.
var fieldPeriod = map[string]float64{
	FieldMonth:   12,
	FieldDay:     31,
	FieldWeekday: 7,
	FieldHour:    24,
	FieldMinute:  60,
	FieldSecond:  60,
}

var monthNames = map[string]time.Month{}

var weekdayNames = map[string]time.Weekday{}

func init() {
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		monthNames[name] = m
		monthNames[name[:3]] = m
	}
	monthNames["sept"] = time.September
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		weekdayNames[name] = d
		weekdayNames[name[:3]] = d
	}
}

// layouts tried in order; the flags say which fields the layout carries.
var dateTimeLayouts = []struct {
	layout        string
	date, clock   bool
	seconds, zone bool
}{
	{time.RFC3339Nano, true, true, true, true},
	{"2006-01-02 15:04:05", true, true, true, false},
	{"2006-01-02T15:04:05", true, true, true, false},
	{"2006-01-02 15:04", true, true, false, false},
	{"2006-01-02", true, false, false, false},
	{"2006/01/02", true, false, false, false},
	{"01/02/2006", true, false, false, false},
	{"02-Jan-2006", true, false, false, false},
	{"Jan 2, 2006", true, false, false, false},
	{"15:04:05", false, true, true, false},
	{"15:04", false, true, false, false},
}

// parseDateTime parses s into per-field values, taking fields s does not
// carry from def.
func parseDateTime(s string, def time.Time) (map[string]float64, bool) {
	s = strings.TrimSpace(s)
	if IsMissing(s) {
		return nil, false
	}
	fields := map[string]float64{
		FieldYear:    float64(def.Year()),
		FieldMonth:   float64(def.Month()),
		FieldDay:     float64(def.Day()),
		FieldWeekday: float64(def.Weekday()),
		FieldHour:    float64(def.Hour()),
		FieldMinute:  float64(def.Minute()),
		FieldSecond:  float64(def.Second()),
	}
	lower := strings.ToLower(s)
	if m, ok := monthNames[lower]; ok {
		fields[FieldMonth] = float64(m)
		return fields, true
	}
	if wd, ok := weekdayNames[lower]; ok {
		fields[FieldWeekday] = float64(wd)
		return fields, true
	}
	for _, l := range dateTimeLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		if l.date {
			fields[FieldYear] = float64(t.Year())
			fields[FieldMonth] = float64(t.Month())
			fields[FieldDay] = float64(t.Day())
			fields[FieldWeekday] = float64(t.Weekday())
		}
		if l.clock {
			fields[FieldHour] = float64(t.Hour())
			fields[FieldMinute] = float64(t.Minute())
			if l.seconds {
				fields[FieldSecond] = float64(t.Second())
			}
		}
		return fields, true
	}
	return nil, false
}

// DateTimeVectorizer turns date/time cells into numeric features. Each column
// yields the configured fields, minus those constant across the fit data. In
// cyclic mode every field but year is encoded as a sin/cos pair; in ordinal
// mode as its raw value. Cells that do not parse produce NaN features.
type DateTimeVectorizer struct {
	Mode            string
	Fields          []string
	DefaultDateTime time.Time

	// Kept lists, per input column, the fields that vary in the fit data.
	Kept   [][]string
	Fitted bool
}

func (d *DateTimeVectorizer) mode() (string, error) {
	switch d.Mode {
	case "", ModeCyclic:
		return ModeCyclic, nil
	case ModeOrdinal:
		return ModeOrdinal, nil
	}
	return "", fmt.Errorf("datetime vectorizer: %w: mode %q", ErrInvalidParam, d.Mode)
}

func (d *DateTimeVectorizer) defaultTime() time.Time {
	if d.DefaultDateTime.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return d.DefaultDateTime
}

func (d *DateTimeVectorizer) Fit(f *Frame) error {
	mode, err := d.mode()
	if err != nil {
		return err
	}
	fields := d.Fields
	if len(fields) == 0 {
		fields = DefaultDateTimeFields
	}
	for _, name := range fields {
		if _, ok := fieldPeriod[name]; !ok && name != FieldYear {
			return fmt.Errorf("datetime vectorizer: %w: field %q", ErrInvalidParam, name)
		}
	}
	def := d.defaultTime()
	rows := f.Strings()
	kept := make([][]string, f.Cols())
	for j := range kept {
		first := map[string]float64{}
		varies := map[string]bool{}
		for _, r := range rows {
			vals, ok := parseDateTime(r[j], def)
			if !ok {
				continue
			}
			for _, name := range fields {
				v0, seen := first[name]
				if !seen {
					first[name] = vals[name]
					continue
				}
				if vals[name] != v0 {
					varies[name] = true
				}
			}
		}
		for _, name := range fields {
			if varies[name] {
				kept[j] = append(kept[j], name)
			}
		}
	}
	d.Mode = mode
	d.Fields = fields
	d.DefaultDateTime = def
	d.Kept = kept
	d.Fitted = true
	return nil
}

// Width returns the fitted output width.
func (d *DateTimeVectorizer) Width() int {
	n := 0
	for _, fields := range d.Kept {
		for _, name := range fields {
			n += d.fieldWidth(name)
		}
	}
	return n
}

func (d *DateTimeVectorizer) fieldWidth(name string) int {
	if d.Mode == ModeCyclic && name != FieldYear {
		return 2
	}
	return 1
}

func (d *DateTimeVectorizer) Transform(f *Frame) (*Frame, error) {
	if !d.Fitted {
		return nil, fmt.Errorf("datetime vectorizer: %w", ErrNotFitted)
	}
	if err := checkCols("datetime vectorizer", f, len(d.Kept)); err != nil {
		return nil, err
	}
	width := d.Width()
	in := f.Strings()
	out := make([][]float64, len(in))
	for i, row := range in {
		vals := make([]float64, 0, width)
		for j, s := range row {
			parsed, ok := parseDateTime(s, d.DefaultDateTime)
			for _, name := range d.Kept[j] {
				if !ok {
					for k := 0; k < d.fieldWidth(name); k++ {
						vals = append(vals, math.NaN())
					}
					continue
				}
				v := parsed[name]
				if d.fieldWidth(name) == 1 {
					vals = append(vals, v)
					continue
				}
				angle := 2 * math.Pi * v / fieldPeriod[name]
				vals = append(vals, math.Sin(angle), math.Cos(angle))
			}
		}
		out[i] = vals
	}
	return numericFrame(out, width), nil
}
