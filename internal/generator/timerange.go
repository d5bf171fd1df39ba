package generator

import "time"

// TruncateHour returns the top of the hour containing t, as seen in loc.
// It subtracts the local minutes so DST transitions never jump an extra hour.
func TruncateHour(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	offset := time.Duration(lt.Minute())*time.Minute +
		time.Duration(lt.Second())*time.Second +
		time.Duration(lt.Nanosecond())
	return lt.Add(-offset)
}

// RoundHour rounds t to the nearest hour in loc; minute 30 and later round up.
func RoundHour(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	truncated := TruncateHour(t, loc)
	if t.In(loc).Minute() >= 30 {
		return truncated.Add(time.Hour)
	}
	return truncated
}

// HourlyRange walks from the truncated start to the truncated end in one-hour
// strides, inclusive of both ends. An end before the start yields nil.
func HourlyRange(start, end time.Time, loc *time.Location) []time.Time {
	s := TruncateHour(start, loc)
	e := TruncateHour(end, loc)
	if e.Before(s) {
		return nil
	}

	out := make([]time.Time, 0, int(e.Sub(s)/time.Hour)+1)
	for ts := s; !ts.After(e); ts = ts.Add(time.Hour) {
		out = append(out, ts)
	}
	return out
}

// OneYearBefore returns the same wall-clock hour one calendar year earlier.
func OneYearBefore(t time.Time, loc *time.Location) time.Time {
	return TruncateHour(t, loc).AddDate(-1, 0, 0)
}
