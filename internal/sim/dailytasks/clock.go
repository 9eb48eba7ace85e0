package dailytasks

import "time"

// DateKey is the YYYY-MM-DD calendar day of now (unix millis) in loc.
func DateKey(now int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(now).In(loc).Format("2006-01-02")
}

// NextResetAt is the first local midnight in loc strictly after now, as
// unix millis.
func NextResetAt(now int64, loc *time.Location) int64 {
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(now).In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc).UnixMilli()
}
