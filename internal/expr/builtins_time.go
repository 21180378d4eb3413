package expr

import (
	"time"

	"github.com/jn-toolkit/jn/internal/record"
)

// parseTimeValue accepts an RFC3339 string or a numeric epoch-seconds
// value, the two timestamp representations NDJSON records carry in
// practice.
func parseTimeValue(rec record.Record) (time.Time, bool) {
	switch rec.Kind() {
	case record.KindString:
		t, err := time.Parse(time.RFC3339, rec.Str())
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case record.KindInt:
		return time.Unix(rec.Int(), 0).UTC(), true
	case record.KindFloat:
		sec := int64(rec.Float())
		nsec := int64((rec.Float() - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), true
	default:
		return time.Time{}, false
	}
}

// callTime dispatches the time/date built-ins. now() and
// today() ignore their input; the rest parse it as a timestamp.
func callTime(name string, args []record.Record, rec record.Record, clock func() time.Time) (EvalResult, bool) {
	switch name {
	case "now", "today", "epoch", "epoch_ms":
		t := clock()
		if t.Unix() < 0 { // a clock set before the epoch yields nothing rather than wrapping
			return empty(), true
		}
		switch name {
		case "now":
			return one(record.String(t.Format(time.RFC3339))), true
		case "today":
			return one(record.String(t.Format("2006-01-02"))), true
		case "epoch":
			return one(record.Int(t.Unix())), true
		default:
			return one(record.Int(t.UnixMilli())), true
		}
	}

	t, ok := parseTimeValue(rec)
	if !ok {
		switch name {
		case "year", "month", "day", "hour", "minute", "second", "week", "weekday", "ago", "delta":
			return empty(), true
		default:
			return EvalResult{}, false
		}
	}

	switch name {
	case "year":
		return one(record.Int(int64(t.Year()))), true
	case "month":
		return one(record.Int(int64(t.Month()))), true
	case "day":
		return one(record.Int(int64(t.Day()))), true
	case "hour":
		return one(record.Int(int64(t.Hour()))), true
	case "minute":
		return one(record.Int(int64(t.Minute()))), true
	case "second":
		return one(record.Int(int64(t.Second()))), true
	case "week":
		_, wk := t.ISOWeek()
		return one(record.Int(int64(wk))), true
	case "weekday":
		return one(record.Int(int64(t.Weekday()))), true
	case "ago":
		return one(record.Float(clock().Sub(t).Seconds())), true
	case "delta":
		if len(args) != 1 {
			return EvalResult{}, true
		}
		other, ok := parseTimeValue(args[0])
		if !ok {
			return empty(), true
		}
		return one(record.Float(t.Sub(other).Seconds())), true
	default:
		return EvalResult{}, false
	}
}
