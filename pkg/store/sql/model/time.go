package model

import "time"

func fromMillis(millis int64) time.Time {
	return time.UnixMilli(millis).UTC()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}
