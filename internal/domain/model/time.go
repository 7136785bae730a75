package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// UnixTime is a timestamp carried on the wire as fractional unix seconds.
// JSON null and 0 decode to the zero time.
type UnixTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *UnixTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		// Some server versions quote the number.
		var s string
		if err2 := json.Unmarshal(b, &s); err2 != nil {
			return fmt.Errorf("unix time: %w", err)
		}
		secs, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("unix time: %w", err)
		}
	}
	if secs == 0 {
		t.Time = time.Time{}
		return nil
	}
	whole, frac := math.Modf(secs)
	t.Time = time.Unix(int64(whole), int64(frac*1e9))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t UnixTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("0"), nil
	}
	secs := float64(t.UnixNano()) / 1e9
	return []byte(strconv.FormatFloat(secs, 'f', 6, 64)), nil
}

// FromNow renders t relative to now, e.g. "3 hours ago".
func FromNow(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// FormatDate renders t as "January 2nd, 3:04:05 pm". The zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("January ") + humanize.Ordinal(t.Day()) + t.Format(", 3:04:05 pm")
}
