package utils

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", "20060102"}

// ParseDate accepts 2006-01-02 or 20060102. An empty string or "0" is the zero time, meaning unbounded.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return time.Time{}, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("ParseDate: unsupported date %q, expected YYYY-MM-DD or YYYYMMDD", value)
}

// FormatDate is the compact form used in result names. The zero time formats as "0".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "0"
	}

	return t.Format("20060102")
}
