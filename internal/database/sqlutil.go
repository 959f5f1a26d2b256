package database

import (
	"database/sql"
	"errors"
	"time"
)

// TimeLayout is the stored form of every timestamp column.
const TimeLayout = time.RFC3339Nano

// DateLayout is the stored form of calendar-day columns.
const DateLayout = "2006-01-02"

func NullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func NullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func FormatTime(value time.Time) string {
	return value.UTC().Format(TimeLayout)
}

// ParseTime accepts RFC 3339 timestamps and SQLite's CURRENT_TIMESTAMP form.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(TimeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// IntPtr converts a nullable column into an optional int.
func IntPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}

func MakePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
