package db

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// LocalTime wraps time.Time so SQLite DATETIME columns scan into local time
// regardless of how the driver stored them.
type LocalTime struct {
	time.Time
}

// Scan implements sql.Scanner.
func (lt *LocalTime) Scan(value interface{}) error {
	if value == nil {
		lt.Time = time.Time{}
		return nil
	}

	switch v := value.(type) {
	case time.Time:
		lt.Time = v.Local()
		return nil
	case string:
		return lt.parse(v)
	case []byte:
		return lt.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into LocalTime", value)
	}
}

func (lt *LocalTime) parse(s string) error {
	// SQLite CURRENT_TIMESTAMP produces "2006-01-02 15:04:05" in UTC.
	formats := []string{
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
		time.RFC3339,
	}
	for _, f := range formats {
		if t, err := time.ParseInLocation(f, s, time.UTC); err == nil {
			lt.Time = t.Local()
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as time", s)
}

// Value implements driver.Valuer.
func (lt LocalTime) Value() (driver.Value, error) {
	if lt.Time.IsZero() {
		return nil, nil
	}
	return lt.Time.UTC().Format("2006-01-02 15:04:05"), nil
}
