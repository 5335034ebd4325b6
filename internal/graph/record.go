package graph

import (
	"fmt"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// String returns the value under key as a string, or "" when absent.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Float returns the numeric value under key. Numeric strings are accepted.
func (r Record) Float(key string) (float64, error) {
	switch v := r[key].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", key, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("column %s is missing", key)
	default:
		return 0, fmt.Errorf("column %s has unexpected type %T", key, v)
	}
}

// Int returns the integer value under key.
func (r Record) Int(key string) (int64, error) {
	switch v := r[key].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case nil:
		return 0, fmt.Errorf("column %s is missing", key)
	default:
		return 0, fmt.Errorf("column %s has unexpected type %T", key, v)
	}
}

// Time returns the temporal value under key. Driver temporal types and
// RFC3339 strings are both accepted.
func (r Record) Time(key string) (time.Time, error) {
	switch v := r[key].(type) {
	case time.Time:
		return v.UTC(), nil
	case dbtype.LocalDateTime:
		return v.Time().UTC(), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("column %s: %w", key, err)
		}
		return t.UTC(), nil
	case nil:
		return time.Time{}, fmt.Errorf("column %s is missing", key)
	default:
		return time.Time{}, fmt.Errorf("column %s has unexpected type %T", key, v)
	}
}
