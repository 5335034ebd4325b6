package service

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/chronos/internal/domain"
)

// Defaults substituted for missing optional fields.
const (
	DefaultScenario = "unknown"
	UnknownAccount  = "UNKNOWN"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// RawRecord is a loosely typed transaction as decoded from JSON.
type RawRecord map[string]any

// ValidationError names the record and field that could not be normalized.
type ValidationError struct {
	Index  int
	ID     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("record %d (%s): %s: %s", e.Index, e.ID, e.Field, e.Reason)
	}
	return fmt.Sprintf("record %d: %s: %s", e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == domain.ErrValidation
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize converts raw records into transactions. The first record with a
// missing or unparseable timestamp or amount fails the whole batch.
func Normalize(records []RawRecord) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0, len(records))
	for i, rec := range records {
		tx, err := normalizeRecord(i, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// DecodeRecords parses a JSON array of records.
func DecodeRecords(data []byte) ([]RawRecord, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var records []RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decode records: %v", domain.ErrValidation, err)
	}
	return records, nil
}

func normalizeRecord(index int, rec RawRecord) (domain.Transaction, error) {
	id := rec.text("id", "transaction_id")
	if id == "" {
		id = fmt.Sprintf("record-%d", index)
	}
	fail := func(field, reason string) error {
		return &ValidationError{Index: index, ID: id, Field: field, Reason: reason}
	}

	ts, err := parseTimestamp(rec["timestamp"])
	if err != nil {
		return domain.Transaction{}, fail("timestamp", err.Error())
	}

	amount, err := parseAmount(rec["amount"])
	if err != nil {
		return domain.Transaction{}, fail("amount", err.Error())
	}

	score, _ := parseNumber(rec.first("suspicious_score", "suspicion_score"))
	scenario := rec.text("scenario")
	if scenario == "" {
		scenario = DefaultScenario
	}

	return domain.Transaction{
		ID:             id,
		Timestamp:      ts,
		Amount:         amount,
		FromAccount:    orDefault(rec.text("from_account"), UnknownAccount),
		ToAccount:      orDefault(rec.text("to_account"), UnknownAccount),
		SuspicionScore: clamp01(score),
		Scenario:       scenario,
		PatternType:    rec.text("pattern_type"),
		Description:    rec.text("description"),
	}, nil
}

func (r RawRecord) first(keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func (r RawRecord) text(keys ...string) string {
	switch v := r.first(keys...).(type) {
	case nil:
		return ""
	case string:
		return sanitizeString(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return sanitizeString(fmt.Sprint(v))
	}
}

func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("missing")
	case time.Time:
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return unixTime(secs)
		}
		return time.Time{}, fmt.Errorf("unparseable value %q", s)
	default:
		secs, err := parseNumber(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("unsupported type %T", v)
		}
		return unixTime(secs)
	}
}

// maxUnixSeconds bounds numeric timestamps to roughly the year 5138.
const maxUnixSeconds = 1e11

func unixTime(secs float64) (time.Time, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) || math.Abs(secs) > maxUnixSeconds {
		return time.Time{}, fmt.Errorf("out of range value %v", secs)
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}

func parseAmount(v any) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch a := v.(type) {
	case nil:
		return decimal.Decimal{}, fmt.Errorf("missing")
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(a))
	case json.Number:
		d, err = decimal.NewFromString(a.String())
	case decimal.Decimal:
		d = a
	default:
		var f float64
		f, err = parseNumber(v)
		if err == nil {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return decimal.Decimal{}, fmt.Errorf("not a finite number")
			}
			d = decimal.NewFromFloat(f)
		}
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not numeric: %v", v)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative amount %s", d)
	}
	return d, nil
}

func parseNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("not numeric")
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}
