// Package export writes visualization snapshots for external consumers.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/vanshika/chronos/internal/domain"
)

// Exporter serializes a snapshot.
type Exporter interface {
	Format() string
	ContentType() string
	Write(w io.Writer, snap domain.Snapshot) error
}

// ForFormat returns the exporter registered for format ("json" or "csv").
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return JSON{Indent: true}, nil
	case "csv":
		return CSV{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// FileName builds "chronos_<scenario>_<yyyymmdd-hhmmss>.<format>".
func FileName(snap domain.Snapshot, e Exporter) string {
	scenario := snap.Scenario
	if scenario == "" {
		scenario = "all"
	}
	return fmt.Sprintf("chronos_%s_%s.%s", scenario, snap.TakenAt.UTC().Format("20060102-150405"), e.Format())
}

// JSON writes the whole snapshot.
type JSON struct {
	Indent bool
}

func (JSON) Format() string      { return "json" }
func (JSON) ContentType() string { return "application/json" }

func (j JSON) Write(w io.Writer, snap domain.Snapshot) error {
	enc := json.NewEncoder(w)
	if j.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// CSV writes one row per transaction.
type CSV struct{}

func (CSV) Format() string      { return "csv" }
func (CSV) ContentType() string { return "text/csv" }

var csvHeader = []string{
	"id", "timestamp", "from_account", "to_account", "amount",
	"suspicious_score", "level", "scenario", "pattern_type", "description",
}

func (CSV) Write(w io.Writer, snap domain.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, tx := range snap.Transactions {
		row := []string{
			tx.ID,
			tx.Timestamp.UTC().Format(time.RFC3339),
			tx.FromAccount,
			tx.ToAccount,
			tx.Amount.StringFixed(2),
			strconv.FormatFloat(tx.SuspicionScore, 'f', -1, 64),
			string(tx.Level()),
			tx.Scenario,
			tx.PatternType,
			tx.Description,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", tx.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
