package events

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Benny93/pfis-go/internal/lang"
)

const logQuery = "SELECT timestamp, action, target, referrer FROM logger_log ORDER BY timestamp"

// timestampLayouts are the formats the IDE loggers have written over time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses a logged timestamp. Timestamps without a zone are
// taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// LoadSQLite reads the logger_log table of a recorded session database into
// memory. Rows with actions this package does not know are dropped.
func LoadSQLite(ctx context.Context, path string, helper lang.Helper, logger *slog.Logger) (*Log, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("session database: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryContext(ctx, logQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query logger_log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	skipped := 0
	for rows.Next() {
		var ts, action string
		var target, referrer sql.NullString
		if err := rows.Scan(&ts, &action, &target, &referrer); err != nil {
			return nil, fmt.Errorf("failed to scan logger_log row: %w", err)
		}

		a := ParseAction(action)
		if a == ActionUnknown {
			skipped++
			continue
		}

		t, err := ParseTimestamp(ts)
		if err != nil {
			return nil, fmt.Errorf("logger_log row %q: %w", action, err)
		}

		records = append(records, Record{
			Timestamp: t,
			Action:    a,
			Target:    target.String,
			Referrer:  referrer.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read logger_log: %w", err)
	}

	logger.Debug("loaded session log", "path", path, "records", len(records), "skipped", skipped)
	return NewLog(helper, records), nil
}
