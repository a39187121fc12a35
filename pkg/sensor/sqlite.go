package sensor

import (
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"k8s.io/klog/v2"
)

var identRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SQLite reads one value column of a table, keyed by a timestamp column.
// Timestamps are stored in UTC.
type SQLite struct {
	conn        *sql.DB
	table       string
	valueColumn string
	timeColumn  string
}

// OpenSQLite opens the database at dsn. Table and column names are checked
// and quoted because they cannot be passed as query parameters.
func OpenSQLite(dsn, table, valueColumn, timeColumn string) (*SQLite, error) {
	for _, id := range []string{table, valueColumn, timeColumn} {
		if !identRe.MatchString(id) {
			return nil, fmt.Errorf("invalid identifier: %q", id)
		}
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	// Jobs run in parallel, but only ever read.
	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &SQLite{conn: conn, table: table, valueColumn: valueColumn, timeColumn: timeColumn}, nil
}

// Query implements Source.
func (s *SQLite) Query(start, end time.Time) (Series, error) {
	// julianday() reads every text form SQLite accepts, with or without a
	// "T" separator or zone suffix, so rows compare by instant, not by text.
	q := fmt.Sprintf(`SELECT julianday("%s"), "%s" FROM "%s" WHERE julianday("%s") BETWEEN julianday(?) AND julianday(?) ORDER BY 1`,
		s.timeColumn, s.valueColumn, s.table, s.timeColumn)

	rows, err := s.conn.Query(q, start.UTC().Format(sqlTime), end.UTC().Format(sqlTime))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	out := Series{}
	for rows.Next() {
		var jd, v sql.NullFloat64
		if err := rows.Scan(&jd, &v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if !jd.Valid || !v.Valid {
			continue
		}
		out = append(out, Sample{Time: fromJulian(jd.Float64), Value: v.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	klog.V(1).Infof("%s.%s: %d samples between %s and %s", s.table, s.valueColumn, len(out), start, end)
	return out, nil
}

const (
	sqlTime = "2006-01-02 15:04:05.000"
	// julian day of 1970-01-01T00:00:00Z
	unixEpochJD = 2440587.5
)

// fromJulian converts a julian day number to UTC, to the millisecond.
func fromJulian(jd float64) time.Time {
	ms := math.Round((jd - unixEpochJD) * 86400000)
	return time.UnixMilli(int64(ms)).UTC()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
