package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/psq/db"
	"github.com/teranos/psq/errors"
	"github.com/teranos/psq/peoplesoft"
)

// Run is one row of the query_runs ledger
type Run struct {
	ID                int64              `json:"id"`
	RunID             string             `json:"run_id"`
	QueryName         string             `json:"query_name"`
	Prompts           peoplesoft.Prompts `json:"prompts"`
	MaxRows           int                `json:"maxrows"`
	Security          string             `json:"security"`
	URL               string             `json:"url"`
	StatusCode        int                `json:"status_code"`
	RowCount          int                `json:"row_count"`
	Success           bool               `json:"success"`
	ErrorKind         *string            `json:"error_kind,omitempty"`
	ErrorMessage      *string            `json:"error_message,omitempty"`
	DurationMS        int64              `json:"duration_ms"`
	RequestTimestamp  time.Time          `json:"request_timestamp"`
	ResponseTimestamp time.Time          `json:"response_timestamp"`
}

// Stats aggregates runs over a period
type Stats struct {
	TotalRuns        int     `json:"total_runs"`
	SuccessfulRuns   int     `json:"successful_runs"`
	SuccessRate      float64 `json:"success_rate"`
	TotalRows        int     `json:"total_rows"`
	UniqueQueries    int     `json:"unique_queries"`
	TransportErrors  int     `json:"transport_errors"`
	RemoteRejections int     `json:"remote_rejections"`
	ParseErrors      int     `json:"parse_errors"`
	AvgDurationMS    float64 `json:"avg_duration_ms"`
}

// QueryBreakdown summarizes runs of one query
type QueryBreakdown struct {
	QueryName     string    `json:"query_name"`
	RunCount      int       `json:"run_count"`
	FailureCount  int       `json:"failure_count"`
	TotalRows     int       `json:"total_rows"`
	AvgDurationMS float64   `json:"avg_duration_ms"`
	LastRun       time.Time `json:"last_run"`
}

// Store records ExecuteQuery runs in SQLite. It implements peoplesoft.Recorder.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

var _ peoplesoft.Recorder = (*Store)(nil)

// NewStore wraps an open database that already has the query_runs table
func NewStore(database *sql.DB, logger *zap.SugaredLogger) *Store {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Store{db: database, logger: logger}
}

// Open opens (creating and migrating as needed) the history database at path
func Open(path string, logger *zap.SugaredLogger) (*Store, error) {
	database, err := db.OpenWithMigrations(path, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}
	return NewStore(database, logger), nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun converts a finished client run into a ledger row
func (s *Store) RecordRun(ctx context.Context, rec peoplesoft.RunRecord) error {
	run := &Run{
		RunID:             rec.RunID,
		QueryName:         rec.Query,
		Prompts:           rec.Prompts,
		MaxRows:           rec.Options.MaxRows,
		Security:          rec.Options.Security,
		URL:               rec.URL,
		StatusCode:        rec.StatusCode,
		RowCount:          rec.RowCount,
		Success:           rec.Success(),
		DurationMS:        rec.Finished.Sub(rec.Started).Milliseconds(),
		RequestTimestamp:  rec.Started,
		ResponseTimestamp: rec.Finished,
	}
	if rec.Err != nil {
		kind := peoplesoft.ErrorKind(rec.Err)
		msg := rec.Err.Error()
		run.ErrorKind = &kind
		run.ErrorMessage = &msg
	}
	return s.Record(ctx, run)
}

// Record inserts a run. Prompts are stored as a JSON array so their order survives.
func (s *Store) Record(ctx context.Context, run *Run) error {
	prompts := run.Prompts
	if prompts == nil {
		prompts = peoplesoft.Prompts{}
	}
	promptJSON, err := json.Marshal(prompts)
	if err != nil {
		return errors.Wrap(err, "failed to encode prompts")
	}

	query := `
		INSERT INTO query_runs (
			run_id, query_name, prompts, maxrows, security, url,
			status_code, row_count, success, error_kind, error_message,
			duration_ms, request_timestamp, response_timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		run.RunID, run.QueryName, string(promptJSON), run.MaxRows, run.Security, stripUserinfo(run.URL),
		run.StatusCode, run.RowCount, run.Success, run.ErrorKind, run.ErrorMessage,
		run.DurationMS, run.RequestTimestamp.UTC(), run.ResponseTimestamp.UTC(),
	)
	if err != nil {
		if db.IsDatabaseClosed(err) {
			return errors.Mark(errors.Wrapf(err, "record run %s", run.RunID), db.ErrDatabaseClosed)
		}
		return errors.Wrapf(err, "record run %s", run.RunID)
	}

	s.logger.Debugw("Recorded run", "run_id", run.RunID, "query", run.QueryName, "success", run.Success)
	return nil
}

// Recent returns the newest runs first
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, run_id, query_name, prompts, maxrows, security, url,
		       status_code, row_count, success, error_kind, error_message,
		       duration_ms, request_timestamp, response_timestamp
		FROM query_runs
		ORDER BY request_timestamp DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var promptJSON string
		if err := rows.Scan(&r.ID, &r.RunID, &r.QueryName, &promptJSON, &r.MaxRows, &r.Security, &r.URL,
			&r.StatusCode, &r.RowCount, &r.Success, &r.ErrorKind, &r.ErrorMessage,
			&r.DurationMS, &r.RequestTimestamp, &r.ResponseTimestamp); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		if err := json.Unmarshal([]byte(promptJSON), &r.Prompts); err != nil {
			s.logger.Warnw("Stored prompts are not valid JSON", "run_id", r.RunID, "error", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate runs")
	}

	return runs, nil
}

// Stats returns aggregate statistics for runs started at or after since
func (s *Store) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) as total_runs,
			COUNT(CASE WHEN success = 1 THEN 1 END) as successful_runs,
			COALESCE(SUM(row_count), 0) as total_rows,
			COUNT(DISTINCT query_name) as unique_queries,
			COUNT(CASE WHEN error_kind = 'transport' THEN 1 END) as transport_errors,
			COUNT(CASE WHEN error_kind = 'remote_rejection' THEN 1 END) as remote_rejections,
			COUNT(CASE WHEN error_kind = 'parse' THEN 1 END) as parse_errors,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms
		FROM query_runs
		WHERE request_timestamp >= ?`

	var stats Stats
	err := s.db.QueryRowContext(ctx, query, since.UTC()).Scan(
		&stats.TotalRuns, &stats.SuccessfulRuns, &stats.TotalRows, &stats.UniqueQueries,
		&stats.TransportErrors, &stats.RemoteRejections, &stats.ParseErrors, &stats.AvgDurationMS,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query run stats")
	}

	if stats.TotalRuns > 0 {
		stats.SuccessRate = float64(stats.SuccessfulRuns) / float64(stats.TotalRuns)
	}

	return &stats, nil
}

// Breakdown returns per-query statistics, most-run first
func (s *Store) Breakdown(ctx context.Context, since time.Time) ([]QueryBreakdown, error) {
	query := `
		SELECT
			query_name,
			COUNT(*) as run_count,
			COUNT(CASE WHEN success = 0 THEN 1 END) as failure_count,
			COALESCE(SUM(row_count), 0) as total_rows,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
			MAX(request_timestamp) as last_run
		FROM query_runs
		WHERE request_timestamp >= ?
		GROUP BY query_name
		ORDER BY run_count DESC, query_name ASC`

	rows, err := s.db.QueryContext(ctx, query, since.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "query breakdown")
	}
	defer rows.Close()

	breakdown := []QueryBreakdown{}
	for rows.Next() {
		var qb QueryBreakdown
		var lastRun string
		if err := rows.Scan(&qb.QueryName, &qb.RunCount, &qb.FailureCount, &qb.TotalRows, &qb.AvgDurationMS, &lastRun); err != nil {
			return nil, errors.Wrap(err, "scan breakdown")
		}
		qb.LastRun = parseSQLiteTime(lastRun)
		breakdown = append(breakdown, qb)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate breakdown")
	}

	return breakdown, nil
}

// sqliteTimeFormats are the layouts go-sqlite3 writes time.Time values in
var sqliteTimeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// parseSQLiteTime parses aggregate results, which come back as text
func parseSQLiteTime(s string) time.Time {
	for _, layout := range sqliteTimeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// stripUserinfo drops user:pass@ from a URL before it is stored
func stripUserinfo(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = nil
	return u.String()
}
