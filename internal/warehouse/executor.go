// Package warehouse runs the configured SQL query against the data
// warehouse under the credential chosen for the request.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/brporter/lakegate/internal/config"
	"github.com/brporter/lakegate/internal/identity"
	"github.com/brporter/lakegate/internal/metrics"
)

// DefaultQueryTimeout bounds a query when the config does not set one.
const DefaultQueryTimeout = 60 * time.Second

// Auth modes reported with results and errors.
const (
	ModeUserToken        = "user_token"
	ModeVerifiedToken    = "verified_token"
	ModeServicePrincipal = "service_principal"
)

// QueryError reports a failed query together with the credential mode it
// ran under.
type QueryError struct {
	Mode string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("Query failed (%s): %v", e.Mode, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Result is the outcome of a successful query.
type Result struct {
	Mode string
	Rows []Record
}

// Executor runs the configured query. Each run uses its own connection,
// released before Run returns.
type Executor struct {
	cfg     *config.Config
	opener  Opener
	metrics metrics.Metrics
	logger  *slog.Logger
}

// NewExecutor creates an executor. A nil m records nothing.
func NewExecutor(cfg *config.Config, opener Opener, m metrics.Metrics, logger *slog.Logger) *Executor {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Executor{cfg: cfg, opener: opener, metrics: m, logger: logger}
}

// CheckConfig reports a MissingSettingError when the warehouse cannot be
// addressed.
func (e *Executor) CheckConfig() error {
	if _, err := e.cfg.ServerHostname(); err != nil {
		return err
	}
	_, err := e.cfg.HTTPPath()
	return err
}

// Run executes the query as cred, or as the service identity when cred is
// nil.
func (e *Executor) Run(ctx context.Context, cred *identity.Credential) (*Result, error) {
	if err := e.CheckConfig(); err != nil {
		return nil, err
	}
	mode := ModeFor(cred)

	start := time.Now()
	rows, err := e.query(ctx, cred)
	elapsed := time.Since(start)
	if err != nil {
		e.metrics.ObserveQuery(mode, metrics.OutcomeFailed, elapsed.Seconds())
		e.logger.Warn("query failed", "mode", mode, "elapsed", elapsed, "err", err)
		return nil, &QueryError{Mode: mode, Err: err}
	}

	e.metrics.ObserveQuery(mode, metrics.OutcomeOK, elapsed.Seconds())
	e.logger.Info("query completed", "mode", mode, "rows", len(rows), "elapsed", elapsed)
	return &Result{Mode: mode, Rows: rows}, nil
}

func (e *Executor) query(ctx context.Context, cred *identity.Credential) ([]Record, error) {
	db, err := e.opener.Open(cred)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	defer db.Close()

	timeout := e.cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	query := e.cfg.Query
	if query == "" {
		query = config.DefaultQuery
	}
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	dbTypes := make([]string, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			dbTypes[i] = ct.DatabaseTypeName()
		}
	}

	records := []Record{}
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for rows.Next() {
		for i := range vals {
			vals[i] = nil
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			rec[c] = NormalizeColumn(vals[i], dbTypes[i])
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ModeFor names the auth mode a credential runs under.
func ModeFor(cred *identity.Credential) string {
	if cred == nil {
		return ModeServicePrincipal
	}
	if cred.Class == identity.NotebookNativeToken {
		return ModeVerifiedToken
	}
	return ModeUserToken
}
