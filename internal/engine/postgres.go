package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	defaultQueryTimeout = 15 * time.Second
	defaultMaxRows      = 1000
)

// Client executes read-only queries against the PostgreSQL-backed sales store.
// The connection pool is opened once at startup, shared across requests, and
// closed at shutdown; nothing in this package ever writes through it except
// the dataset loader.
type Client struct {
	db           *sql.DB
	queryTimeout time.Duration
	maxRows      int
}

// NewClient opens the analytical store connection and verifies it
func NewClient(config Config) (*Client, error) {
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = defaultQueryTimeout
	}
	if config.MaxRows <= 0 {
		config.MaxRows = defaultMaxRows
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Client{
		db:           db,
		queryTimeout: config.QueryTimeout,
		maxRows:      config.MaxRows,
	}, nil
}

// NewClientWithDB wraps an existing database handle. Used by tests and the
// migration/seed command which manage the handle themselves.
func NewClientWithDB(db *sql.DB, queryTimeout time.Duration, maxRows int) *Client {
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	return &Client{db: db, queryTimeout: queryTimeout, maxRows: maxRows}
}

// Ping tests the store connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the store connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Query runs a single vetted statement under the configured wall-clock
// timeout and row ceiling, returning a typed ResultSet or an ExecutionError.
func (c *Client) Query(ctx context.Context, query string) (*ResultSet, error) {
	queryCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	rows, err := c.db.QueryContext(queryCtx, query)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	result, err := scanResultSet(rows, c.maxRows)
	if err != nil {
		return nil, classifyError(err)
	}
	return result, nil
}

// scanResultSet reads rows into a ResultSet, stopping at the row ceiling.
// The ceiling is already embedded in the query's LIMIT clause; stopping here
// as well keeps the bound even if a vetted template ever drops its LIMIT.
func scanResultSet(rows *sql.Rows, maxRows int) (*ResultSet, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}

	columns := make([]Column, len(columnTypes))
	for i, ct := range columnTypes {
		columns[i] = Column{
			Name: ct.Name(),
			Type: mapColumnType(ct.DatabaseTypeName()),
		}
	}

	result := &ResultSet{
		Columns: columns,
		Rows:    make([][]interface{}, 0),
	}

	raw := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	for rows.Next() {
		if len(result.Rows) >= maxRows {
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}

		row := make([]interface{}, len(columns))
		for i, v := range raw {
			row[i] = convertCell(v, columns[i].Type)
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}

	return result, nil
}

// mapColumnType maps PostgreSQL type names onto the result type model
func mapColumnType(dbType string) ColumnType {
	switch strings.ToUpper(dbType) {
	case "INT2", "INT4", "INT8", "BIGINT", "INTEGER", "SMALLINT":
		return TypeInteger
	case "FLOAT4", "FLOAT8", "NUMERIC", "DECIMAL", "DOUBLE PRECISION", "REAL":
		return TypeReal
	case "DATE", "TIMESTAMP", "TIMESTAMPTZ":
		return TypeDate
	default:
		return TypeText
	}
}

// convertCell normalizes driver values into the cell model:
// int64, float64, string, or nil
func convertCell(v interface{}, colType ColumnType) interface{} {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case int64:
		return val
	case float64:
		return val
	case time.Time:
		return val.Format("2006-01-02")
	case bool:
		if val {
			return "true"
		}
		return "false"
	case []byte:
		s := string(val)
		// NUMERIC arrives as text from the driver
		if colType == TypeReal {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
		if colType == TypeInteger {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i
			}
		}
		return s
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// classifyError maps driver and context errors onto typed ExecutionErrors
func classifyError(err error) *ExecutionError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ExecutionError{Kind: ErrKindTimeout, Message: "query exceeded execution timeout", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &ExecutionError{Kind: ErrKindTimeout, Message: "query cancelled", Cause: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 42 covers syntax errors and bad identifiers, class 22 data
		// exceptions like type mismatches in expressions.
		class := string(pqErr.Code.Class())
		switch class {
		case "42", "22":
			return &ExecutionError{Kind: ErrKindSyntax, Message: pqErr.Message, Cause: err}
		case "08":
			return &ExecutionError{Kind: ErrKindConnection, Message: pqErr.Message, Cause: err}
		}
		return &ExecutionError{Kind: ErrKindEngine, Message: pqErr.Message, Cause: err}
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") {
		return &ExecutionError{Kind: ErrKindConnection, Message: msg, Cause: err}
	}
	return &ExecutionError{Kind: ErrKindEngine, Message: msg, Cause: err}
}
