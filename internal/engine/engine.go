// Package engine provides read-only access to the analytical sales store.
package engine

import (
	"fmt"
	"time"
)

// ColumnType classifies a result column for downstream shaping and chart
// selection. Every cell value is one of {integer, real, text, date, null}.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeReal    ColumnType = "real"
	TypeText    ColumnType = "text"
	TypeDate    ColumnType = "date"
)

// Column describes a single named, typed result column
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// ResultSet is an ordered set of typed columns and rows. Cell values are
// int64, float64, string, or nil; date cells are formatted as "2006-01-02".
type ResultSet struct {
	Columns []Column        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// RowCount returns the number of rows in the result set
func (rs *ResultSet) RowCount() int {
	return len(rs.Rows)
}

// ColumnIndex returns the index of the named column, or -1
func (rs *ResultSet) ColumnIndex(name string) int {
	for i, c := range rs.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// DistinctCount returns the number of distinct values in the given column.
// Nulls count as a single distinct value.
func (rs *ResultSet) DistinctCount(col int) int {
	if col < 0 || col >= len(rs.Columns) {
		return 0
	}
	seen := make(map[interface{}]struct{}, len(rs.Rows))
	for _, row := range rs.Rows {
		seen[row[col]] = struct{}{}
	}
	return len(seen)
}

// ErrorKind classifies engine-level failures
type ErrorKind string

const (
	ErrKindTimeout    ErrorKind = "timeout"
	ErrKindConnection ErrorKind = "connection"
	ErrKindSyntax     ErrorKind = "syntax"
	ErrKindEngine     ErrorKind = "engine"
)

// ExecutionError is a typed engine failure. The executor does not retry on
// its own; the orchestrator decides whether to re-run with a fallback query.
type ExecutionError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("engine %s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Config holds connection settings for the analytical store
type Config struct {
	Host         string
	Port         string
	Database     string
	Username     string
	Password     string
	SSLMode      string
	QueryTimeout time.Duration // wall-clock bound per query
	MaxRows      int           // hard row ceiling, enforced during scan
}
