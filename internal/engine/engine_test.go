package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSalesCSV(t *testing.T) {
	t.Run("valid dataset", func(t *testing.T) {
		csv := strings.Join([]string{
			"date,category,units,unit_price,region,sales_channel,customer_segment,revenue",
			"2025-01-15,Electronics,3,1200,North,Online,Consumer,3600",
			"2025-02-03,Groceries,10,45,South,Store,Corporate,450",
		}, "\n")

		records, err := ParseSalesCSV(strings.NewReader(csv))
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, "2025-01", records[0].Month)
		assert.Equal(t, "Electronics", records[0].Category)
		assert.Equal(t, int64(3), records[0].Units)
		assert.Equal(t, int64(1200), records[0].UnitPrice)
		assert.Equal(t, 3600.0, records[0].Revenue)
		assert.Equal(t, "2025-02", records[1].Month)
	})

	t.Run("wrong header rejected", func(t *testing.T) {
		csv := "date,category,amount\n2025-01-15,Electronics,3600\n"
		_, err := ParseSalesCSV(strings.NewReader(csv))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected CSV header")
	})

	t.Run("bad date reported with line number", func(t *testing.T) {
		csv := strings.Join([]string{
			"date,category,units,unit_price,region,sales_channel,customer_segment,revenue",
			"15/01/2025,Electronics,3,1200,North,Online,Consumer,3600",
		}, "\n")
		_, err := ParseSalesCSV(strings.NewReader(csv))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
		assert.Contains(t, err.Error(), "invalid date")
	})

	t.Run("bad numeric field rejected", func(t *testing.T) {
		csv := strings.Join([]string{
			"date,category,units,unit_price,region,sales_channel,customer_segment,revenue",
			"2025-01-15,Electronics,many,1200,North,Online,Consumer,3600",
		}, "\n")
		_, err := ParseSalesCSV(strings.NewReader(csv))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid units")
	})
}

func TestMapColumnType(t *testing.T) {
	tests := []struct {
		dbType string
		want   ColumnType
	}{
		{"INT8", TypeInteger},
		{"INT4", TypeInteger},
		{"BIGINT", TypeInteger},
		{"NUMERIC", TypeReal},
		{"FLOAT8", TypeReal},
		{"DOUBLE PRECISION", TypeReal},
		{"DATE", TypeDate},
		{"TIMESTAMP", TypeDate},
		{"TEXT", TypeText},
		{"VARCHAR", TypeText},
		{"something_else", TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			assert.Equal(t, tt.want, mapColumnType(tt.dbType))
		})
	}
}

func TestConvertCell(t *testing.T) {
	assert.Nil(t, convertCell(nil, TypeText))
	assert.Equal(t, int64(42), convertCell(int64(42), TypeInteger))
	assert.Equal(t, 1.5, convertCell(1.5, TypeReal))
	assert.Equal(t, "hello", convertCell([]byte("hello"), TypeText))

	// NUMERIC arrives from the driver as bytes
	assert.Equal(t, 123.45, convertCell([]byte("123.45"), TypeReal))
	assert.Equal(t, int64(7), convertCell([]byte("7"), TypeInteger))

	// unparseable numerics fall back to text rather than losing the value
	assert.Equal(t, "not-a-number", convertCell([]byte("not-a-number"), TypeReal))
}

func TestClassifyError(t *testing.T) {
	t.Run("deadline exceeded is a timeout", func(t *testing.T) {
		execErr := classifyError(context.DeadlineExceeded)
		assert.Equal(t, ErrKindTimeout, execErr.Kind)
	})

	t.Run("syntax class maps to syntax", func(t *testing.T) {
		execErr := classifyError(&pq.Error{Code: "42601", Message: `syntax error at or near "FORM"`})
		assert.Equal(t, ErrKindSyntax, execErr.Kind)
		assert.Contains(t, execErr.Message, "syntax error")
	})

	t.Run("undefined column maps to syntax", func(t *testing.T) {
		execErr := classifyError(&pq.Error{Code: "42703", Message: `column "reven" does not exist`})
		assert.Equal(t, ErrKindSyntax, execErr.Kind)
	})

	t.Run("connection class maps to connection", func(t *testing.T) {
		execErr := classifyError(&pq.Error{Code: "08006", Message: "connection failure"})
		assert.Equal(t, ErrKindConnection, execErr.Kind)
	})

	t.Run("other engine errors keep engine kind", func(t *testing.T) {
		execErr := classifyError(&pq.Error{Code: "53200", Message: "out of memory"})
		assert.Equal(t, ErrKindEngine, execErr.Kind)
	})
}

func TestResultSetHelpers(t *testing.T) {
	rs := &ResultSet{
		Columns: []Column{
			{Name: "region", Type: TypeText},
			{Name: "revenue", Type: TypeReal},
		},
		Rows: [][]interface{}{
			{"North", 100.0},
			{"South", 200.0},
			{"North", 150.0},
			{nil, 50.0},
		},
	}

	assert.Equal(t, 4, rs.RowCount())
	assert.Equal(t, 0, rs.ColumnIndex("region"))
	assert.Equal(t, 1, rs.ColumnIndex("revenue"))
	assert.Equal(t, -1, rs.ColumnIndex("missing"))
	assert.Equal(t, 3, rs.DistinctCount(0)) // North, South, nil
	assert.Equal(t, 0, rs.DistinctCount(5))
}
