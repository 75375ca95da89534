package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesight/sales-ai/internal/engine"
)

func TestBuildInsightEmptyResult(t *testing.T) {
	rs := resultSet([]engine.Column{{Name: "month", Type: engine.TypeText}})
	assert.Equal(t, "No records matched the question.", buildInsight(rs))
	assert.Equal(t, "No records matched the question.", buildInsight(nil))
}

func TestBuildInsightIncludesRowCountAndStats(t *testing.T) {
	rs := resultSet(
		[]engine.Column{
			{Name: "category", Type: engine.TypeText},
			{Name: "total_revenue", Type: engine.TypeReal},
		},
		[]interface{}{"electronics", 100.0},
		[]interface{}{"clothing", 200.0},
		[]interface{}{"groceries", 300.0},
	)

	insight := buildInsight(rs)
	assert.Contains(t, insight, "Found 3 records.")
	assert.Contains(t, insight, "total_revenue ranges from 100 to 300 with an average of 200.")
}

func TestBuildInsightPrefersRevenueColumn(t *testing.T) {
	rs := resultSet(
		[]engine.Column{
			{Name: "total_units", Type: engine.TypeInteger},
			{Name: "total_revenue", Type: engine.TypeReal},
		},
		[]interface{}{int64(10), 500.0},
		[]interface{}{int64(20), 700.0},
	)

	assert.Contains(t, buildInsight(rs), "total_revenue ranges from")
}

func TestBuildInsightNoNumericColumns(t *testing.T) {
	rs := resultSet(
		[]engine.Column{{Name: "category", Type: engine.TypeText}},
		[]interface{}{"electronics"},
		[]interface{}{"clothing"},
	)

	assert.Equal(t, "Found 2 records.", buildInsight(rs))
}

func TestNumericColumnStatsSkipsNulls(t *testing.T) {
	rs := resultSet(
		[]engine.Column{
			{Name: "region", Type: engine.TypeText},
			{Name: "revenue", Type: engine.TypeReal},
		},
		[]interface{}{"North", 100.0},
		[]interface{}{"South", nil},
		[]interface{}{"East", 300.0},
	)

	stats, ok := numericColumnStats(rs, 1)
	require.True(t, ok)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 100.0, stats.Min)
	assert.Equal(t, 300.0, stats.Max)
	assert.Equal(t, 200.0, stats.Avg)
	assert.Equal(t, 400.0, stats.Sum)
}

func TestNumericColumnStatsAllNull(t *testing.T) {
	rs := resultSet(
		[]engine.Column{{Name: "revenue", Type: engine.TypeReal}},
		[]interface{}{nil},
	)

	_, ok := numericColumnStats(rs, 0)
	assert.False(t, ok)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "42", formatNumber(42))
	assert.Equal(t, "42.50", formatNumber(42.5))
	assert.Equal(t, "0", formatNumber(0))
}
