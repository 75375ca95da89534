package processor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/salesight/sales-ai/internal/engine"
)

func resultSet(cols []engine.Column, rows ...[]interface{}) *engine.ResultSet {
	return &engine.ResultSet{Columns: cols, Rows: rows}
}

func TestSelectEmptyResultIsTable(t *testing.T) {
	selector := NewChartSelector(8, 8)

	rs := resultSet([]engine.Column{
		{Name: "month", Type: engine.TypeText},
		{Name: "total_revenue", Type: engine.TypeReal},
	})
	assert.Equal(t, ChartTable, selector.Select(rs).Kind)

	assert.Equal(t, ChartTable, selector.Select(nil).Kind)
}

func TestSelectMonthRevenueIsLine(t *testing.T) {
	selector := NewChartSelector(8, 8)

	rs := resultSet(
		[]engine.Column{
			{Name: "month", Type: engine.TypeText},
			{Name: "total_revenue", Type: engine.TypeReal},
		},
		[]interface{}{"2025-01", 1200.0},
		[]interface{}{"2025-02", 1350.0},
	)

	d := selector.Select(rs)
	assert.Equal(t, ChartLine, d.Kind)
	assert.Equal(t, "month", d.XAxis)
	assert.Equal(t, "total_revenue", d.YAxis)
	assert.Empty(t, d.Series)
}

func TestSelectMonthCategoryRevenueIsMultiSeriesLine(t *testing.T) {
	selector := NewChartSelector(8, 8)

	rs := resultSet(
		[]engine.Column{
			{Name: "month", Type: engine.TypeText},
			{Name: "category", Type: engine.TypeText},
			{Name: "total_revenue", Type: engine.TypeReal},
		},
		[]interface{}{"2025-01", "electronics", 800.0},
		[]interface{}{"2025-01", "clothing", 400.0},
		[]interface{}{"2025-02", "electronics", 900.0},
		[]interface{}{"2025-02", "clothing", 450.0},
	)

	d := selector.Select(rs)
	assert.Equal(t, ChartLine, d.Kind)
	assert.Equal(t, "month", d.XAxis)
	assert.Equal(t, "total_revenue", d.YAxis)
	assert.Equal(t, "category", d.Series)
}

func TestSelectWideSeriesFallsBackToBar(t *testing.T) {
	selector := NewChartSelector(8, 8)

	cols := []engine.Column{
		{Name: "month", Type: engine.TypeText},
		{Name: "category", Type: engine.TypeText},
		{Name: "total_revenue", Type: engine.TypeReal},
	}
	var rows [][]interface{}
	for i := 0; i < 12; i++ {
		rows = append(rows, []interface{}{"2025-01", fmt.Sprintf("cat-%d", i), 100.0})
	}

	d := selector.Select(resultSet(cols, rows...))
	assert.Equal(t, ChartBar, d.Kind)
}

func TestSelectRegionRevenueIsBarNotPie(t *testing.T) {
	// Four regions with a plain value column: rule order keeps this on bar
	// because the numeric column carries no share hint
	selector := NewChartSelector(8, 8)

	rs := resultSet(
		[]engine.Column{
			{Name: "region", Type: engine.TypeText},
			{Name: "total_revenue", Type: engine.TypeReal},
		},
		[]interface{}{"North", 100.0},
		[]interface{}{"South", 200.0},
		[]interface{}{"East", 300.0},
		[]interface{}{"West", 400.0},
	)

	d := selector.Select(rs)
	assert.Equal(t, ChartBar, d.Kind)
	assert.Equal(t, "region", d.XAxis)
	assert.Equal(t, "total_revenue", d.YAxis)
}

func TestSelectShareColumnIsPie(t *testing.T) {
	selector := NewChartSelector(8, 8)

	rs := resultSet(
		[]engine.Column{
			{Name: "region", Type: engine.TypeText},
			{Name: "revenue_share", Type: engine.TypeReal},
		},
		[]interface{}{"North", 0.1},
		[]interface{}{"South", 0.2},
		[]interface{}{"East", 0.3},
		[]interface{}{"West", 0.4},
	)

	d := selector.Select(rs)
	assert.Equal(t, ChartPie, d.Kind)
	assert.Equal(t, "region", d.XAxis)
	assert.Equal(t, "revenue_share", d.YAxis)
}

func TestSelectNegativeShareValuesAreNotPie(t *testing.T) {
	selector := NewChartSelector(8, 8)

	rs := resultSet(
		[]engine.Column{
			{Name: "region", Type: engine.TypeText},
			{Name: "revenue_share", Type: engine.TypeReal},
		},
		[]interface{}{"North", 0.5},
		[]interface{}{"South", -0.1},
	)

	assert.Equal(t, ChartBar, selector.Select(rs).Kind)
}

func TestSelectTooManyCategoriesForPie(t *testing.T) {
	selector := NewChartSelector(8, 8)

	cols := []engine.Column{
		{Name: "category", Type: engine.TypeText},
		{Name: "revenue_share", Type: engine.TypeReal},
	}
	var rows [][]interface{}
	for i := 0; i < 9; i++ {
		rows = append(rows, []interface{}{fmt.Sprintf("cat-%d", i), 0.1})
	}

	assert.Equal(t, ChartBar, selector.Select(resultSet(cols, rows...)).Kind)
}

func TestSelectTwoNumericIsScatter(t *testing.T) {
	selector := NewChartSelector(8, 8)

	rs := resultSet(
		[]engine.Column{
			{Name: "units", Type: engine.TypeInteger},
			{Name: "revenue", Type: engine.TypeReal},
		},
		[]interface{}{int64(3), 300.0},
		[]interface{}{int64(5), 520.0},
	)

	d := selector.Select(rs)
	assert.Equal(t, ChartScatter, d.Kind)
	assert.Equal(t, "units", d.XAxis)
	assert.Equal(t, "revenue", d.YAxis)
}

func TestSelectAllTextIsTable(t *testing.T) {
	selector := NewChartSelector(8, 8)

	rs := resultSet(
		[]engine.Column{
			{Name: "category", Type: engine.TypeText},
			{Name: "region", Type: engine.TypeText},
		},
		[]interface{}{"electronics", "North"},
	)

	assert.Equal(t, ChartTable, selector.Select(rs).Kind)
}

func TestSelectDateTypedColumnIsTemporal(t *testing.T) {
	selector := NewChartSelector(8, 8)

	rs := resultSet(
		[]engine.Column{
			{Name: "date", Type: engine.TypeDate},
			{Name: "revenue", Type: engine.TypeReal},
		},
		[]interface{}{"2025-01-01", 100.0},
		[]interface{}{"2025-01-02", 110.0},
	)

	assert.Equal(t, ChartLine, selector.Select(rs).Kind)
}

func TestSelectSingleNumericOverviewIsTable(t *testing.T) {
	// The overview fallback returns one row of aggregates: no categorical,
	// five numerics, nothing chartable
	selector := NewChartSelector(8, 8)

	rs := resultSet(
		[]engine.Column{
			{Name: "total_transactions", Type: engine.TypeInteger},
			{Name: "total_revenue", Type: engine.TypeReal},
			{Name: "total_units", Type: engine.TypeInteger},
			{Name: "avg_unit_price", Type: engine.TypeReal},
			{Name: "avg_transaction_value", Type: engine.TypeReal},
		},
		[]interface{}{int64(100), 50000.0, int64(800), 62.0, 500.0},
	)

	assert.Equal(t, ChartTable, selector.Select(rs).Kind)
}

func TestSelectDeterministic(t *testing.T) {
	selector := NewChartSelector(8, 8)

	rs := resultSet(
		[]engine.Column{
			{Name: "category", Type: engine.TypeText},
			{Name: "total_revenue", Type: engine.TypeReal},
		},
		[]interface{}{"electronics", 1000.0},
	)

	first := selector.Select(rs)
	second := selector.Select(rs)
	assert.Equal(t, first, second)
}
