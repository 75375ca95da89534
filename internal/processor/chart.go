package processor

import (
	"strings"

	"github.com/salesight/sales-ai/internal/engine"
)

// ChartKind names the visualization a result set should render as
type ChartKind string

const (
	ChartBar     ChartKind = "bar"
	ChartLine    ChartKind = "line"
	ChartPie     ChartKind = "pie"
	ChartScatter ChartKind = "scatter"
	ChartTable   ChartKind = "table"
)

// ChartDirective tells the client what to draw and which columns bind to
// which axis. For pies X is the label column and Y the value column.
type ChartDirective struct {
	Kind   ChartKind `json:"kind"`
	XAxis  string    `json:"x_axis,omitempty"`
	YAxis  string    `json:"y_axis,omitempty"`
	Series string    `json:"series,omitempty"`
}

// shareHints mark a numeric column as a proportion of a whole, the only
// shape a pie chart represents honestly
var shareHints = []string{"share", "ratio", "pct", "percent", "proportion"}

// ChartSelector maps a result set's shape onto a chart directive.
// Deterministic and total: every result set gets exactly one directive.
type ChartSelector struct {
	pieMaxCategories     int
	seriesMaxCardinality int
}

// NewChartSelector creates a selector with the given cardinality thresholds
func NewChartSelector(pieMaxCategories, seriesMaxCardinality int) *ChartSelector {
	if pieMaxCategories <= 0 {
		pieMaxCategories = 8
	}
	if seriesMaxCardinality <= 0 {
		seriesMaxCardinality = 8
	}
	return &ChartSelector{
		pieMaxCategories:     pieMaxCategories,
		seriesMaxCardinality: seriesMaxCardinality,
	}
}

// Select applies the shape rules in order:
//  1. temporal + one numeric, optional low-cardinality categorical → line
//  2. one low-cardinality categorical + one non-negative numeric whose name
//     carries a share hint → pie
//  3. exactly two numeric, nothing else → scatter
//  4. any categorical with any numeric → bar
//  5. everything else, including empty results → table
func (s *ChartSelector) Select(rs *engine.ResultSet) ChartDirective {
	if rs == nil || rs.RowCount() == 0 {
		return ChartDirective{Kind: ChartTable}
	}

	var temporal, numeric, categorical []int
	for i, col := range rs.Columns {
		switch {
		case isTemporalColumn(col):
			temporal = append(temporal, i)
		case col.Type == engine.TypeInteger || col.Type == engine.TypeReal:
			numeric = append(numeric, i)
		default:
			categorical = append(categorical, i)
		}
	}

	if len(temporal) >= 1 && len(numeric) == 1 {
		d := ChartDirective{
			Kind:  ChartLine,
			XAxis: rs.Columns[temporal[0]].Name,
			YAxis: rs.Columns[numeric[0]].Name,
		}
		switch len(categorical) {
		case 0:
			return d
		case 1:
			if rs.DistinctCount(categorical[0]) <= s.seriesMaxCardinality {
				d.Series = rs.Columns[categorical[0]].Name
				return d
			}
		}
		// Categorical too wide for series lines; fall through to bar
	}

	if len(temporal) == 0 && len(categorical) == 1 && len(numeric) == 1 {
		cat, num := categorical[0], numeric[0]
		if rs.DistinctCount(cat) <= s.pieMaxCategories &&
			hasShareHint(rs.Columns[num].Name) &&
			allNonNegative(rs, num) {
			return ChartDirective{
				Kind:  ChartPie,
				XAxis: rs.Columns[cat].Name,
				YAxis: rs.Columns[num].Name,
			}
		}
	}

	if len(temporal) == 0 && len(categorical) == 0 && len(numeric) == 2 {
		return ChartDirective{
			Kind:  ChartScatter,
			XAxis: rs.Columns[numeric[0]].Name,
			YAxis: rs.Columns[numeric[1]].Name,
		}
	}

	if len(categorical) >= 1 && len(numeric) >= 1 {
		d := ChartDirective{
			Kind:  ChartBar,
			XAxis: rs.Columns[categorical[0]].Name,
			YAxis: rs.Columns[numeric[0]].Name,
		}
		if len(categorical) >= 2 {
			d.Series = rs.Columns[categorical[1]].Name
		}
		return d
	}

	if len(temporal) >= 1 && len(numeric) >= 1 {
		return ChartDirective{
			Kind:  ChartBar,
			XAxis: rs.Columns[temporal[0]].Name,
			YAxis: rs.Columns[numeric[0]].Name,
		}
	}

	return ChartDirective{Kind: ChartTable}
}

// isTemporalColumn treats date-typed columns and the dataset's text month
// column ('YYYY-MM') as time axes
func isTemporalColumn(col engine.Column) bool {
	if col.Type == engine.TypeDate {
		return true
	}
	name := strings.ToLower(col.Name)
	return col.Type == engine.TypeText && (name == "month" || name == "date")
}

func hasShareHint(name string) bool {
	lower := strings.ToLower(name)
	for _, hint := range shareHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func allNonNegative(rs *engine.ResultSet, col int) bool {
	for _, row := range rs.Rows {
		switch v := row[col].(type) {
		case int64:
			if v < 0 {
				return false
			}
		case float64:
			if v < 0 {
				return false
			}
		}
	}
	return true
}
