package processor

import (
	"fmt"
	"strings"

	"github.com/salesight/sales-ai/internal/engine"
)

// ColumnStats summarizes a numeric result column
type ColumnStats struct {
	Column string  `json:"column"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Sum    float64 `json:"sum"`
	Count  int     `json:"count"`
}

// numericColumnStats computes stats over the non-null cells of a numeric
// column, or false when the column holds no numbers
func numericColumnStats(rs *engine.ResultSet, col int) (ColumnStats, bool) {
	stats := ColumnStats{Column: rs.Columns[col].Name}
	for _, row := range rs.Rows {
		var v float64
		switch cell := row[col].(type) {
		case int64:
			v = float64(cell)
		case float64:
			v = cell
		default:
			continue
		}
		if stats.Count == 0 || v < stats.Min {
			stats.Min = v
		}
		if stats.Count == 0 || v > stats.Max {
			stats.Max = v
		}
		stats.Sum += v
		stats.Count++
	}
	if stats.Count == 0 {
		return stats, false
	}
	stats.Avg = stats.Sum / float64(stats.Count)
	return stats, true
}

// primaryNumericColumn picks the column the insight summarizes: the first
// revenue-ish column if present, otherwise the first numeric column
func primaryNumericColumn(rs *engine.ResultSet) int {
	first := -1
	for i, col := range rs.Columns {
		if col.Type != engine.TypeInteger && col.Type != engine.TypeReal {
			continue
		}
		if first < 0 {
			first = i
		}
		name := strings.ToLower(col.Name)
		if strings.Contains(name, "revenue") {
			return i
		}
	}
	return first
}

// buildInsight writes a short plain-text summary of the result: row count
// and min/max/avg of the primary numeric column
func buildInsight(rs *engine.ResultSet) string {
	if rs == nil || rs.RowCount() == 0 {
		return "No records matched the question."
	}

	parts := []string{fmt.Sprintf("Found %d records.", rs.RowCount())}

	col := primaryNumericColumn(rs)
	if col >= 0 {
		if stats, ok := numericColumnStats(rs, col); ok {
			parts = append(parts, fmt.Sprintf(
				"%s ranges from %s to %s with an average of %s.",
				stats.Column,
				formatNumber(stats.Min),
				formatNumber(stats.Max),
				formatNumber(stats.Avg),
			))
		}
	}

	return strings.Join(parts, " ")
}

// formatNumber drops the fraction for whole values so counts read naturally
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
