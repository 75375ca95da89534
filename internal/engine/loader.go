package engine

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// SalesRecord is one row of the source dataset
type SalesRecord struct {
	Date            time.Time
	Month           string // derived, YYYY-MM
	Category        string
	Units           int64
	UnitPrice       int64
	Region          string
	SalesChannel    string
	CustomerSegment string
	Revenue         float64
}

// expected CSV header of the source dataset
var csvHeader = []string{"date", "category", "units", "unit_price", "region", "sales_channel", "customer_segment", "revenue"}

// LoadCSV seeds the sales table from a CSV file, deriving the month column
// from the date. This is the only write path in the package and runs once at
// provisioning time, not per request.
func (c *Client) LoadCSV(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()

	records, err := ParseSalesCSV(f)
	if err != nil {
		return 0, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sales (date, month, category, units, unit_price, region, sales_channel, customer_segment, revenue)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.Date, r.Month, r.Category, r.Units, r.UnitPrice,
			r.Region, r.SalesChannel, r.CustomerSegment, r.Revenue)
		if err != nil {
			return 0, fmt.Errorf("failed to insert sales row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit dataset load: %w", err)
	}

	return len(records), nil
}

// ParseSalesCSV parses the source dataset, validating the header and deriving
// the month column from each date
func ParseSalesCSV(r io.Reader) ([]SalesRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) != len(csvHeader) {
		return nil, fmt.Errorf("unexpected CSV header: got %d columns, want %d", len(header), len(csvHeader))
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected CSV column %d: got %q, want %q", i, header[i], name)
		}
	}

	var records []SalesRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		line++

		rec, err := parseSalesRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseSalesRow(row []string) (SalesRecord, error) {
	var rec SalesRecord

	date, err := time.Parse("2006-01-02", row[0])
	if err != nil {
		return rec, fmt.Errorf("invalid date %q: %w", row[0], err)
	}

	units, err := strconv.ParseInt(row[2], 10, 64)
	if err != nil {
		return rec, fmt.Errorf("invalid units %q: %w", row[2], err)
	}

	unitPrice, err := strconv.ParseInt(row[3], 10, 64)
	if err != nil {
		return rec, fmt.Errorf("invalid unit_price %q: %w", row[3], err)
	}

	revenue, err := strconv.ParseFloat(row[7], 64)
	if err != nil {
		return rec, fmt.Errorf("invalid revenue %q: %w", row[7], err)
	}

	return SalesRecord{
		Date:            date,
		Month:           date.Format("2006-01"),
		Category:        row[1],
		Units:           units,
		UnitPrice:       unitPrice,
		Region:          row[4],
		SalesChannel:    row[5],
		CustomerSegment: row[6],
		Revenue:         revenue,
	}, nil
}

// DatasetSummary describes the loaded dataset for the sidebar and the
// translator's schema context
type DatasetSummary struct {
	TotalRecords     int      `json:"total_records"`
	MinDate          string   `json:"min_date"`
	MaxDate          string   `json:"max_date"`
	Categories       []string `json:"categories"`
	Regions          []string `json:"regions"`
	SalesChannels    []string `json:"sales_channels"`
	CustomerSegments []string `json:"customer_segments"`
	TotalRevenue     float64  `json:"total_revenue"`
}

// Summarize computes dataset-level aggregates for presentation
func (c *Client) Summarize(ctx context.Context) (*DatasetSummary, error) {
	queryCtx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	summary := &DatasetSummary{}

	row := c.db.QueryRowContext(queryCtx, `
		SELECT COUNT(*), COALESCE(MIN(date)::text, ''), COALESCE(MAX(date)::text, ''), COALESCE(SUM(revenue), 0)
		FROM sales
	`)
	if err := row.Scan(&summary.TotalRecords, &summary.MinDate, &summary.MaxDate, &summary.TotalRevenue); err != nil {
		return nil, classifyError(err)
	}

	distinct := map[string]*[]string{
		"category":         &summary.Categories,
		"region":           &summary.Regions,
		"sales_channel":    &summary.SalesChannels,
		"customer_segment": &summary.CustomerSegments,
	}
	// Fixed iteration order keeps query logs stable
	for _, col := range []string{"category", "region", "sales_channel", "customer_segment"} {
		values, err := c.distinctValues(queryCtx, col)
		if err != nil {
			return nil, err
		}
		*distinct[col] = values
	}

	return summary, nil
}

func (c *Client) distinctValues(ctx context.Context, column string) ([]string, error) {
	// column names come from the fixed set above, never from user input
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT %s FROM sales ORDER BY %s", column, column))
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, classifyError(err)
		}
		if v.Valid {
			values = append(values, v.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}
	return values, nil
}
