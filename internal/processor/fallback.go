package processor

import "strings"

// FallbackEntry is a curated intent with a pre-vetted bounded query
type FallbackEntry struct {
	Key         string
	Description string
	query       SafeQuery
	keywords    []string
}

// Query returns the entry's vetted query
func (e FallbackEntry) Query() SafeQuery {
	return e.query
}

// FallbackCatalog maps question intents to curated queries. Matching is a
// keyword-count heuristic over English and Japanese terms; ties break on
// catalog order, and no match at all lands on the overview entry. Resolution
// never fails.
type FallbackCatalog struct {
	entries []FallbackEntry
	byKey   map[string]int
}

// NewFallbackCatalog builds the catalog. Entry order is the match tie-break,
// most specific first.
func NewFallbackCatalog() *FallbackCatalog {
	entries := []FallbackEntry{
		{
			Key:         "monthly_by_category",
			Description: "Monthly revenue broken down by product category",
			query: vettedQuery(
				"SELECT month, category, SUM(revenue) AS total_revenue " +
					"FROM sales GROUP BY 1, 2 ORDER BY 1, 2 LIMIT 1000"),
			keywords: []string{
				"月", "month", "カテゴリ", "category", "月別", "月ごと",
				"カテゴリ別", "カテゴリー別",
			},
		},
		{
			Key:         "monthly_totals",
			Description: "Revenue and units by month",
			query: vettedQuery(
				"SELECT month, SUM(revenue) AS total_revenue, SUM(units) AS total_units " +
					"FROM sales GROUP BY 1 ORDER BY 1 LIMIT 1000"),
			keywords: []string{
				"月", "month", "月別", "月ごと", "時間", "期間", "推移", "trend", "over time",
			},
		},
		{
			Key:         "channel_totals",
			Description: "Revenue by sales channel",
			query: vettedQuery(
				"SELECT sales_channel, SUM(revenue) AS total_revenue " +
					"FROM sales GROUP BY 1 ORDER BY 1 LIMIT 1000"),
			keywords: []string{
				"チャネル", "channel", "販売チャネル", "sales_channel",
				"online", "store", "オンライン", "店舗",
			},
		},
		{
			Key:         "regional_totals",
			Description: "Revenue by region",
			query: vettedQuery(
				"SELECT region, SUM(revenue) AS total_revenue " +
					"FROM sales GROUP BY 1 ORDER BY 1 LIMIT 1000"),
			keywords: []string{
				"地域", "region", "地域別", "north", "south", "east", "west",
				"北", "南", "東", "西",
			},
		},
		{
			Key:         "category_totals",
			Description: "Revenue and units by product category",
			query: vettedQuery(
				"SELECT category, SUM(revenue) AS total_revenue, SUM(units) AS total_units " +
					"FROM sales GROUP BY 1 ORDER BY total_revenue DESC LIMIT 1000"),
			keywords: []string{
				"カテゴリ", "category", "商品", "製品",
				"electronics", "clothing", "groceries",
			},
		},
		{
			Key:         "segment_totals",
			Description: "Revenue by customer segment",
			query: vettedQuery(
				"SELECT customer_segment, SUM(revenue) AS total_revenue " +
					"FROM sales GROUP BY 1 ORDER BY total_revenue DESC LIMIT 1000"),
			keywords: []string{
				"顧客", "customer", "セグメント", "segment",
				"consumer", "corporate", "business",
			},
		},
		{
			Key:         "overview",
			Description: "Overall dataset summary statistics",
			query: vettedQuery(
				"SELECT COUNT(*) AS total_transactions, SUM(revenue) AS total_revenue, " +
					"SUM(units) AS total_units, AVG(unit_price) AS avg_unit_price, " +
					"AVG(revenue) AS avg_transaction_value FROM sales LIMIT 1000"),
			keywords: []string{
				"全体", "total", "合計", "サマリー", "summary", "概要", "統計",
			},
		},
	}

	byKey := make(map[string]int, len(entries))
	for i, e := range entries {
		byKey[e.Key] = i
	}
	return &FallbackCatalog{entries: entries, byKey: byKey}
}

// Resolve returns the entry for the given intent key
func (c *FallbackCatalog) Resolve(intentKey string) (FallbackEntry, bool) {
	i, ok := c.byKey[intentKey]
	if !ok {
		return FallbackEntry{}, false
	}
	return c.entries[i], true
}

// DefaultEntry returns the overview entry, the terminal fallback for both
// unmatched questions and execution retries
func (c *FallbackCatalog) DefaultEntry() FallbackEntry {
	return c.entries[len(c.entries)-1]
}

// Match picks the entry whose keywords appear most often in the question.
// Substring matching keeps it working for Japanese text, which has no word
// boundaries to split on. Zero matches fall through to the overview entry.
func (c *FallbackCatalog) Match(question string) FallbackEntry {
	q := strings.ToLower(question)

	best := -1
	bestCount := 0
	for i, entry := range c.entries {
		count := 0
		for _, kw := range entry.keywords {
			if strings.Contains(q, strings.ToLower(kw)) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			best = i
		}
	}

	if best < 0 {
		return c.DefaultEntry()
	}
	return c.entries[best]
}

// Entries returns all catalog entries in priority order
func (c *FallbackCatalog) Entries() []FallbackEntry {
	out := make([]FallbackEntry, len(c.entries))
	copy(out, c.entries)
	return out
}
