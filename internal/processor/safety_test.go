package processor

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesight/sales-ai/internal/errors"
)

func assertRejected(t *testing.T, err error, reason errors.ErrorCode) {
	t.Helper()
	require.Error(t, err)

	var enhanced *errors.EnhancedError
	require.True(t, stderrors.As(err, &enhanced))
	assert.Equal(t, errors.ErrCodeSafetyRejected, enhanced.Code)
	assert.Equal(t, string(reason), enhanced.Metadata["reason"])
}

func TestValidateAcceptsSimpleSelect(t *testing.T) {
	checker := NewSafetyChecker(1000)

	safe, err := checker.Validate("SELECT category, SUM(revenue) AS total_revenue FROM sales GROUP BY 1 LIMIT 100")
	require.NoError(t, err)
	assert.Equal(t, "SELECT category, SUM(revenue) AS total_revenue FROM sales GROUP BY 1 LIMIT 100", safe.SQL())
}

func TestValidateAppendsLimitWhenMissing(t *testing.T) {
	checker := NewSafetyChecker(1000)

	safe, err := checker.Validate("SELECT month, SUM(revenue) FROM sales GROUP BY 1")
	require.NoError(t, err)
	assert.Equal(t, "SELECT month, SUM(revenue) FROM sales GROUP BY 1 LIMIT 1000", safe.SQL())
}

func TestValidateClampsOversizedLimit(t *testing.T) {
	checker := NewSafetyChecker(1000)

	safe, err := checker.Validate("SELECT * FROM sales LIMIT 999999")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM sales LIMIT 1000", safe.SQL())
}

func TestValidateKeepsLimitAtOrUnderCeiling(t *testing.T) {
	checker := NewSafetyChecker(1000)

	safe, err := checker.Validate("SELECT * FROM sales LIMIT 1000")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM sales LIMIT 1000", safe.SQL())
}

func TestValidateStripsTrailingSemicolon(t *testing.T) {
	checker := NewSafetyChecker(1000)

	safe, err := checker.Validate("SELECT region FROM sales;")
	require.NoError(t, err)
	assert.Equal(t, "SELECT region FROM sales LIMIT 1000", safe.SQL())
}

func TestValidateAcceptsCTE(t *testing.T) {
	checker := NewSafetyChecker(1000)

	sql := "WITH monthly AS (SELECT month, SUM(revenue) AS r FROM sales GROUP BY 1) " +
		"SELECT month, r FROM monthly ORDER BY 1"
	safe, err := checker.Validate(sql)
	require.NoError(t, err)
	assert.Equal(t, sql+" LIMIT 1000", safe.SQL())
}

func TestValidateAcceptsSubquery(t *testing.T) {
	checker := NewSafetyChecker(1000)

	_, err := checker.Validate(
		"SELECT category FROM (SELECT category, SUM(revenue) AS r FROM sales GROUP BY 1) t ORDER BY r DESC")
	require.NoError(t, err)
}

func TestValidateRejections(t *testing.T) {
	checker := NewSafetyChecker(1000)

	tests := []struct {
		name   string
		sql    string
		reason errors.ErrorCode
	}{
		{"empty string", "", errors.ErrCodeEmptyQuery},
		{"whitespace only", "   \n\t  ", errors.ErrCodeEmptyQuery},
		{"lone semicolon", ";", errors.ErrCodeEmptyQuery},
		{
			"multi statement",
			"SELECT * FROM sales; SELECT * FROM sales",
			errors.ErrCodeMultiStatement,
		},
		{
			"piggybacked drop",
			"SELECT * FROM sales; DROP TABLE sales",
			errors.ErrCodeMultiStatement,
		},
		{
			"leading drop",
			"DROP TABLE sales; --",
			errors.ErrCodeNotReadOnly,
		},
		{
			"insert statement",
			"INSERT INTO sales VALUES (1)",
			errors.ErrCodeNotReadOnly,
		},
		{
			"forbidden keyword inside select",
			"SELECT * FROM sales WHERE id IN (DELETE FROM sales RETURNING id)",
			errors.ErrCodeForbiddenKeyword,
		},
		{
			"unknown table",
			"SELECT * FROM users",
			errors.ErrCodeUnknownTable,
		},
		{
			"unknown table in join",
			"SELECT * FROM sales JOIN accounts ON sales.id = accounts.id",
			errors.ErrCodeUnknownTable,
		},
		{
			"unknown table in subquery",
			"SELECT * FROM (SELECT * FROM customers) t",
			errors.ErrCodeUnknownTable,
		},
		{
			"quoted unknown table",
			`SELECT * FROM "users"`,
			errors.ErrCodeUnknownTable,
		},
		{
			"quoted unknown table with alias",
			`SELECT * FROM "users" u`,
			errors.ErrCodeUnknownTable,
		},
		{
			"quoted table in list",
			`SELECT * FROM sales, "users"`,
			errors.ErrCodeUnknownTable,
		},
		{
			"quoted table in join",
			`SELECT * FROM sales JOIN "accounts" a ON sales.id = a.id`,
			errors.ErrCodeUnknownTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := checker.Validate(tt.sql)
			assertRejected(t, err, tt.reason)
		})
	}
}

func TestValidateIgnoresKeywordsInsideLiterals(t *testing.T) {
	checker := NewSafetyChecker(1000)

	safe, err := checker.Validate("SELECT * FROM sales WHERE category = 'DROP TABLE; oops'")
	require.NoError(t, err)
	assert.Contains(t, safe.SQL(), "'DROP TABLE; oops'")
}

func TestValidateIgnoresKeywordsInsideComments(t *testing.T) {
	checker := NewSafetyChecker(1000)

	_, err := checker.Validate("SELECT region FROM sales /* DELETE nothing */ WHERE units > 0")
	require.NoError(t, err)
}

func TestValidateRejectsKeywordAsWholeTokenOnly(t *testing.T) {
	checker := NewSafetyChecker(1000)

	// "created_at" and "updated" contain forbidden substrings but are not
	// forbidden tokens
	_, err := checker.Validate("SELECT date AS created_at FROM sales")
	require.NoError(t, err)
}

func TestValidateExtractFromIsNotATableReference(t *testing.T) {
	checker := NewSafetyChecker(1000)

	_, err := checker.Validate("SELECT EXTRACT(month FROM date) AS m, SUM(revenue) FROM sales GROUP BY 1")
	require.NoError(t, err)
}

func TestValidateRejectsQuotedSalesReference(t *testing.T) {
	checker := NewSafetyChecker(1000)

	// A quoted name cannot be matched against the allowed set once its text
	// is masked, so even "sales" in quotes is rejected rather than guessed at
	_, err := checker.Validate(`SELECT * FROM "sales"`)
	assertRejected(t, err, errors.ErrCodeUnknownTable)
}

func TestValidateAcceptsQuotedColumnNames(t *testing.T) {
	checker := NewSafetyChecker(1000)

	_, err := checker.Validate(`SELECT "revenue", "region" FROM sales`)
	require.NoError(t, err)
}

func TestValidateAppendsLimitWhenOnlySubqueryHasOne(t *testing.T) {
	checker := NewSafetyChecker(1000)

	safe, err := checker.Validate("SELECT * FROM (SELECT * FROM sales LIMIT 5) t")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM sales LIMIT 5) t LIMIT 1000", safe.SQL())
}

func TestValidateClampsSubqueryLimitAndBoundsOuter(t *testing.T) {
	checker := NewSafetyChecker(1000)

	safe, err := checker.Validate("SELECT * FROM (SELECT * FROM sales LIMIT 999999) t")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM sales LIMIT 1000) t LIMIT 1000", safe.SQL())
}

func TestValidateDeterministic(t *testing.T) {
	checker := NewSafetyChecker(1000)
	input := "SELECT month, SUM(revenue) FROM sales GROUP BY 1"

	first, err := checker.Validate(input)
	require.NoError(t, err)
	second, err := checker.Validate(input)
	require.NoError(t, err)
	assert.Equal(t, first.SQL(), second.SQL())
}
