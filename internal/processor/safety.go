// Package processor turns free-text analytical questions into vetted SQL,
// runs it against the sales store, and shapes the result into a table, a
// chart directive, and a short insight summary.
package processor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/salesight/sales-ai/internal/errors"
)

// SafeQuery is a statement that passed the safety policy or came from the
// curated catalog. The SQL is unexported so nothing outside this package can
// mint one from raw text.
type SafeQuery struct {
	sql string
}

// SQL returns the vetted statement text
func (q SafeQuery) SQL() string {
	return q.sql
}

func (q SafeQuery) String() string {
	return q.sql
}

// IsZero reports whether the query is the zero value
func (q SafeQuery) IsZero() bool {
	return q.sql == ""
}

// vettedQuery mints a SafeQuery without running the checker. Reserved for the
// fallback catalog, whose templates are reviewed by hand.
func vettedQuery(sql string) SafeQuery {
	return SafeQuery{sql: sql}
}

// forbiddenKeywords are rejected as whole tokens anywhere outside string
// literals and comments
var forbiddenKeywords = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "MERGE": {}, "DROP": {},
	"ALTER": {}, "CREATE": {}, "REPLACE": {}, "TRUNCATE": {}, "GRANT": {},
	"REVOKE": {}, "ATTACH": {}, "DETACH": {}, "COPY": {}, "IMPORT": {},
	"EXPORT": {}, "PRAGMA": {}, "CALL": {}, "EXEC": {}, "EXECUTE": {},
	"INSTALL": {}, "LOAD": {}, "VACUUM": {}, "SET": {},
}

// tableStopWords end a FROM table list during reference scanning
var tableStopWords = map[string]struct{}{
	"WHERE": {}, "GROUP": {}, "ORDER": {}, "LIMIT": {}, "HAVING": {},
	"UNION": {}, "INTERSECT": {}, "EXCEPT": {}, "ON": {}, "USING": {},
	"JOIN": {}, "LEFT": {}, "RIGHT": {}, "INNER": {}, "OUTER": {},
	"CROSS": {}, "FULL": {}, "NATURAL": {}, "WINDOW": {}, "OFFSET": {},
	"FETCH": {},
}

// sqlKeywords are word tokens that never introduce a function call, used to
// tell `IN (SELECT ...)` apart from `extract(... FROM ...)`
var sqlKeywords = map[string]struct{}{
	"SELECT": {}, "FROM": {}, "WHERE": {}, "AND": {}, "OR": {}, "NOT": {},
	"IN": {}, "EXISTS": {}, "ANY": {}, "ALL": {}, "SOME": {}, "AS": {},
	"ON": {}, "JOIN": {}, "LEFT": {}, "RIGHT": {}, "INNER": {}, "OUTER": {},
	"CROSS": {}, "FULL": {}, "UNION": {}, "INTERSECT": {}, "EXCEPT": {},
	"GROUP": {}, "BY": {}, "ORDER": {}, "HAVING": {}, "LIMIT": {},
	"OFFSET": {}, "DISTINCT": {}, "CASE": {}, "WHEN": {}, "THEN": {},
	"ELSE": {}, "END": {}, "BETWEEN": {}, "LIKE": {}, "ILIKE": {},
	"IS": {}, "NULL": {}, "WITH": {}, "VALUES": {},
}

var limitPattern = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\b`)

// SafetyChecker vets candidate SQL before execution. Pure and deterministic:
// the same candidate always validates to the same SafeQuery or the same
// typed rejection.
type SafetyChecker struct {
	maxRows int
}

// NewSafetyChecker creates a checker with the given row ceiling
func NewSafetyChecker(maxRows int) *SafetyChecker {
	if maxRows <= 0 {
		maxRows = 1000
	}
	return &SafetyChecker{maxRows: maxRows}
}

// Validate applies the safety rules in order, first failure wins:
// non-empty, single statement, leading SELECT or WITH, no forbidden
// keywords, sales-table-only references, and a LIMIT at or under the
// ceiling (appended when missing, clamped when above).
func (c *SafetyChecker) Validate(candidate string) (SafeQuery, error) {
	sql := strings.TrimSpace(candidate)
	if sql == "" {
		return SafeQuery{}, errors.NewSafetyRejectedError(errors.ErrCodeEmptyQuery)
	}

	// Masked copy: literal and comment contents replaced by spaces, positions
	// preserved, so keyword and structure checks cannot be smuggled past
	// inside quoted text.
	masked := maskLiteralsAndComments(sql)

	// One trailing semicolon is tolerated; trailing comments mask to spaces
	// so it is found even behind them. Cutting both strings at the same
	// offset keeps positions aligned.
	if trimmed := strings.TrimRight(masked, " \t\n\r"); strings.HasSuffix(trimmed, ";") {
		cut := len(trimmed) - 1
		sql = sql[:cut]
		masked = masked[:cut]
	}

	if strings.Contains(masked, ";") {
		return SafeQuery{}, errors.NewSafetyRejectedError(errors.ErrCodeMultiStatement)
	}

	tokens := tokenize(masked)
	if len(tokens) == 0 {
		return SafeQuery{}, errors.NewSafetyRejectedError(errors.ErrCodeEmptyQuery)
	}

	lead := strings.ToUpper(tokens[0].text)
	if lead != "SELECT" && lead != "WITH" {
		return SafeQuery{}, errors.NewSafetyRejectedError(errors.ErrCodeNotReadOnly)
	}

	for _, tok := range tokens {
		if !tok.word {
			continue
		}
		if _, bad := forbiddenKeywords[strings.ToUpper(tok.text)]; bad {
			return SafeQuery{}, errors.NewSafetyRejectedError(errors.ErrCodeForbiddenKeyword)
		}
	}

	if err := checkTableReferences(tokens); err != nil {
		return SafeQuery{}, err
	}

	return SafeQuery{sql: c.enforceLimit(sql, masked)}, nil
}

// MaxRows returns the configured row ceiling
func (c *SafetyChecker) MaxRows() int {
	return c.maxRows
}

// enforceLimit appends a LIMIT when the outer statement has none and clamps
// any LIMIT above the ceiling, subquery ones included. The masked text
// locates clauses; edits apply to the original, which is position-identical.
func (c *SafetyChecker) enforceLimit(sql, masked string) string {
	matches := limitPattern.FindAllStringSubmatchIndex(masked, -1)

	// Rewrite back to front so earlier offsets stay valid
	out := sql
	topLevel := false
	for i := len(matches) - 1; i >= 0; i-- {
		if parenDepthAt(masked, matches[i][0]) == 0 {
			topLevel = true
		}
		start, end := matches[i][2], matches[i][3]
		n, err := strconv.Atoi(masked[start:end])
		if err != nil || n <= c.maxRows {
			continue
		}
		out = out[:start] + strconv.Itoa(c.maxRows) + out[end:]
	}

	// A LIMIT buried in a subquery does not bound the outer statement
	if !topLevel {
		out += fmt.Sprintf(" LIMIT %d", c.maxRows)
	}
	return out
}

// parenDepthAt reports the parenthesis nesting depth at offset pos
func parenDepthAt(masked string, pos int) int {
	depth := 0
	for i := 0; i < pos && i < len(masked); i++ {
		switch masked[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth
}

// maskLiteralsAndComments replaces the contents of string literals, quoted
// identifiers, line comments, and block comments with spaces. Output length
// equals input length. A quoted identifier keeps its opening quote as a
// marker for the table reference scan.
func maskLiteralsAndComments(sql string) string {
	b := []byte(sql)
	out := make([]byte, len(b))
	copy(out, b)

	for i := 0; i < len(b); {
		switch {
		case b[i] == '\'':
			// Single-quoted literal, '' escapes a quote
			j := i + 1
			for j < len(b) {
				if b[j] == '\'' {
					if j+1 < len(b) && b[j+1] == '\'' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			for k := i; k <= j && k < len(b); k++ {
				out[k] = ' '
			}
			i = j + 1
		case b[i] == '"':
			// Contents mask to spaces but the opening quote stays visible,
			// so the reference scan still sees that a quoted identifier was
			// here
			j := i + 1
			for j < len(b) && b[j] != '"' {
				j++
			}
			for k := i + 1; k <= j && k < len(b); k++ {
				out[k] = ' '
			}
			i = j + 1
		case b[i] == '-' && i+1 < len(b) && b[i+1] == '-':
			j := i
			for j < len(b) && b[j] != '\n' {
				out[j] = ' '
				j++
			}
			i = j
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			j := i + 2
			for j+1 < len(b) && !(b[j] == '*' && b[j+1] == '/') {
				j++
			}
			end := j + 1
			if end >= len(b) {
				end = len(b) - 1
			}
			for k := i; k <= end; k++ {
				out[k] = ' '
			}
			i = end + 1
		default:
			i++
		}
	}
	return string(out)
}

// token is a word (identifier or keyword) or a single punctuation character
type token struct {
	text string
	word bool
}

func tokenize(masked string) []token {
	var tokens []token
	for i := 0; i < len(masked); {
		c := masked[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isWordByte(c):
			j := i
			for j < len(masked) && isWordByte(masked[j]) {
				j++
			}
			tokens = append(tokens, token{text: masked[i:j], word: true})
			i = j
		default:
			tokens = append(tokens, token{text: string(c)})
			i++
		}
	}
	return tokens
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

// checkTableReferences walks the token stream and rejects any FROM/JOIN
// target that is not the sales table or a CTE defined in the statement.
// FROM inside a function call (extract, substring) is not a table context.
func checkTableReferences(tokens []token) error {
	ctes := collectCTENames(tokens)

	// funcCall[d] records whether the paren that opened depth d+1 was a
	// function call
	var funcCall []bool
	inFuncAt := func() bool {
		for _, f := range funcCall {
			if f {
				return true
			}
		}
		return false
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case tok.text == "(":
			isFunc := false
			if i > 0 && tokens[i-1].word {
				if _, kw := sqlKeywords[strings.ToUpper(tokens[i-1].text)]; !kw {
					isFunc = true
				}
			}
			funcCall = append(funcCall, isFunc)
		case tok.text == ")":
			if len(funcCall) > 0 {
				funcCall = funcCall[:len(funcCall)-1]
			}
		case tok.word && !inFuncAt():
			upper := strings.ToUpper(tok.text)
			if upper != "FROM" && upper != "JOIN" {
				continue
			}
			next, refs := scanTableRefs(tokens, i+1, upper == "FROM")
			for _, ref := range refs {
				lower := strings.ToLower(ref)
				if lower == "sales" {
					continue
				}
				if _, ok := ctes[lower]; ok {
					continue
				}
				return errors.NewSafetyRejectedError(errors.ErrCodeUnknownTable)
			}
			i = next - 1
		}
	}
	return nil
}

// scanTableRefs reads table names starting at index i. A FROM list may hold
// several comma-separated tables with optional aliases; JOIN introduces one.
// Parenthesized targets are subqueries and are validated by their own FROMs.
// Returns the index after the scanned region and the names found.
func scanTableRefs(tokens []token, i int, allowList bool) (int, []string) {
	var refs []string
	for {
		// Skip to the target
		if i >= len(tokens) {
			return i, refs
		}
		if tokens[i].text == "(" {
			// Derived table: stop here so the outer walk descends into the
			// subquery and validates its own FROM targets
			return i, refs
		} else if tokens[i].text == `"` {
			// Quoted identifier: the name was masked away, so it cannot be
			// verified against the allowed set. Recorded as a quote token,
			// which never matches, rejecting over guessing.
			refs = append(refs, `"`)
			i++
		} else if tokens[i].word {
			name := tokens[i].text
			i++
			// Schema-qualified reference keeps only the final part out of
			// caution: any qualifier means it is not plain `sales`
			if i < len(tokens) && tokens[i].text == "." && i+1 < len(tokens) {
				name = name + "." + tokens[i+1].text
				i += 2
			}
			refs = append(refs, name)
		} else {
			return i, refs
		}

		// Skip optional alias
		for i < len(tokens) && tokens[i].word {
			upper := strings.ToUpper(tokens[i].text)
			if upper == "AS" {
				i++
				continue
			}
			if _, stop := tableStopWords[upper]; stop {
				return i, refs
			}
			i++
		}

		if allowList && i < len(tokens) && tokens[i].text == "," {
			i++
			continue
		}
		return i, refs
	}
}

// skipBalanced advances past a parenthesized group starting at tokens[i] == "("
func skipBalanced(tokens []token, i int) int {
	depth := 0
	for ; i < len(tokens); i++ {
		switch tokens[i].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}

// collectCTENames gathers names defined in a WITH clause. A CTE is an
// identifier, an optional parenthesized column list, then AS followed by a
// parenthesized body.
func collectCTENames(tokens []token) map[string]struct{} {
	names := make(map[string]struct{})
	if len(tokens) == 0 || strings.ToUpper(tokens[0].text) != "WITH" {
		return names
	}

	i := 1
	// RECURSIVE may follow WITH
	if i < len(tokens) && strings.ToUpper(tokens[i].text) == "RECURSIVE" {
		i++
	}
	for i < len(tokens) {
		if !tokens[i].word {
			return names
		}
		name := strings.ToLower(tokens[i].text)
		i++
		if i < len(tokens) && tokens[i].text == "(" {
			i = skipBalanced(tokens, i)
		}
		if i >= len(tokens) || strings.ToUpper(tokens[i].text) != "AS" {
			return names
		}
		i++
		if i >= len(tokens) || tokens[i].text != "(" {
			return names
		}
		names[name] = struct{}{}
		i = skipBalanced(tokens, i)
		if i < len(tokens) && tokens[i].text == "," {
			i++
			continue
		}
		return names
	}
	return names
}
