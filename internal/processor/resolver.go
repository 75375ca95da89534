package processor

import (
	"context"
	"fmt"
	"strings"

	stderrors "errors"

	"github.com/salesight/sales-ai/internal/errors"
	"github.com/salesight/sales-ai/internal/llm"
	"github.com/salesight/sales-ai/internal/observability"
	"github.com/salesight/sales-ai/internal/semantic"
)

// SourceGenerated marks a query produced by the translator and accepted by
// the safety checker; fallback sources are "fallback:<key>"
const SourceGenerated = "generated"

// Resolution is a vetted query plus the path that produced it
type Resolution struct {
	Query  SafeQuery
	Source string
}

// FromFallback reports whether the resolution came from the curated catalog
func (r Resolution) FromFallback() bool {
	return strings.HasPrefix(r.Source, "fallback:")
}

// QueryResolver turns a question into a SafeQuery. Total: translator
// failures and safety rejections are absorbed into the fallback catalog,
// so resolution itself never errors.
type QueryResolver struct {
	translator    llm.Client
	checker       *SafetyChecker
	catalog       *FallbackCatalog
	exemplars     semantic.Store
	exemplarLimit int
	logger        *observability.Logger
}

// NewQueryResolver creates a resolver. translator and exemplars may be nil;
// without a translator every question resolves through the catalog.
func NewQueryResolver(translator llm.Client, checker *SafetyChecker, catalog *FallbackCatalog, exemplars semantic.Store, exemplarLimit int) *QueryResolver {
	return &QueryResolver{
		translator:    translator,
		checker:       checker,
		catalog:       catalog,
		exemplars:     exemplars,
		exemplarLimit: exemplarLimit,
		logger:        observability.NewLogger("resolver"),
	}
}

// Resolve produces a SafeQuery for the question. The generated path runs
// translator → safety check → exemplar store-back; any failure along it
// drops to the keyword-matched catalog entry. Reason codes are logged, the
// rejected SQL never is.
func (r *QueryResolver) Resolve(ctx context.Context, question string) Resolution {
	if r.translator == nil {
		return r.fallbackFor(ctx, question, "translator_disabled")
	}

	embedding := r.lookupEmbedding(ctx, question)
	prompt := r.buildPrompt(ctx, question, embedding)

	resp, err := r.translator.GenerateSQL(ctx, prompt)
	if err != nil {
		enhanced := errors.NewTranslationUnavailableError(err)
		r.logger.Warn(ctx, "translation unavailable, using fallback", map[string]interface{}{
			"reason": string(enhanced.Code),
		})
		return r.fallbackFor(ctx, question, string(enhanced.Code))
	}

	safe, err := r.checker.Validate(resp.SQL)
	if err != nil {
		reason := rejectionReason(err)
		observability.RecordSafetyRejection(reason)
		r.logger.Warn(ctx, "generated query rejected, using fallback", map[string]interface{}{
			"reason": reason,
		})
		return r.fallbackFor(ctx, question, reason)
	}

	r.storeExemplar(ctx, question, embedding, safe)

	return Resolution{Query: safe, Source: SourceGenerated}
}

// fallbackFor resolves through the catalog and tags the source with the key
func (r *QueryResolver) fallbackFor(ctx context.Context, question, reason string) Resolution {
	entry := r.catalog.Match(question)
	r.logger.Debug(ctx, "resolved via fallback catalog", map[string]interface{}{
		"intent_key": entry.Key,
		"reason":     reason,
	})
	return Resolution{
		Query:  entry.Query(),
		Source: "fallback:" + entry.Key,
	}
}

// lookupEmbedding fetches the question embedding for exemplar retrieval and
// store-back. Best-effort: a nil return just means no few-shot examples.
func (r *QueryResolver) lookupEmbedding(ctx context.Context, question string) []float32 {
	if r.exemplars == nil || r.translator == nil {
		return nil
	}
	embedding, err := r.translator.GetEmbedding(ctx, question)
	if err != nil {
		r.logger.Debug(ctx, "embedding lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return embedding
}

// buildPrompt assembles the translator prompt: schema, constraints, then
// few-shot exemplars from past accepted questions, then the question itself
func (r *QueryResolver) buildPrompt(ctx context.Context, question string, embedding []float32) string {
	var b strings.Builder

	b.WriteString("You are a SQL assistant for sales data analysis. ")
	b.WriteString("Output exactly one PostgreSQL SELECT statement. No prose, no code fences.\n\n")
	b.WriteString("Constraints:\n")
	b.WriteString("- SELECT statements only; subqueries and CTEs are allowed, DDL/DML is not\n")
	b.WriteString("- The only table is sales\n")
	b.WriteString("- Columns: date (DATE), month (TEXT 'YYYY-MM'), category (TEXT), units (INT), ")
	b.WriteString("unit_price (INT), region (TEXT), sales_channel (TEXT), customer_segment (TEXT), revenue (NUMERIC)\n")
	b.WriteString("- Use month for period aggregation (e.g. '2025-01')\n")
	b.WriteString("- Aggregate with SUM(revenue), SUM(units)\n")
	b.WriteString("- Order results so they read naturally (period, then category)\n")
	b.WriteString("- Do not add a LIMIT clause; one is enforced downstream\n")

	if exemplars := r.findExemplars(ctx, embedding); len(exemplars) > 0 {
		b.WriteString("\nExamples of past questions and their queries:\n")
		for _, ex := range exemplars {
			fmt.Fprintf(&b, "Q: %s\nSQL: %s\n", ex.Question, ex.SQL)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

func (r *QueryResolver) findExemplars(ctx context.Context, embedding []float32) []semantic.Exemplar {
	if r.exemplars == nil || len(embedding) == 0 {
		return nil
	}
	limit := r.exemplarLimit
	if limit <= 0 {
		limit = 3
	}
	exemplars, err := r.exemplars.FindSimilarQuestions(ctx, embedding, limit)
	if err != nil {
		r.logger.Debug(ctx, "exemplar lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return exemplars
}

// storeExemplar records an accepted (question, embedding, SQL) triple for
// future few-shot prompts. Best-effort.
func (r *QueryResolver) storeExemplar(ctx context.Context, question string, embedding []float32, safe SafeQuery) {
	if r.exemplars == nil || len(embedding) == 0 {
		return
	}
	if err := r.exemplars.StoreExemplar(ctx, question, embedding, safe.SQL()); err != nil {
		r.logger.Debug(ctx, "exemplar store failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// RecentExemplars lists the latest stored question-to-SQL pairs, newest
// first. Empty without an exemplar store.
func (r *QueryResolver) RecentExemplars(ctx context.Context, limit int) ([]semantic.Exemplar, error) {
	if r.exemplars == nil {
		return nil, nil
	}
	return r.exemplars.RecentExemplars(ctx, limit)
}

// rejectionReason extracts the typed reason code from a safety rejection
func rejectionReason(err error) string {
	var enhanced *errors.EnhancedError
	if stderrors.As(err, &enhanced) {
		if reason, ok := enhanced.Metadata["reason"].(string); ok {
			return reason
		}
		return string(enhanced.Code)
	}
	return "unknown"
}
