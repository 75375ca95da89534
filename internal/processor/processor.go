package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	stderrors "errors"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/salesight/sales-ai/internal/engine"
	"github.com/salesight/sales-ai/internal/errors"
	"github.com/salesight/sales-ai/internal/observability"
	"github.com/salesight/sales-ai/internal/semantic"
	"github.com/salesight/sales-ai/internal/session"
)

// Executor runs a vetted statement against the analytical store
type Executor interface {
	Query(ctx context.Context, sql string) (*engine.ResultSet, error)
}

// DatasetSummarizer provides the dataset overview for the summary endpoint.
// engine.Client implements it.
type DatasetSummarizer interface {
	Summarize(ctx context.Context) (*engine.DatasetSummary, error)
}

// AskRequest is a free-text analytical question. ConversationID is optional;
// when present the turn is appended to that conversation's history.
type AskRequest struct {
	Question       string `json:"question" binding:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// AskResponse carries the full answer for one question
type AskResponse struct {
	Question       string            `json:"question"`
	SQL            string            `json:"sql"`
	Source         string            `json:"source"`
	Result         *engine.ResultSet `json:"result"`
	Chart          ChartDirective    `json:"chart"`
	Insight        string            `json:"insight"`
	Cached         bool              `json:"cached"`
	ConversationID string            `json:"conversation_id,omitempty"`
}

// Config holds the orchestrator's knobs
type Config struct {
	MaxQuestionLength int
	CacheTTL          time.Duration
}

// QueryProcessor sequences resolve → execute → chart → insight for one
// question, with a Redis result cache in front and a single default-fallback
// retry behind the executor.
type QueryProcessor struct {
	resolver   *QueryResolver
	executor   Executor
	summarizer DatasetSummarizer
	selector   *ChartSelector
	catalog    *FallbackCatalog
	cache      *redis.Client
	history    *session.History
	config     Config
	logger     *observability.Logger
}

// NewQueryProcessor creates the orchestrator. cache and history may be nil;
// both degrade to pass-through behavior.
func NewQueryProcessor(resolver *QueryResolver, executor Executor, selector *ChartSelector, catalog *FallbackCatalog, cache *redis.Client, history *session.History, config Config) *QueryProcessor {
	if config.MaxQuestionLength <= 0 {
		config.MaxQuestionLength = 500
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	p := &QueryProcessor{
		resolver: resolver,
		executor: executor,
		selector: selector,
		catalog:  catalog,
		cache:    cache,
		history:  history,
		config:   config,
		logger:   observability.NewLogger("processor"),
	}
	if s, ok := executor.(DatasetSummarizer); ok {
		p.summarizer = s
	}
	return p
}

// WithSummarizer overrides the dataset summarizer, which otherwise comes
// from the executor when it implements the interface
func (p *QueryProcessor) WithSummarizer(s DatasetSummarizer) *QueryProcessor {
	p.summarizer = s
	return p
}

// ProcessQuestion answers one question end to end. Execution failure gets
// exactly one retry with the catalog's default entry; if that also fails the
// caller sees a single generic error and the raw engine text stays in the
// logs.
func (p *QueryProcessor) ProcessQuestion(ctx context.Context, req AskRequest) (*AskResponse, error) {
	start := time.Now()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, errors.NewInvalidInputError("question", "must not be empty")
	}
	if len(question) > p.config.MaxQuestionLength {
		return nil, errors.NewInvalidInputError("question", "exceeds maximum length")
	}

	if cached := p.cachedResponse(ctx, question); cached != nil {
		cached.ConversationID = req.ConversationID
		observability.RecordAskMetrics(time.Since(start), cached.Source, true, true)
		return cached, nil
	}

	resolution := p.resolver.Resolve(ctx, question)

	result, source, err := p.executeWithRetry(ctx, resolution)
	if err != nil {
		observability.RecordAskMetrics(time.Since(start), source, false, false)
		return nil, err
	}

	chart := p.selector.Select(result)
	observability.RecordChartSelection(string(chart.Kind))

	resp := &AskResponse{
		Question:       question,
		SQL:            resolution.Query.SQL(),
		Source:         source,
		Result:         result,
		Chart:          chart,
		Insight:        buildInsight(result),
		ConversationID: req.ConversationID,
	}
	if source != resolution.Source {
		// The default-entry retry answered, not the resolved query
		resp.SQL = p.catalog.DefaultEntry().Query().SQL()
	}

	p.cacheResponse(ctx, question, resp)
	p.appendHistory(ctx, resp)

	observability.RecordAskMetrics(time.Since(start), source, true, false)

	p.logger.Info(ctx, "question answered", map[string]interface{}{
		"source":      source,
		"rows":        result.RowCount(),
		"chart":       string(chart.Kind),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return resp, nil
}

// executeWithRetry runs the resolved query, retrying once with the default
// fallback on engine failure. Returns the result and the source that
// actually produced it.
func (p *QueryProcessor) executeWithRetry(ctx context.Context, resolution Resolution) (*engine.ResultSet, string, error) {
	result, err := p.executor.Query(ctx, resolution.Query.SQL())
	if err == nil {
		return result, resolution.Source, nil
	}

	p.logger.Error(ctx, "query execution failed", err, map[string]interface{}{
		"source": resolution.Source,
		"kind":   executionKind(err),
	})

	fallback := p.catalog.DefaultEntry()
	if fallback.Query().SQL() == resolution.Query.SQL() {
		// Already ran the default entry; a second run would be the same
		return nil, resolution.Source, errors.NewQueryExecutionError(err)
	}

	retrySource := "fallback:" + fallback.Key
	result, retryErr := p.executor.Query(ctx, fallback.Query().SQL())
	if retryErr != nil {
		p.logger.Error(ctx, "fallback execution failed", retryErr, map[string]interface{}{
			"source": retrySource,
			"kind":   executionKind(retryErr),
		})
		return nil, retrySource, errors.NewQueryExecutionError(retryErr)
	}
	return result, retrySource, nil
}

func executionKind(err error) string {
	var execErr *engine.ExecutionError
	if stderrors.As(err, &execErr) {
		return string(execErr.Kind)
	}
	return "unknown"
}

// cachedResponse checks the Redis result cache for this question
func (p *QueryProcessor) cachedResponse(ctx context.Context, question string) *AskResponse {
	if p.cache == nil {
		return nil
	}
	data, err := p.cache.Get(ctx, cacheKey(question)).Bytes()
	if err != nil {
		if err != redis.Nil {
			p.logger.Debug(ctx, "cache read failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil
	}

	var resp AskResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil
	}
	resp.Cached = true
	return &resp
}

// cacheResponse stores the answer keyed by question. Best-effort.
func (p *QueryProcessor) cacheResponse(ctx context.Context, question string, resp *AskResponse) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, cacheKey(question), data, p.config.CacheTTL).Err(); err != nil {
		p.logger.Debug(ctx, "cache write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func cacheKey(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return "ask:" + hex.EncodeToString(sum[:])
}

// appendHistory records the turn when the request names a conversation
func (p *QueryProcessor) appendHistory(ctx context.Context, resp *AskResponse) {
	if p.history == nil || resp.ConversationID == "" {
		return
	}
	turn := session.Turn{
		Question: resp.Question,
		SQL:      resp.SQL,
		Source:   resp.Source,
		Chart:    string(resp.Chart.Kind),
		Insight:  resp.Insight,
		AskedAt:  time.Now().UTC(),
	}
	if err := p.history.Append(ctx, resp.ConversationID, turn); err != nil {
		p.logger.Debug(ctx, "history append failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// SetupRoutes registers the question-answering endpoints on the API group
func (p *QueryProcessor) SetupRoutes(r *gin.RouterGroup) {
	r.POST("/ask", p.handleAsk)
	r.GET("/fallbacks", p.handleFallbacks)
	r.GET("/dataset/summary", p.handleDatasetSummary)
	r.GET("/history", p.handleHistory)
	r.GET("/exemplars", p.handleExemplars)
}

func (p *QueryProcessor) handleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.NewInvalidInputError("question", "required field"))
		return
	}

	// A fresh conversation ID lets the client thread follow-up questions
	if req.ConversationID == "" && p.history != nil {
		if id, err := session.NewConversationID(); err == nil {
			req.ConversationID = id
		}
	}

	resp, err := p.ProcessQuestion(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (p *QueryProcessor) handleFallbacks(c *gin.Context) {
	type fallbackView struct {
		Key         string `json:"key"`
		Description string `json:"description"`
		SQL         string `json:"sql"`
	}
	entries := p.catalog.Entries()
	views := make([]fallbackView, 0, len(entries))
	for _, e := range entries {
		views = append(views, fallbackView{
			Key:         e.Key,
			Description: e.Description,
			SQL:         e.Query().SQL(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"fallbacks": views})
}

func (p *QueryProcessor) handleDatasetSummary(c *gin.Context) {
	if p.summarizer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{"code": "NOT_AVAILABLE", "message": "Dataset summary is not available"},
		})
		return
	}
	summary, err := p.summarizer.Summarize(c.Request.Context())
	if err != nil {
		writeError(c, errors.NewQueryExecutionError(err))
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (p *QueryProcessor) handleHistory(c *gin.Context) {
	if p.history == nil {
		c.JSON(http.StatusOK, gin.H{"turns": []session.Turn{}})
		return
	}
	conversationID := c.Query("conversation_id")
	if conversationID == "" {
		writeError(c, errors.NewInvalidInputError("conversation_id", "required query parameter"))
		return
	}
	turns, err := p.history.Recent(c.Request.Context(), conversationID, 50)
	if err != nil {
		p.logger.Error(c.Request.Context(), "history read failed", err, nil)
		c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "turns": []session.Turn{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": conversationID, "turns": turns})
}

// handleExemplars lists recently accepted generated queries across all
// users, a global companion to the per-conversation history
func (p *QueryProcessor) handleExemplars(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	exemplars, err := p.resolver.RecentExemplars(c.Request.Context(), limit)
	if err != nil {
		p.logger.Error(c.Request.Context(), "exemplar listing failed", err, nil)
		c.JSON(http.StatusOK, gin.H{"exemplars": []semantic.Exemplar{}})
		return
	}
	if exemplars == nil {
		exemplars = []semantic.Exemplar{}
	}
	c.JSON(http.StatusOK, gin.H{"exemplars": exemplars})
}

// writeError maps an error onto a JSON body with its user-safe fields only
func writeError(c *gin.Context, err error) {
	var enhanced *errors.EnhancedError
	if !stderrors.As(err, &enhanced) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": "INTERNAL_ERROR", "message": "An unexpected error occurred"},
		})
		return
	}

	status := http.StatusInternalServerError
	switch enhanced.Code {
	case errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case errors.ErrCodeQueryExecution:
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{
		"error": gin.H{
			"code":       string(enhanced.Code),
			"message":    enhanced.Message,
			"suggestion": enhanced.Suggestion,
		},
	})
}
