package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	OpenAIAPIBaseURL = "https://api.openai.com/v1"
	MaxTokens        = 500
	Temperature      = 0.0 // deterministic SQL generation
)

// OpenAIClient implements the Client interface using OpenAI's chat completions API
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// OpenAI API request structures
type ChatRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAI API response structures
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Error response structure
type APIError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type APIErrorResponse struct {
	Error APIError `json:"error"`
}

// systemPrompt pins the translator to a single bare SELECT statement; the
// safety checker still treats whatever comes back as untrusted.
const systemPrompt = "You produce only SQL SELECT statements for the sales dataset. No prose, no code fences."

// NewOpenAIClient creates a new OpenAI translator client
func NewOpenAIClient(apiKey, model string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: OpenAIAPIBaseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// GenerateSQL sends a prompt to the model and returns a candidate SQL statement
func (c *OpenAIClient) GenerateSQL(ctx context.Context, prompt string) (*Response, error) {
	request := ChatRequest{
		Model:       c.model,
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	response, err := c.sendChatRequestWithRetry(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenAI: %w", err)
	}

	sql := extractSQL(response)
	if sql == "" {
		return nil, fmt.Errorf("translator did not return a SQL statement")
	}

	return &Response{SQL: sql}, nil
}

// sendChatRequest handles the HTTP communication with the OpenAI API
func (c *OpenAIClient) sendChatRequest(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleAPIError(resp.StatusCode, body)
	}

	var chatResponse ChatResponse
	if err := json.Unmarshal(body, &chatResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &chatResponse, nil
}

// extractSQL pulls the SQL statement out of the model's reply, stripping code
// fences the model sometimes adds despite being told not to
func extractSQL(response *ChatResponse) string {
	if len(response.Choices) == 0 {
		return ""
	}
	return StripCodeFences(response.Choices[0].Message.Content)
}

// StripCodeFences removes a surrounding markdown code block, with or without
// a language tag, and trims whitespace
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return strings.TrimSpace(strings.Trim(text, "`"))
	}

	// Drop the opening fence line (``` or ```sql)
	lines = lines[1:]

	// Drop the closing fence if present
	last := strings.TrimSpace(lines[len(lines)-1])
	if strings.HasPrefix(last, "```") {
		lines = lines[:len(lines)-1]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// handleAPIError processes OpenAI API errors
func (c *OpenAIClient) handleAPIError(statusCode int, body []byte) error {
	var errorResponse APIErrorResponse
	if err := json.Unmarshal(body, &errorResponse); err != nil {
		return fmt.Errorf("API error %d: %s", statusCode, string(body))
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("invalid API key: %s", errorResponse.Error.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limit exceeded: %s", errorResponse.Error.Message)
	case http.StatusBadRequest:
		return fmt.Errorf("bad request: %s", errorResponse.Error.Message)
	case http.StatusInternalServerError:
		return fmt.Errorf("OpenAI API internal error: %s", errorResponse.Error.Message)
	default:
		return fmt.Errorf("OpenAI API error %d: %s", statusCode, errorResponse.Error.Message)
	}
}

// GetEmbedding implements simple text-based similarity using basic string features.
// Good enough for nearest-neighbour lookup over a small exemplar store; swap in
// a real embedding endpoint if the store grows.
func (c *OpenAIClient) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return createSimpleEmbedding(text), nil
}

// createSimpleEmbedding creates a basic text representation for similarity matching
func createSimpleEmbedding(text string) []float32 {
	const embeddingDim = 384
	embedding := make([]float32, embeddingDim)

	text = strings.ToLower(text)

	// Feature 1-50: character frequencies
	charCounts := make(map[rune]int)
	for _, char := range text {
		charCounts[char]++
	}

	chars := "abcdefghijklmnopqrstuvwxyz0123456789 "
	for i, char := range chars {
		if i < 50 {
			if count, exists := charCounts[char]; exists {
				embedding[i] = float32(count) / float32(len(text))
			}
		}
	}

	// Feature 51-110: sales-analysis vocabulary
	keywords := []string{
		"revenue", "sales", "units", "price", "month", "monthly", "date",
		"category", "region", "channel", "segment", "customer", "online",
		"store", "total", "sum", "average", "count", "top", "best", "worst",
		"trend", "growth", "compare", "share", "ratio", "percent",
		"electronics", "clothing", "groceries", "north", "south", "east",
		"west", "consumer", "corporate", "quarter", "year", "week", "day",
		"recent", "last", "per", "by", "over", "highest", "lowest",
		"売上", "月", "地域", "カテゴリ", "チャネル", "顧客", "合計", "平均", "推移",
	}

	for i, keyword := range keywords {
		if i+50 < embeddingDim {
			if strings.Contains(text, keyword) {
				embedding[i+50] = 1.0
			}
		}
	}

	// Structural features
	if 150 < embeddingDim {
		embedding[150] = float32(len(text)) / 1000.0
		embedding[151] = float32(strings.Count(text, " ")) / float32(len(text)+1)
		embedding[152] = float32(strings.Count(text, "?"))
	}

	// Normalize the embedding vector
	var magnitude float32
	for _, val := range embedding {
		magnitude += val * val
	}
	if magnitude > 0 {
		magnitude = float32(1.0 / (magnitude + 0.001))
		for i := range embedding {
			embedding[i] *= magnitude
		}
	}

	return embedding
}
