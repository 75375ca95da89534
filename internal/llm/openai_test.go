package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClient(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewOpenAIClient("", "gpt-4o-mini", 30*time.Second)
		require.Error(t, err)
	})

	t.Run("defaults model and timeout", func(t *testing.T) {
		c, err := NewOpenAIClient("sk-test", "", 0)
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", c.model)
		assert.Equal(t, 30*time.Second, c.client.Timeout)
	})
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no fences",
			in:   "SELECT category, SUM(revenue) FROM sales GROUP BY 1",
			want: "SELECT category, SUM(revenue) FROM sales GROUP BY 1",
		},
		{
			name: "plain fences",
			in:   "```\nSELECT * FROM sales\n```",
			want: "SELECT * FROM sales",
		},
		{
			name: "sql language tag",
			in:   "```sql\nSELECT month, SUM(revenue)\nFROM sales\nGROUP BY 1\n```",
			want: "SELECT month, SUM(revenue)\nFROM sales\nGROUP BY 1",
		},
		{
			name: "missing closing fence",
			in:   "```sql\nSELECT 1",
			want: "SELECT 1",
		},
		{
			name: "surrounding whitespace",
			in:   "  \n```sql\nSELECT 1\n```\n  ",
			want: "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestExtractSQL(t *testing.T) {
	t.Run("empty choices", func(t *testing.T) {
		assert.Equal(t, "", extractSQL(&ChatResponse{}))
	})

	t.Run("fenced content", func(t *testing.T) {
		resp := &ChatResponse{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: "```sql\nSELECT 1\n```"}}},
		}
		assert.Equal(t, "SELECT 1", extractSQL(resp))
	})
}

func TestCreateSimpleEmbedding(t *testing.T) {
	c, err := NewOpenAIClient("sk-test", "", 0)
	require.NoError(t, err)

	a, err := c.GetEmbedding(context.Background(), "monthly revenue by category")
	require.NoError(t, err)
	b, err := c.GetEmbedding(context.Background(), "monthly revenue by category")
	require.NoError(t, err)

	assert.Len(t, a, 384)
	// Deterministic: same text, same vector
	assert.Equal(t, a, b)

	other, err := c.GetEmbedding(context.Background(), "units sold per region last week")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}
