package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// BatchScorer assigns a polarity in [-1, 1] to each title, keyed by input index.
type BatchScorer interface {
	ScoreBatch(ctx context.Context, titles []string) (map[int]float64, error)
}

type chatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type OpenAIScorer struct {
	client chatClient
	model  string
}

// NewOpenAIScorer returns nil when apiKey is empty.
func NewOpenAIScorer(apiKey, model string) *OpenAIScorer {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIScorer{
		client: &openAIClient{client: openai.NewClient(option.WithAPIKey(apiKey))},
		model:  model,
	}
}

const scorerPrompt = "You score the sentiment of stock market headlines for the named ticker. " +
	"Return ONLY a JSON array. Each object requires: id (int), score (-1..1). No markdown."

func (s *OpenAIScorer) ScoreBatch(ctx context.Context, titles []string) (map[int]float64, error) {
	if s == nil || s.client == nil || len(titles) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, title := range titles {
		fmt.Fprintf(&sb, "id=%d\ntitle=%s\n\n", i, strings.TrimSpace(title))
	}

	completion, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(scorerPrompt),
			openai.UserMessage("Headlines:\n" + sb.String()),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty scorer completion")
	}

	var parsed []struct {
		ID    int     `json:"id"`
		Score float64 `json:"score"`
	}
	raw := trimCodeFence(completion.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse scorer json: %w", err)
	}

	out := make(map[int]float64, len(parsed))
	for _, row := range parsed {
		if row.ID < 0 || row.ID >= len(titles) {
			continue
		}
		out[row.ID] = clamp(row.Score, -1, 1)
	}
	return out, nil
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "```") {
		return v
	}
	v = strings.TrimSpace(strings.TrimPrefix(v, "```"))
	if strings.HasPrefix(strings.ToLower(v), "json") {
		v = strings.TrimSpace(v[4:])
	}
	return strings.TrimSpace(strings.TrimSuffix(v, "```"))
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

type openAIClient struct {
	client openai.Client
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
