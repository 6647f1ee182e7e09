package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/feynlab/feynlab/pkg/types"
)

// OpenAIConfig configures the OpenAI-compatible model client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIClient implements ModelClient over an OpenAI-compatible chat
// completion endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates the client. BaseURL is optional and supports
// compatible gateways.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(conf),
		model:  model,
	}
}

// rawVerdict is the JSON shape the model is instructed to emit.
type rawVerdict struct {
	Status     string   `json:"status"`
	Issues     []string `json:"issues"`
	Strengths  []string `json:"strengths"`
	Suggestion *string  `json:"suggestion"`
}

// Validate sends the compressed turns and parses the verdict out of the
// response text. Models wrap JSON in markdown fences often enough that
// extraction happens here, at the boundary, and nowhere else.
func (c *OpenAIClient) Validate(ctx context.Context, req Request) (*types.Verdict, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, turn := range req.Turns {
		role := openai.ChatMessageRoleUser
		switch turn.Role {
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		case "system":
			role = openai.ChatMessageRoleSystem
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Text})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedVerdict)
	}

	verdict, err := parseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	verdict.TokensUsed = resp.Usage.TotalTokens
	return verdict, nil
}

// parseVerdict extracts the first JSON object from the response text
// and maps it onto the verdict shape.
func parseVerdict(body string) (*types.Verdict, error) {
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformedVerdict)
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(body[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}

	status := types.FieldStatus(raw.Status)
	switch status {
	case types.StatusApproved, types.StatusNeedsRevision, types.StatusAnalyzing:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrMalformedVerdict, raw.Status)
	}

	return &types.Verdict{
		Status:     status,
		Issues:     raw.Issues,
		Strengths:  raw.Strengths,
		Suggestion: raw.Suggestion,
	}, nil
}
