package assist

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAI is a Provider backed by the chat completions API with a
// JSON-schema-constrained response.
type OpenAI struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAI(apiKey, model, baseURL string, logger *slog.Logger) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}
}

func (o *OpenAI) SuggestWeek(ctx context.Context, description string, step int) (*Suggestion, error) {
	systemPrompt := buildSystemPrompt(step)
	userPrompt := buildUserPrompt(description)

	o.logger.Debug("requesting schedule suggestion",
		"model", o.model,
		"step", step,
		"description_len", len(description),
	)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "week_schedule",
					Description: openai.String("Weekly thermostat occupancy schedule"),
					Schema:      suggestionSchema(),
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("requesting suggestion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion response")
	}

	content := resp.Choices[0].Message.Content
	o.logger.Debug("suggestion response", "content_len", len(content))

	return parseSuggestion(content)
}
