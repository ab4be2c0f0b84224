// Package llm wraps the OpenAI API for chat, embeddings and structured
// JSON outputs, with retry handling for rate limits and server errors.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"go.uber.org/zap"

	"github.com/bokdori-ai/bokdori/fileutils"
)

const (
	DefaultModel           = "gpt-4o-mini"
	DefaultEmbeddingModel  = string(openai.EmbeddingModelTextEmbedding3Small)
	DefaultMaxOutputTokens = 1000
)

// Message is one turn of a conversation passed to Chat.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Config selects the models and generation limits for a Client.
type Config struct {
	APIKey          string
	Model           string
	EmbeddingModel  string
	Temperature     float64
	MaxOutputTokens int64
}

// Client is a configured OpenAI API client.
type Client struct {
	api             openai.Client
	model           string
	embeddingModel  string
	temperature     float64
	maxOutputTokens int64
	log             *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("NewClient: API key is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}
	logger.Info("LLM client initialized",
		zap.String("model", cfg.Model),
		zap.String("embedding_model", cfg.EmbeddingModel))
	return &Client{
		api:             openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:           cfg.Model,
		embeddingModel:  cfg.EmbeddingModel,
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
		log:             logger,
	}, nil
}

// Chat sends the conversation to the model and returns the reply text.
// Messages with unknown roles are sent as user turns.
func (c *Client) Chat(ctx context.Context, instructions string, msgs []Message) (string, error) {
	if len(msgs) == 0 {
		return "", errors.New("Chat: no messages")
	}

	items := make([]responses.ResponseInputItemUnionParam, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, chatRole(m.Role)))
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(c.maxOutputTokens),
		Temperature:     openai.Float(c.temperature),
		ServiceTier:     responses.ResponseNewParamsServiceTierFlex,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: items,
		},
	}
	if instructions != "" {
		params.Instructions = openai.String(instructions)
	}

	resp, err := CallWithRetry(ctx, &c.api, params)
	if err != nil {
		return "", fmt.Errorf("Chat: %w", err)
	}
	return strings.TrimSpace(resp.OutputText()), nil
}

func chatRole(role string) responses.EasyInputMessageRole {
	switch role {
	case RoleAssistant:
		return responses.EasyInputMessageRoleAssistant
	case RoleSystem:
		return responses.EasyInputMessageRoleSystem
	default:
		return responses.EasyInputMessageRoleUser
	}
}

// Structured asks the model for a strict JSON object matching T's schema
// and decodes the reply into T.
func Structured[T any](ctx context.Context, c *Client, name, description, instructions, input string) (T, error) {
	var out T
	if c == nil {
		return out, errors.New("Structured: client is nil")
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(c.maxOutputTokens),
		Instructions:    openai.String(instructions),
		ServiceTier:     responses.ResponseNewParamsServiceTierFlex,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        name,
					Schema:      GenerateSchema[T](),
					Strict:      openai.Bool(true),
					Description: openai.String(description),
					Type:        "json_schema",
				},
			},
		},
	}

	resp, err := CallWithRetry(ctx, &c.api, params)
	if err != nil {
		return out, fmt.Errorf("Structured %s: %w", name, err)
	}
	if err := fileutils.DecodeModelJSON(resp.OutputText(), &out); err != nil {
		return out, fmt.Errorf("Structured %s: %w (model_output_prefix=%q)",
			name, err, fileutils.Truncate(resp.OutputText(), 500))
	}
	return out, nil
}
