// Package groq wraps the OpenAI-compatible Groq endpoint behind the
// contract.ChatClient interface.
package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	contractx "github.com/VictorDiniz1202/TrabalhoFILIPEVICTOR/agent/contract"
)

type Config struct {
	BaseURL     string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.groq.com/openai/v1"`
	APIKey      string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model       string        `envconfig:"MODEL" split_words:"true" default:"llama-3.3-70b-versatile"`
	Temperature float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout     time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

type Client struct {
	api         openaisdk.Client
	model       string
	temperature float64
}

var _ contractx.ChatClient = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: groq api key is required", contractx.ErrValidation)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	return &Client{
		api:         openaisdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		temperature: cfg.Temperature,
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

func (c *Client) Complete(ctx context.Context, req contractx.ChatRequest) (contractx.ChatResponse, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    toMessages(req.System, req.History),
		Temperature: openaisdk.Float(c.temperature),
	}
	if len(req.Tools) > 0 {
		params.Tools = toTools(req.Tools)
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.ChatResponse{}, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return contractx.ChatResponse{}, fmt.Errorf("%w: completion has no choices", contractx.ErrModelInvoke)
	}

	msg := resp.Choices[0].Message
	out := contractx.ChatResponse{Text: strings.TrimSpace(msg.Content)}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, contractx.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func (c *Client) CompleteJSON(ctx context.Context, system, user string, out any) error {
	resp, err := c.api.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(user),
		},
		Temperature: openaisdk.Float(0.6),
		ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: completion has no choices", contractx.ErrModelInvoke)
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("%w: decode json completion: %v", contractx.ErrModelInvoke, err)
	}
	return nil
}

func toMessages(system string, history []contractx.ChatMessage) []openaisdk.ChatCompletionMessageParamUnion {
	msgs := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, openaisdk.SystemMessage(system))
	}
	for _, m := range history {
		switch m.Role {
		case "user":
			msgs = append(msgs, openaisdk.UserMessage(m.Content))
		case "assistant":
			if m.ToolCall != nil {
				assistant := openaisdk.ChatCompletionAssistantMessageParam{
					ToolCalls: []openaisdk.ChatCompletionMessageToolCallParam{{
						ID: m.ToolCall.ID,
						Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
							Name:      m.ToolCall.Name,
							Arguments: m.ToolCall.Arguments,
						},
					}},
				}
				msgs = append(msgs, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
				continue
			}
			msgs = append(msgs, openaisdk.AssistantMessage(m.Content))
		case "tool":
			msgs = append(msgs, openaisdk.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return msgs
}

func toTools(specs []contractx.ToolSpec) []openaisdk.ChatCompletionToolParam {
	tools := make([]openaisdk.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openaisdk.String(spec.Description),
				Parameters:  shared.FunctionParameters(spec.Parameters),
			},
		})
	}
	return tools
}
