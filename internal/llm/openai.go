package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Defaults for the OpenAI adapter.
const (
	DefaultModel       = "gpt-4-turbo-preview"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1500
	DefaultTimeout     = 30 * time.Second
)

var tracer = otel.Tracer("agent-gateway/llm")

// OpenAIConfig configures the OpenAI adapter.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// OpenAI is a Model backed by the Chat Completions API.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

var _ Model = (*OpenAI)(nil)

// NewOpenAI creates the adapter, filling unset fields with defaults.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	o := &OpenAI{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
	}
	if o.model == "" {
		o.model = DefaultModel
	}
	if o.temperature == 0 {
		o.temperature = DefaultTemperature
	}
	if o.maxTokens == 0 {
		o.maxTokens = DefaultMaxTokens
	}
	if o.timeout == 0 {
		o.timeout = DefaultTimeout
	}
	return o
}

// Name returns the configured model identifier.
func (o *OpenAI) Name() string { return o.model }

// Complete sends req and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, req Request) (*Reply, error) {
	ctx, span := tracer.Start(ctx, "llm.chat_completion")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", o.model),
		attribute.Int("llm.messages", len(req.Messages)),
		attribute.Int("llm.functions", len(req.Functions)),
	)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	creq := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}
	if len(req.Functions) > 0 {
		creq.Functions = toOpenAIFunctions(req)
		creq.FunctionCall = "auto"
	}

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		log.Error().Err(err).Str("model", o.model).Msg("OpenAI API error")
		return nil, fmt.Errorf("create chat completion: %w", err)
	}

	log.Debug().
		Str("model", o.model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("latency", time.Since(start)).
		Msg("Chat completion received")

	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, "no choices")
		return nil, ErrNoReply
	}

	msg := resp.Choices[0].Message
	reply := &Reply{Content: msg.Content}
	if msg.FunctionCall != nil && msg.FunctionCall.Name != "" {
		reply.FunctionCall = &FunctionCall{
			Name:      msg.FunctionCall.Name,
			Arguments: msg.FunctionCall.Arguments,
		}
		span.SetAttributes(attribute.String("llm.function_call", msg.FunctionCall.Name))
	}
	return reply, nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    m.Name,
		}
		if m.FunctionCall != nil {
			cm.FunctionCall = &openai.FunctionCall{
				Name:      m.FunctionCall.Name,
				Arguments: m.FunctionCall.Arguments,
			}
		}
		out = append(out, cm)
	}
	return out
}

func toOpenAIFunctions(req Request) []openai.FunctionDefinition {
	out := make([]openai.FunctionDefinition, 0, len(req.Functions))
	for _, fn := range req.Functions {
		out = append(out, openai.FunctionDefinition{
			Name:        fn.Name,
			Description: fn.Description,
			Parameters:  fn.Parameters,
		})
	}
	return out
}
