package core

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"gwi.com/deepchat/internal/config"
)

// CompletionProvider streams a completion for a single prompt. onFragment is
// called once per non-empty text fragment, in arrival order; an error from
// onFragment aborts the stream and is returned.
type CompletionProvider interface {
	StreamCompletion(ctx context.Context, prompt string, onFragment func(string) error) error
}

// NewCompletionProvider builds the provider selected in cfg.
func NewCompletionProvider(ctx context.Context, cfg config.Config) (CompletionProvider, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel), nil
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	return nil, fmt.Errorf("unknown completion provider %q", cfg.LLMProvider)
}

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint,
// DeepSeek by default.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

func NewOpenAIProvider(baseURL, apiKey, model string) *OpenAIProvider {
	// A failed relay is terminal, so the SDK must not resend the request.
	options := []openaioption.RequestOption{
		openaioption.WithBaseURL(baseURL),
		openaioption.WithMaxRetries(0),
	}
	if apiKey == "" {
		log.Info("No completion API key configured, will try unauthenticated access")
	} else {
		options = append(options, openaioption.WithAPIKey(apiKey))
	}

	client := openai.NewClient(options...)
	return &OpenAIProvider{client: &client, model: model}
}

func (p *OpenAIProvider) StreamCompletion(ctx context.Context, prompt string, onFragment func(string) error) error {
	stream := p.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: p.model,
	})
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			if err := onFragment(content); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return errors.Wrap(err, "completion stream failed")
	}
	return nil
}

// GeminiProvider streams from Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create GenAI client")
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Close() {
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		} else {
			log.Println("GenAI client closed.")
		}
	}
}

func (p *GeminiProvider) StreamCompletion(ctx context.Context, prompt string, onFragment func(string) error) error {
	model := p.client.GenerativeModel(p.model)
	iter := model.GenerateContentStream(ctx, genai.Text(prompt))

	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "gemini stream failed")
		}
		if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			txt, ok := part.(genai.Text)
			if !ok {
				log.Debugf("Gemini response part was not text: %T", part)
				continue
			}
			if txt == "" {
				continue
			}
			if err := onFragment(string(txt)); err != nil {
				return err
			}
		}
	}
}
