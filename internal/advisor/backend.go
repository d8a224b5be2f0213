package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	BackendRemote = "remote"
	BackendLocal  = "local"
	BackendStub   = "stub"

	DefaultOpenAIModel   = "gpt-3.5-turbo"
	DefaultOllamaBaseURL = "http://localhost:11434/v1"
	DefaultOllamaModel   = "llama3"

	completionTemperature = 0.3
	completionMaxTokens   = 1000
)

// Backend turns a system and user prompt into raw completion text.
type Backend interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// Factory builds the configured backend. It runs at most once per
// successful initialization.
type Factory func(ctx context.Context) (Backend, error)

type Settings struct {
	Backend       string
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	OllamaBaseURL string
	OllamaModel   string
	MaxRetries    int
}

// NewFactory resolves the backend variant once, at configuration time.
func NewFactory(s Settings) Factory {
	switch s.Backend {
	case BackendRemote:
		return func(ctx context.Context) (Backend, error) {
			return newRemote(s)
		}
	case BackendLocal:
		return func(ctx context.Context) (Backend, error) {
			return newLocal(ctx, s)
		}
	default:
		return func(ctx context.Context) (Backend, error) {
			return NewStub(), nil
		}
	}
}

type chatBackend struct {
	name   string
	client openai.Client
	model  string
}

func (b *chatBackend) Name() string { return b.name }

func (b *chatBackend) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(completionTemperature),
		MaxTokens:   openai.Int(completionMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func newRemote(s Settings) (Backend, error) {
	if strings.TrimSpace(s.OpenAIKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	model := s.OpenAIModel
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(s.OpenAIKey),
		option.WithMaxRetries(s.MaxRetries),
	}
	if s.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(withSlash(s.OpenAIBaseURL)))
	}
	return &chatBackend{name: BackendRemote, client: openai.NewClient(opts...), model: model}, nil
}

// newLocal talks to an Ollama server through its OpenAI-compatible API. The
// model listing doubles as a reachability probe.
func newLocal(ctx context.Context, s Settings) (Backend, error) {
	baseURL := s.OllamaBaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}
	model := s.OllamaModel
	if model == "" {
		model = DefaultOllamaModel
	}
	client := openai.NewClient(
		option.WithBaseURL(withSlash(baseURL)),
		option.WithAPIKey("ollama"),
		option.WithMaxRetries(s.MaxRetries),
	)
	if _, err := client.Models.List(ctx); err != nil {
		return nil, fmt.Errorf("ollama at %s unreachable: %w", baseURL, err)
	}
	return &chatBackend{name: BackendLocal, client: client, model: model}, nil
}

func withSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
