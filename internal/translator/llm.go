package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/MimeLyc/sentence-sub-translator/internal/termmap"
)

const (
	DefaultLLMAPIURL = "https://openrouter.ai/api/v1"
	DefaultLLMModel  = "openai/gpt-4o-mini"
)

const systemPromptTemplate = `You are a professional subtitle translator.
Translate the user's text into the language with code %q.
The text is one spoken sentence assembled from consecutive subtitle cues.
Keep the meaning, tone and punctuation, including ellipses.
Reply with the translation only, on a single line, without quotes or notes.`

const glossaryPromptHeader = `
Always translate these terms exactly as given:`

// Glossary supplies fixed translations for terms found in a text.
// *termmap.Glossary implements it.
type Glossary interface {
	Lookup(text, targetLang string) termmap.TermMap
}

var _ Glossary = (*termmap.Glossary)(nil)

// chatCompleter is the subset of the go-openai client the translator uses.
// *openai.Client implements it.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var _ chatCompleter = (*openai.Client)(nil)

// LLMConfig configures an OpenAI-compatible chat completion endpoint
// (OpenRouter, OpenAI and similar).
type LLMConfig struct {
	APIKey      string
	APIURL      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

func (c LLMConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("API key is required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

// LLMTranslator translates through a chat completion model.
type LLMTranslator struct {
	client      chatCompleter
	model       string
	temperature float32
	glossary    Glossary
}

type LLMOption func(*LLMTranslator)

// WithGlossary adds the matching glossary terms to every prompt.
func WithGlossary(g Glossary) LLMOption {
	return func(t *LLMTranslator) {
		t.glossary = g
	}
}

func NewLLMTranslator(cfg LLMConfig, opts ...LLMOption) (*LLMTranslator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid LLM configuration: %w", err)
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.APIURL, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return newLLMTranslator(openai.NewClientWithConfig(clientCfg), cfg.Model, cfg.Temperature, opts...), nil
}

func newLLMTranslator(client chatCompleter, model string, temperature float64, opts ...LLMOption) *LLMTranslator {
	t := &LLMTranslator{
		client:      client,
		model:       model,
		temperature: float32(temperature),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *LLMTranslator) Translate(ctx context.Context, text string, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: t.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: t.systemPrompt(text, targetLang)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", classifyLLMError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response: %w", ErrTransient)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty translation in response: %w", ErrTransient)
	}
	// models occasionally answer on several lines; a cue group is one sentence
	return strings.Join(strings.Fields(content), " "), nil
}

func (t *LLMTranslator) systemPrompt(text, targetLang string) string {
	prompt := fmt.Sprintf(systemPromptTemplate, targetLang)
	if t.glossary == nil {
		return prompt
	}
	terms := t.glossary.Lookup(text, targetLang)
	if len(terms) == 0 {
		return prompt
	}

	sources := make([]string, 0, len(terms))
	for source := range terms {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString(glossaryPromptHeader)
	for _, source := range sources {
		fmt.Fprintf(&b, "\n- %s => %s", source, terms[source])
	}
	return b.String()
}

// classifyLLMError maps go-openai errors to the failure classes.
func classifyLLMError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("chat completion aborted: %w: %w", ctx.Err(), ErrPermanent)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests &&
			(strings.Contains(apiErr.Message, "quota") || strings.Contains(apiErr.Message, "billing")) {
			return fmt.Errorf("%s: %w", apiErr.Message, ErrQuotaExceeded)
		}
		return classifyStatus("LLM", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus("LLM", reqErr.HTTPStatusCode, reqErr.Error())
	}

	return fmt.Errorf("chat completion: %v: %w", err, ErrTransient)
}
