// Package semantic runs the gate's second stage: a single LLM review of
// the full commit for residual secrets and format compliance. The stage
// is advisory infrastructure, not a hard dependency; every failure mode
// collapses into ErrUnavailable and the gate degrades to pattern-only
// judgment.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LucerneSecurity/commitgate/pkg/gate"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// ErrUnavailable marks any failure of the semantic stage: missing
// credentials, unreachable service, timeout, or an unparseable reply.
// Callers must treat it as "no opinion", never as a judgment.
var ErrUnavailable = errors.New("semantic analysis unavailable")

const (
	// DefaultModel is used when no --semantic-model is set.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds the single analysis call.
	DefaultTimeout = 30 * time.Second

	maxTokens = 2048
)

// ChatCompleter is the slice of the chat completion API the analyzer
// needs. *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options configure an Analyzer.
type Options struct {
	Model   string
	Timeout time.Duration
}

// Analyzer performs one chat completion per commit. No retries: a flaky
// semantic service must never stall the CI job beyond the timeout.
type Analyzer struct {
	client  ChatCompleter
	model   string
	timeout time.Duration
}

func NewAnalyzer(client ChatCompleter, options Options) *Analyzer {
	if options.Model == "" {
		options.Model = DefaultModel
	}

	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}

	return &Analyzer{
		client:  client,
		model:   options.Model,
		timeout: options.Timeout,
	}
}

// Analyze submits the commit for review and parses the structured reply.
// Every returned error wraps ErrUnavailable.
func (a *Analyzer) Analyze(ctx context.Context, input gate.AnalysisInput) (gate.SemanticJudgment, error) {
	if a.client == nil {
		return gate.SemanticJudgment{}, fmt.Errorf("%w: not configured", ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: a.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: UserPrompt(input)},
		},
	}

	// Reasoning models (o1/o3/o4/gpt-5*) reject MaxTokens
	if strings.HasPrefix(a.model, "o1") || strings.HasPrefix(a.model, "o3") || strings.HasPrefix(a.model, "o4") || strings.HasPrefix(a.model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	log.Debug().Str("model", a.model).Dur("timeout", a.timeout).Msg("Requesting semantic analysis")

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return gate.SemanticJudgment{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return gate.SemanticJudgment{}, fmt.Errorf("%w: reply had no choices", ErrUnavailable)
	}

	judgment, err := ParseJudgment(resp.Choices[0].Message.Content)
	if err != nil {
		return gate.SemanticJudgment{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	log.Debug().Int("secrets", len(judgment.SecretsFound)).Bool("formatCompliant", judgment.Format.Compliant).Msg("Semantic analysis finished")
	return judgment, nil
}
