// Package codeassist wraps a completion provider with code-focused prompts.
package codeassist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/upb/llm-tenant-gateway/services/providers"
)

const (
	DefaultModel = "gpt-4"

	temperature = 0.3
	maxTokens   = 4096
)

// DocStyle selects the comment format GenerateDoc asks for
type DocStyle string

const (
	DocStyleGoDoc  DocStyle = "godoc"
	DocStyleJSDoc  DocStyle = "jsdoc"
	DocStyleTSDoc  DocStyle = "tsdoc"
	DocStylePython DocStyle = "python"
)

// Severity of a review issue
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ReviewIssue is a single finding reported by Review
type ReviewIssue struct {
	Severity   Severity `json:"severity"`
	Line       int      `json:"line,omitempty"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// ReviewResult is the structured outcome of Review
type ReviewResult struct {
	Issues  []ReviewIssue `json:"issues"`
	Score   int           `json:"score"`
	Summary string        `json:"summary"`
}

const reviewPrompt = `You are a professional code reviewer. Review the code and reply with JSON only, in this shape:
{
  "issues": [
    {
      "severity": "error|warning|info",
      "line": <number, optional>,
      "message": "<what is wrong>",
      "suggestion": "<how to fix it, optional>"
    }
  ],
  "score": <1-10>,
  "summary": "<overall assessment>"
}`

// Options configures an Assistant
type Options struct {
	Model string
}

// Assistant answers code questions through a provider
type Assistant struct {
	provider providers.Provider
	model    string
}

// New creates an Assistant
func New(provider providers.Provider, opts Options) *Assistant {
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}
	return &Assistant{provider: provider, model: model}
}

// Complete returns a completion of code, without explanation
func (a *Assistant) Complete(ctx context.Context, code string) (string, error) {
	return a.ask(ctx,
		"You are a professional coding assistant. Complete the code from its context and return only the completed code, with no explanation.",
		"Complete the following code:\n"+fence(code))
}

// Explain describes what code does and how
func (a *Assistant) Explain(ctx context.Context, code string) (string, error) {
	return a.ask(ctx,
		"You are a professional coding assistant. Explain in detail what the code does and how its logic works.",
		"Explain the following code:\n"+fence(code))
}

// Review asks for a JSON review. A reply that cannot be parsed becomes the
// summary of a neutral result with score 5.
func (a *Assistant) Review(ctx context.Context, code string) (*ReviewResult, error) {
	raw, err := a.ask(ctx, reviewPrompt, "Review the following code:\n"+fence(code))
	if err != nil {
		return nil, err
	}
	return parseReview(raw), nil
}

// FixBug returns a corrected version of code. description is optional.
func (a *Assistant) FixBug(ctx context.Context, code, description string) (string, error) {
	user := "Fix the bug in the following code:\n" + fence(code)
	if description != "" {
		user = fmt.Sprintf("Fix the bug in the following code. Error description: %s\n%s", description, fence(code))
	}
	return a.ask(ctx, "You are a professional coding assistant. Fix the bug in the code based on the error description.", user)
}

// GenerateDoc writes documentation comments for code in the given style,
// godoc when style is empty.
func (a *Assistant) GenerateDoc(ctx context.Context, code string, style DocStyle) (string, error) {
	if style == "" {
		style = DocStyleGoDoc
	}
	return a.ask(ctx,
		fmt.Sprintf("You are a professional documentation assistant. Write %s style documentation comments for the code.", style),
		"Generate documentation for the following code:\n"+fence(code))
}

func (a *Assistant) ask(ctx context.Context, system, user string) (string, error) {
	resp, err := a.provider.ChatCompletion(ctx, &providers.ChatRequest{
		Model: a.model,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: system},
			{Role: providers.RoleUser, Content: user},
		},
		Temperature: providers.Float64(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("code assistant request failed: %w", err)
	}
	return resp.Content(), nil
}

// parseReview decodes the span from the first '{' to the last '}'
func parseReview(raw string) *ReviewResult {
	fallback := &ReviewResult{Issues: []ReviewIssue{}, Score: 5, Summary: raw}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return fallback
	}

	var result ReviewResult
	if err := json.Unmarshal([]byte(raw[start:end+1]), &result); err != nil {
		return fallback
	}
	if result.Issues == nil {
		result.Issues = []ReviewIssue{}
	}
	return &result
}

func fence(code string) string {
	return "```\n" + code + "\n```"
}
