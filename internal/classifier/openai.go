package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/triagehq/request-triage/internal/config"
	"github.com/triagehq/request-triage/internal/domain"
	apperrors "github.com/triagehq/request-triage/pkg/util"
)

const systemPrompt = `You are an IT service-desk triage assistant. Given a ticket, respond with a single JSON object:
{"assignedTeam": string, "priority": "HIGH"|"MEDIUM"|"LOW",
 "knowledgeSuggestions": [{"title": string, "reason": string}],
 "aiSummaryProblem": string, "aiSummaryImpact": string, "aiSummaryAction": string}
Choose the team from the affected system and description. Respond with JSON only.`

// OpenAIClassifier calls a chat-completion model to triage submissions.
type OpenAIClassifier struct {
	client  *openai.Client
	model   string
	timeout config.ClassifierConfig
}

// NewOpenAIClassifier builds the adapter, or nil when no API key is
// configured (callers then always use the fallback).
func NewOpenAIClassifier(cfg config.ClassifierConfig) *OpenAIClassifier {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}
	return &OpenAIClassifier{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg,
	}
}

// Classify sends the submission to the model and decodes its JSON verdict.
// The context deadline is applied here so submission latency stays bounded.
func (c *OpenAIClassifier) Classify(ctx context.Context, input Input) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout.Timeout())
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: renderTicket(input),
			},
		},
		Temperature: 0,
		MaxTokens:   600,
	})
	if err != nil {
		return nil, apperrors.NewUpstreamAdapter(err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.NewUpstreamAdapter(errors.New("empty completion"))
	}
	result, err := decodeVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, apperrors.NewUpstreamAdapter(err)
	}
	return Normalize(result), nil
}

func renderTicket(input Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", input.Title)
	fmt.Fprintf(&b, "Description: %s\n", input.Description)
	if input.AffectedSystem != "" {
		fmt.Fprintf(&b, "Affected system: %s\n", input.AffectedSystem)
	}
	fmt.Fprintf(&b, "Work blocked: %t\n", input.IsBlocking)
	fmt.Fprintf(&b, "Requested timeline: %s\n", input.RequestedTimeline)
	return b.String()
}

type verdictPayload struct {
	AssignedTeam         string `json:"assignedTeam"`
	Priority             string `json:"priority"`
	KnowledgeSuggestions []struct {
		Title  string `json:"title"`
		Reason string `json:"reason"`
	} `json:"knowledgeSuggestions"`
	AISummaryProblem string `json:"aiSummaryProblem"`
	AISummaryImpact  string `json:"aiSummaryImpact"`
	AISummaryAction  string `json:"aiSummaryAction"`
}

func decodeVerdict(content string) (*Result, error) {
	// Models occasionally wrap the object in a code fence.
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var payload verdictPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &payload); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}

	result := &Result{
		AssignedTeam:   strings.TrimSpace(payload.AssignedTeam),
		Priority:       domain.TicketPriority(strings.ToUpper(strings.TrimSpace(payload.Priority))),
		SummaryProblem: strings.TrimSpace(payload.AISummaryProblem),
		SummaryImpact:  strings.TrimSpace(payload.AISummaryImpact),
		SummaryAction:  strings.TrimSpace(payload.AISummaryAction),
	}
	for _, s := range payload.KnowledgeSuggestions {
		if strings.TrimSpace(s.Title) == "" {
			continue
		}
		result.KnowledgeSuggestions = append(result.KnowledgeSuggestions, domain.KnowledgeSuggestion{
			Title:  strings.TrimSpace(s.Title),
			Reason: strings.TrimSpace(s.Reason),
		})
	}
	return result, nil
}
