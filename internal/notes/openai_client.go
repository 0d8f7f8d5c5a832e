package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meetingscribe/diarization-gateway/internal/config"
	"github.com/meetingscribe/diarization-gateway/internal/observability"
	"github.com/meetingscribe/diarization-gateway/internal/resilience"
)

// ErrNotesDisabled is returned when no OpenAI API key is configured.
var ErrNotesDisabled = errors.New("meeting notes generation is not configured")

const defaultAPIURL = "https://api.openai.com/v1/chat/completions"

const systemPrompt = "You are a professional meeting secretary. Generate structured " +
	"meeting notes from transcripts. Always respond with valid JSON format."

// OpenAIClient implements Generator using the OpenAI chat completions
// API.
type OpenAIClient struct {
	apiKey         string
	apiURL         string
	model          string
	httpClient     *http.Client
	circuitBreaker *resilience.CircuitBreaker
	retryCfg       *resilience.RetryConfig
}

// NewOpenAIClient creates a notes generator backed by OpenAI.
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	retryCfg := resilience.DefaultRetryConfig()
	if cfg.RetryMaxAttempts > 0 {
		retryCfg.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialBackoff > 0 {
		retryCfg.InitialBackoff = time.Duration(cfg.RetryInitialBackoff) * time.Millisecond
	}
	return &OpenAIClient{
		apiKey: cfg.OpenAIAPIKey,
		apiURL: defaultAPIURL,
		model:  cfg.NotesModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		circuitBreaker: resilience.NewCircuitBreaker(
			"openai",
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		retryCfg: retryCfg,
	}
}

// apiError carries the HTTP status of a failed notes API call so the
// retry predicate can tell rate limits and server errors from the rest.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("notes API returned status %d: %s", e.status, e.body)
}

func retryableNotesError(err error) bool {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.status == http.StatusTooManyRequests || apiErr.status >= 500
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	MaxTokens int `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate produces structured meeting notes from the transcript.
func (c *OpenAIClient) Generate(ctx context.Context, transcript string) (*MeetingNotes, error) {
	if c.apiKey == "" {
		return nil, ErrNotesDisabled
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.New("transcript is empty")
	}

	start := time.Now()
	var result *MeetingNotes
	err := c.circuitBreaker.Call(func() error {
		return resilience.Retry(ctx, func() error {
			var callErr error
			result, callErr = c.generate(ctx, transcript)
			return callErr
		}, c.retryCfg, retryableNotesError)
	})
	observability.RecordNotesRequest(err, time.Since(start))
	observability.UpdateCircuitBreakerState("openai", int(c.circuitBreaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("openai")
		return nil, err
	}
	return result, nil
}

func (c *OpenAIClient) generate(ctx context.Context, transcript string) (*MeetingNotes, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(transcript)},
		},
		MaxTokens: 1500,
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notes request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apiError{status: resp.StatusCode, body: string(body)}
	}

	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("empty response from notes API")
	}

	var meeting MeetingNotes
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &meeting); err != nil {
		return nil, fmt.Errorf("failed to parse notes JSON: %w", err)
	}
	return &meeting, nil
}

func buildPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("Please analyze the following meeting transcript and generate comprehensive meeting notes in JSON format.\n\n")
	b.WriteString("The output should include:\n")
	b.WriteString("- summary: A concise 2-3 sentence summary of the meeting's main purpose and outcomes\n")
	b.WriteString("- key_points: List of main discussion points and topics covered\n")
	b.WriteString("- action_items: List of specific tasks, assignments, or follow-ups with details (who, what, when if mentioned)\n")
	b.WriteString("- decisions: List of concrete decisions made during the meeting\n")
	b.WriteString("- participants_mentioned: Names, roles, or departments mentioned in the transcript\n")
	b.WriteString("- next_steps: Any mentioned next steps, future meetings, or deadlines\n")
	b.WriteString("- priority_actions: Top 3 most important action items that need immediate attention\n")
	b.WriteString("- meeting_type: The type/purpose of meeting (e.g., \"Planning\", \"Status Update\", \"Decision Making\")\n\n")
	b.WriteString("Transcript:\n")
	b.WriteString(transcript)
	b.WriteString("\n\nPlease respond with valid JSON only.")
	return b.String()
}

// Format renders the notes as readable markdown sections.
func Format(n *MeetingNotes) string {
	var sections []string

	if n.MeetingType != "" {
		sections = append(sections, "## "+n.MeetingType+" Meeting")
	}
	if n.Summary != "" {
		sections = append(sections, "## Executive Summary\n"+n.Summary)
	}
	appendList := func(title string, items []string, numbered bool) {
		if len(items) == 0 {
			return
		}
		lines := []string{title}
		for i, item := range items {
			if numbered {
				lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
			} else {
				lines = append(lines, "- "+item)
			}
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	appendList("## Priority Action Items", n.PriorityActions, true)
	appendList("## Action Items", n.ActionItems, true)
	appendList("## Key Discussion Points", n.KeyPoints, false)
	appendList("## Decisions Made", n.Decisions, false)
	appendList("## Next Steps", n.NextSteps, false)
	appendList("## Participants Mentioned", n.ParticipantsMentioned, false)

	return strings.Join(sections, "\n\n")
}
