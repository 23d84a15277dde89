package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"nyc-local-events-pipeline/internal/models"
)

// OpenAIClient handles model-assisted event extraction using OpenAI
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

// llmEvent mirrors the JSON object the model is instructed to return.
type llmEvent struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	StartTime   string `json:"start_time"`
	Date        string `json:"date"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Website     string `json:"website"`
}

// NewOpenAIClient creates a new OpenAI client. Returns an error instead of
// exiting so a missing key degrades to the rule-based path.
func NewOpenAIClient() (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		model:       "gpt-4o-mini",
		temperature: 0.1,
		maxTokens:   1000,
		timeout:     30 * time.Second,
	}, nil
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom
// configuration. An empty baseURL keeps the default API endpoint.
func NewOpenAIClientWithConfig(apiKey, model string, temperature float32, maxTokens int, timeout time.Duration, baseURL string) *OpenAIClient {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
	}
}

// ExtractEvent extracts one structured event from a raw text blob. Any
// network, parse, or shape failure is returned as an error; the caller falls
// back to rule-based extraction.
func (o *OpenAIClient) ExtractEvent(ctx context.Context, blob models.RawBlob) (*models.Event, error) {
	if strings.TrimSpace(blob.Text) == "" {
		return nil, fmt.Errorf("blob text cannot be empty")
	}

	reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(
		reqCtx,
		openai.ChatCompletionRequest{
			Model:       o.model,
			Temperature: o.temperature,
			MaxTokens:   o.maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: o.buildSystemPrompt(),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: o.buildUserPrompt(blob),
				},
			},
		},
	)

	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices from OpenAI")
	}

	cleaned := o.cleanJSONResponse(resp.Choices[0].Message.Content)

	var extracted llmEvent
	if err := json.Unmarshal([]byte(cleaned), &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response JSON: %w\nResponse: %s", err, cleaned)
	}

	if strings.TrimSpace(extracted.Name) == "" {
		return nil, fmt.Errorf("model returned no event name")
	}

	category := extracted.Category
	if !models.ValidateCategory(category) {
		category = models.CategoryOther
	}

	event := &models.Event{
		Name:        strings.TrimSpace(extracted.Name),
		Description: extracted.Description,
		Address:     extracted.Address,
		StartTime:   extracted.StartTime,
		Date:        extracted.Date,
		Price:       extracted.Price,
		Category:    category,
		Website:     extracted.Website,
		Source:      blob.Source,
		Extraction:  models.ExtractionLLM,
		ExtractedAt: time.Now(),
	}
	event.ID = models.GenerateEventID(event.Name, event.Date, event.Address)

	return event, nil
}

// buildSystemPrompt creates the fixed instruction template naming the exact
// output fields and the closed category enumeration.
func (o *OpenAIClient) buildSystemPrompt() string {
	return fmt.Sprintf(`You are an expert at extracting structured data about New York City local events from scraped web text.

Your task is to analyze one raw text blob and extract exactly one event, if the text describes one.

IMPORTANT GUIDELINES:
1. The blob describes at most one event. Never invent details that are not present.
2. If the text is a listicle, guide, or roundup rather than a single event, return an empty name.
3. Dates must be normalized to ISO format (YYYY-MM-DD). Leave empty if no date is present.
4. Price must be "Free" for free events, a display string like "$25" when stated, or empty.

CATEGORIES (use exactly one of these values):
%s

OUTPUT FORMAT:
Return a JSON object with this exact structure and nothing else:
{
  "name": "Event Name",
  "address": "Full street address or venue name",
  "start_time": "8:00 PM",
  "date": "YYYY-MM-DD",
  "price": "Free|$25|...",
  "category": "category from list above",
  "description": "Short description of the event",
  "website": "event URL if present"
}

Focus on accuracy over completeness. Leave fields empty rather than guessing.`,
		strings.Join(models.Categories(), ", "))
}

// buildUserPrompt creates the user prompt with the blob text and provenance
func (o *OpenAIClient) buildUserPrompt(blob models.RawBlob) string {
	return fmt.Sprintf(`Please analyze the following text scraped from %s and extract the single NYC event it describes, as JSON following the schema in the system prompt.

Text to analyze:
%s`, blob.Source, blob.Text)
}

// cleanJSONResponse strips markdown code fences and surrounding prose from the
// model output, keeping the first balanced {...} span.
func (o *OpenAIClient) cleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)

	// Remove ```json prefix
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	}

	// Remove ``` prefix (in case it's just ```)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}

	// Remove ``` suffix
	if strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSuffix(cleaned, "```")
	}

	cleaned = strings.TrimSpace(cleaned)

	return extractJSONObject(cleaned)
}

// extractJSONObject returns the first balanced {...} span in the input, which
// tolerates extra prose around the JSON payload. Returns the input unchanged
// when no balanced object is found, so the JSON parse error stays informative.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return s
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return s
}

// GetModel returns the current OpenAI model being used
func (o *OpenAIClient) GetModel() string {
	return o.model
}

// SetModel sets the OpenAI model to use
func (o *OpenAIClient) SetModel(model string) {
	o.model = model
}
