// Package enrich produces a validated enrichment profile for a single
// company. Unlike the bulk analyzer, this path is strict: any field of the
// model's reply that violates its type, range, or format rule fails the
// whole call. A single bad company profile is worth discarding in full.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/openai"
)

const (
	temperature = 0.3
	maxTokens   = 2000
)

const systemPrompt = `You are an expert business analyst specializing in company data enrichment.
Your task is to analyze company information and return detailed estimates in a specific JSON format.
IMPORTANT:
- Return ONLY valid JSON
- Use null for missing social media URLs, never empty strings or invalid URLs
- All numbers must be positive
- Confidence scores must be between 0 and 1
- URLs must include https://`

// ValidationError means the caller supplied an empty required argument.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "enrich: " + e.Msg
}

// EmptyResponseError means the completion call returned no text at all.
type EmptyResponseError struct{}

func (e *EmptyResponseError) Error() string {
	return "enrich: empty response from completion model"
}

// ParseError means the completion text is not a JSON object.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return "enrich: " + e.Reason
}

// SchemaValidationError means the reply parsed as JSON but violated the
// profile schema. Fields lists every violating field path; no partial
// profile is ever returned.
type SchemaValidationError struct {
	Fields []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("enrich: reply failed schema validation: %s", strings.Join(e.Fields, ", "))
}

// Enricher builds enrichment profiles via a completion model.
type Enricher struct {
	client openai.Client
}

// New creates an Enricher backed by the given completion client.
func New(client openai.Client) *Enricher {
	return &Enricher{client: client}
}

// EnrichCompany asks the model for an enrichment profile of the named
// company and validates the reply strictly against the profile schema.
func (e *Enricher) EnrichCompany(ctx context.Context, name, description, location, activity string) (*model.EnrichmentProfile, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &ValidationError{Msg: "company name is required"}
	}

	resp, err := e.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages: []openai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(name, description, location, activity)},
		},
		Temperature: ptr(temperature),
		MaxTokens:   ptr(maxTokens),
	})
	if err != nil {
		return nil, err
	}

	var content string
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if content == "" {
		return nil, &EmptyResponseError{}
	}

	return validateProfile(content)
}

func buildUserPrompt(name, description, location, activity string) string {
	orNotProvided := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "Not provided"
		}
		return s
	}

	companyData := fmt.Sprintf(
		"Company Name: %s\nDescription: %s\nLocation: %s\nActivity: %s",
		name, orNotProvided(description), orNotProvided(location), orNotProvided(activity),
	)

	return fmt.Sprintf(`
Analyze this company information and provide enriched data:
%s

Return a JSON object with this exact structure:
{
  "socialProfiles": {
    "linkedin": "URL or null",
    "twitter": "URL or null",
    "facebook": "URL or null",
    "instagram": "URL or null"
  },
  "employeeCount": {
    "estimate": number,
    "confidence": 0-1,
    "range": {
      "min": number,
      "max": number
    }
  },
  "revenue": {
    "estimate": number,
    "currency": "USD",
    "confidence": 0-1,
    "range": {
      "min": number,
      "max": number
    }
  },
  "industry": {
    "primary": "string",
    "secondary": ["string"],
    "confidence": 0-1
  },
  "competitors": [
    {
      "name": "string",
      "url": "URL or null",
      "similarity": 0-1
    }
  ]
}

Guidelines:
1. Use realistic estimates based on available information
2. Confidence scores should reflect uncertainty (0-1)
3. Ranges should be reasonable for company size
4. Use null for missing social media URLs
5. List relevant competitors in the same industry/region
6. All numbers must be positive
7. URLs must be valid and complete (including https://)`, companyData)
}

func ptr[T any](v T) *T {
	return &v
}
