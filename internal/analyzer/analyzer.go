// Package analyzer turns raw search hits into validated business records by
// asking a completion model for a strict JSON array and coercing whatever
// comes back into safe string fields. Coercion never fails: a bad row in a
// large batch is not worth discarding the whole batch for.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/pkg/openai"
)

const (
	// Low randomness and a bounded reply length bias the model toward
	// deterministic, schema-conformant output over creative completion.
	temperature = 0.3
	maxTokens   = 2000
)

const systemPrompt = `You are an expert data analyst specializing in extracting structured business information from search results. Your responses must ALWAYS be in valid JSON array format containing analyzed data objects.`

// ValidationError means the caller supplied an empty required argument.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "analyzer: " + e.Msg
}

// EmptyResponseError means the completion call returned no text at all.
type EmptyResponseError struct{}

func (e *EmptyResponseError) Error() string {
	return "analyzer: empty response from completion model"
}

// ParseError means the completion text is not the JSON array we demanded.
// Raw carries the full reply for diagnostics.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return "analyzer: " + e.Reason
}

// Analyzer extracts business records from search hits via a completion model.
type Analyzer struct {
	client openai.Client
}

// New creates an Analyzer backed by the given completion client.
func New(client openai.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze sends the query and hits to the model and returns one coerced
// BusinessRecord per element of the model's JSON array reply. Every field
// is stringified with an empty-string default; Searchstring is additionally
// lower-cased.
func (a *Analyzer) Analyze(ctx context.Context, query string, hits []model.RawHit) ([]model.BusinessRecord, error) {
	if len(hits) == 0 {
		return nil, &ValidationError{Msg: "no results to analyze"}
	}

	resp, err := a.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Messages: []openai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(query, hits)},
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

	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		zap.L().Error("failed to parse completion reply", zap.Error(err))
		return nil, &ParseError{Reason: "completion is not valid JSON", Raw: content}
	}

	rows, ok := parsed.([]any)
	if !ok {
		return nil, &ParseError{Reason: "expected a JSON array", Raw: content}
	}

	records := make([]model.BusinessRecord, 0, len(rows))
	for _, row := range rows {
		fields, _ := row.(map[string]any)
		records = append(records, coerceRecord(fields))
	}
	return records, nil
}

func buildUserPrompt(query string, hits []model.RawHit) string {
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "Title: %s\nURL: %s\nDescription: %s\n---\n", h.Title, h.URL, h.Description)
	}

	return fmt.Sprintf(`
Analyze these search results for the query %q and extract business information.

Search Results:
%s

Requirements:
1. Return ONLY a valid JSON array of objects, nothing else
2. Each object must have these fields (use empty string if not found):
   - Title: The original result title
   - URL: The website URL
   - Description: A concise business description
   - CompanyName: The company name
   - Phone: Contact number
   - City: Business city
   - Country: Business country
   - Activity: Business type/category
   - Email: Contact email
   - Searchstring: Company name + city + country (lowercase)
3. Filter out:
   - Non-business results
   - Generic articles
   - Forum posts
   - Duplicate entries
4. Ensure all strings are properly escaped
5. Maintain valid JSON structure

Example response format:
[
  {
    "Title": "Example Corp - Business Solutions",
    "URL": "https://example.com",
    "Description": "Professional business services",
    "CompanyName": "Example Corp",
    "Phone": "+1 234 567 8900",
    "City": "New York",
    "Country": "USA",
    "Activity": "Business Consulting",
    "Email": "contact@example.com",
    "Searchstring": "example corp new york usa"
  }
]

IMPORTANT: Your response must be ONLY the JSON array, with no additional text or explanation.`, query, b.String())
}

// coerceRecord stringifies every expected field, defaulting to "". This is
// the safety net against a model that returns wrong types.
func coerceRecord(fields map[string]any) model.BusinessRecord {
	return model.BusinessRecord{
		Title:        coerceString(fields["Title"]),
		URL:          coerceString(fields["URL"]),
		Description:  coerceString(fields["Description"]),
		CompanyName:  coerceString(fields["CompanyName"]),
		Phone:        coerceString(fields["Phone"]),
		City:         coerceString(fields["City"]),
		Country:      coerceString(fields["Country"]),
		Activity:     coerceString(fields["Activity"]),
		Email:        coerceString(fields["Email"]),
		Searchstring: strings.ToLower(coerceString(fields["Searchstring"])),
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func ptr[T any](v T) *T {
	return &v
}
