package model

import (
	"strings"
	"time"
)

// RawHit is one organic web-search result as returned by the scrape job,
// before any business-record extraction. Title and URL are mandatory for a
// hit to be considered valid; Description defaults to the empty string.
type RawHit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// BusinessRecord is the canonical unit the rest of the application displays.
// Every field is a string and absent data is the empty string, never omitted.
// The JSON keys match the analyzer's instructed output schema.
type BusinessRecord struct {
	Title        string `json:"Title"`
	URL          string `json:"URL"`
	Description  string `json:"Description"`
	CompanyName  string `json:"CompanyName"`
	Phone        string `json:"Phone"`
	City         string `json:"City"`
	Country      string `json:"Country"`
	Activity     string `json:"Activity"`
	Email        string `json:"Email"`
	Searchstring string `json:"Searchstring"`
}

// SearchMode distinguishes how a search was initiated.
type SearchMode string

const (
	SearchModeDirect SearchMode = "direct"
	SearchModeFile   SearchMode = "file"
)

// SearchRecord is one entry in the search history.
type SearchRecord struct {
	ID           string     `json:"id"`
	Query        string     `json:"query"`
	Mode         SearchMode `json:"mode"`
	FileName     string     `json:"file_name,omitempty"`
	ResultsCount int        `json:"results_count"`
	IsFavorite   bool       `json:"is_favorite"`
	Timestamp    time.Time  `json:"timestamp"`
}

// Credentials holds the API secrets the pipeline needs. They are passed
// explicitly into every client and never logged.
type Credentials struct {
	ApifyToken string `json:"apify_token"`
	OpenAIKey  string `json:"openai_key"`
}

// ColumnMapping names the spreadsheet columns that feed a row query.
// Values are header names from the input file's first row.
type ColumnMapping struct {
	Name    string `yaml:"name" json:"name"`
	City    string `yaml:"city" json:"city"`
	Country string `yaml:"country" json:"country"`
	Type    string `yaml:"type" json:"type"`
}

// BuildQuery composes a search query from row fields, joining the non-empty
// parts with ", ". An all-empty row yields "".
func BuildQuery(name, city, country, businessType string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{name, city, country, businessType} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
