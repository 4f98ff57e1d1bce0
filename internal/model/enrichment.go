package model

// EnrichmentProfile is the validated result of single-record enrichment.
// Optional URL fields are either a well-formed absolute URL or empty; empty
// fields are omitted when marshaled, so absence survives a round trip.
type EnrichmentProfile struct {
	SocialProfiles SocialProfiles `json:"socialProfiles"`
	EmployeeCount  EmployeeCount  `json:"employeeCount"`
	Revenue        Revenue        `json:"revenue"`
	Industry       Industry       `json:"industry"`
	Competitors    []Competitor   `json:"competitors"`
}

// SocialProfiles holds optional social media URLs.
type SocialProfiles struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// EmployeeCount is a confidence-scored headcount estimate.
type EmployeeCount struct {
	Estimate   int      `json:"estimate"`
	Confidence float64  `json:"confidence"`
	Range      IntRange `json:"range"`
}

// Revenue is a confidence-scored revenue estimate.
type Revenue struct {
	Estimate   float64    `json:"estimate"`
	Currency   string     `json:"currency"`
	Confidence float64    `json:"confidence"`
	Range      FloatRange `json:"range"`
}

// Industry classifies the company's primary and secondary industries.
type Industry struct {
	Primary    string   `json:"primary"`
	Secondary  []string `json:"secondary"`
	Confidence float64  `json:"confidence"`
}

// Competitor is one competitor with a similarity score in [0, 1].
type Competitor struct {
	Name       string  `json:"name"`
	URL        string  `json:"url,omitempty"`
	Similarity float64 `json:"similarity"`
}

// IntRange bounds an integer estimate.
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// FloatRange bounds a numeric estimate.
type FloatRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}
