package enrich

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// validateProfile parses the completion text and validates it structurally.
// Violations are collected across the whole document so the error names
// every offending field, not just the first.
func validateProfile(content string) (*model.EnrichmentProfile, error) {
	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, &ParseError{Reason: "completion is not valid JSON", Raw: content}
	}

	doc, ok := parsed.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: "expected a JSON object", Raw: content}
	}

	v := &validator{}
	profile := &model.EnrichmentProfile{}

	if social := v.object(doc, "socialProfiles"); social != nil {
		profile.SocialProfiles = model.SocialProfiles{
			LinkedIn:  v.optionalURL(social, "socialProfiles", "linkedin"),
			Twitter:   v.optionalURL(social, "socialProfiles", "twitter"),
			Facebook:  v.optionalURL(social, "socialProfiles", "facebook"),
			Instagram: v.optionalURL(social, "socialProfiles", "instagram"),
		}
	}

	if emp := v.object(doc, "employeeCount"); emp != nil {
		profile.EmployeeCount = model.EmployeeCount{
			Estimate:   v.positiveInt(emp, "employeeCount", "estimate"),
			Confidence: v.fraction(emp, "employeeCount", "confidence"),
		}
		if rng := v.nested(emp, "employeeCount", "range"); rng != nil {
			profile.EmployeeCount.Range = model.IntRange{
				Min: v.positiveInt(rng, "employeeCount.range", "min"),
				Max: v.positiveInt(rng, "employeeCount.range", "max"),
			}
		}
	}

	if rev := v.object(doc, "revenue"); rev != nil {
		profile.Revenue = model.Revenue{
			Estimate:   v.positiveNumber(rev, "revenue", "estimate"),
			Currency:   v.nonEmptyString(rev, "revenue", "currency"),
			Confidence: v.fraction(rev, "revenue", "confidence"),
		}
		if rng := v.nested(rev, "revenue", "range"); rng != nil {
			profile.Revenue.Range = model.FloatRange{
				Min: v.positiveNumber(rng, "revenue.range", "min"),
				Max: v.positiveNumber(rng, "revenue.range", "max"),
			}
		}
	}

	if ind := v.object(doc, "industry"); ind != nil {
		profile.Industry = model.Industry{
			Primary:    v.stringValue(ind, "industry", "primary"),
			Secondary:  v.stringList(ind, "industry", "secondary"),
			Confidence: v.fraction(ind, "industry", "confidence"),
		}
	}

	profile.Competitors = v.competitors(doc)

	if len(v.violations) > 0 {
		return nil, &SchemaValidationError{Fields: v.violations}
	}
	return profile, nil
}

// validator accumulates field paths that violate the schema.
type validator struct {
	violations []string
}

func (v *validator) fail(path string) {
	v.violations = append(v.violations, path)
}

// object requires doc[key] to be a JSON object; a missing or mistyped
// section is one violation and its fields are skipped.
func (v *validator) object(doc map[string]any, key string) map[string]any {
	obj, ok := doc[key].(map[string]any)
	if !ok {
		v.fail(key)
		return nil
	}
	return obj
}

func (v *validator) nested(obj map[string]any, section, key string) map[string]any {
	nested, ok := obj[key].(map[string]any)
	if !ok {
		v.fail(section + "." + key)
		return nil
	}
	return nested
}

// optionalURL accepts an absent or null value (normalized to ""), or a
// syntactically valid absolute URL. An empty string is not an accepted
// "absent" representation.
func (v *validator) optionalURL(obj map[string]any, section, key string) string {
	raw, present := obj[key]
	if !present || raw == nil {
		return ""
	}

	s, ok := raw.(string)
	if !ok || !isAbsoluteURL(s) {
		v.fail(section + "." + key)
		return ""
	}
	return s
}

func (v *validator) positiveInt(obj map[string]any, section, key string) int {
	n, ok := obj[key].(float64)
	if !ok || n <= 0 || n != math.Trunc(n) {
		v.fail(section + "." + key)
		return 0
	}
	return int(n)
}

func (v *validator) positiveNumber(obj map[string]any, section, key string) float64 {
	n, ok := obj[key].(float64)
	if !ok || n <= 0 {
		v.fail(section + "." + key)
		return 0
	}
	return n
}

func (v *validator) fraction(obj map[string]any, section, key string) float64 {
	n, ok := obj[key].(float64)
	if !ok || n < 0 || n > 1 {
		v.fail(section + "." + key)
		return 0
	}
	return n
}

func (v *validator) stringValue(obj map[string]any, section, key string) string {
	s, ok := obj[key].(string)
	if !ok {
		v.fail(section + "." + key)
		return ""
	}
	return s
}

func (v *validator) nonEmptyString(obj map[string]any, section, key string) string {
	s, ok := obj[key].(string)
	if !ok || s == "" {
		v.fail(section + "." + key)
		return ""
	}
	return s
}

func (v *validator) stringList(obj map[string]any, section, key string) []string {
	raw, ok := obj[key].([]any)
	if !ok {
		v.fail(section + "." + key)
		return nil
	}

	out := make([]string, 0, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			v.fail(indexed(section+"."+key, i))
			continue
		}
		out = append(out, s)
	}
	return out
}

func (v *validator) competitors(doc map[string]any) []model.Competitor {
	raw, ok := doc["competitors"].([]any)
	if !ok {
		v.fail("competitors")
		return nil
	}

	out := make([]model.Competitor, 0, len(raw))
	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			v.fail(indexed("competitors", i))
			continue
		}

		path := indexed("competitors", i)
		out = append(out, model.Competitor{
			Name:       v.stringValue(entry, path, "name"),
			URL:        v.optionalURL(entry, path, "url"),
			Similarity: v.fraction(entry, path, "similarity"),
		})
	}
	return out
}

func indexed(base string, i int) string {
	return base + "[" + strconv.Itoa(i) + "]"
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}
