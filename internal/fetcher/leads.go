package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Lead is one spreadsheet row reduced to the fields a search query is built
// from.
type Lead struct {
	Name    string
	City    string
	Country string
	Type    string
}

// Query composes the search query for this lead.
func (l Lead) Query() string {
	return model.BuildQuery(l.Name, l.City, l.Country, l.Type)
}

// DefaultMapping matches the header names our lead-export templates use.
func DefaultMapping() model.ColumnMapping {
	return model.ColumnMapping{
		Name:    "name",
		City:    "city",
		Country: "country",
		Type:    "type",
	}
}

// MapLeads applies a column mapping to raw rows. Header matching is
// case-insensitive. The name column is required; the others map to "" when
// absent. Rows whose mapped fields are all blank are dropped.
func MapLeads(file *LeadFile, mapping model.ColumnMapping) ([]Lead, error) {
	if mapping == (model.ColumnMapping{}) {
		mapping = DefaultMapping()
	}

	nameIdx := columnIndex(file.Header, mapping.Name)
	if nameIdx < 0 {
		return nil, eris.Errorf("fetcher: column %q not found in %s", mapping.Name, file.Name)
	}
	cityIdx := columnIndex(file.Header, mapping.City)
	countryIdx := columnIndex(file.Header, mapping.Country)
	typeIdx := columnIndex(file.Header, mapping.Type)

	var leads []Lead
	for _, row := range file.Rows {
		lead := Lead{
			Name:    cellAt(row, nameIdx),
			City:    cellAt(row, cityIdx),
			Country: cellAt(row, countryIdx),
			Type:    cellAt(row, typeIdx),
		}
		if lead.Query() == "" {
			continue
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// Queries returns the search query for every lead.
func Queries(leads []Lead) []string {
	queries := make([]string, 0, len(leads))
	for _, l := range leads {
		queries = append(queries, l.Query())
	}
	return queries
}

func columnIndex(header []string, name string) int {
	if name == "" {
		return -1
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
