package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// CSVOptions configures the CSV parser.
type CSVOptions struct {
	Delimiter  rune   // default ','
	Encoding   string // "utf-8" (default) or "latin1"
	LazyQuotes bool
	TrimSpace  bool
}

// ReadCSV parses a CSV document into a header row and data rows. Lead
// exports from legacy CRMs frequently arrive Latin-1 encoded; Encoding
// "latin1" transparently decodes them.
func ReadCSV(r io.Reader, opts CSVOptions) ([]string, [][]string, error) {
	switch strings.ToLower(opts.Encoding) {
	case "", "utf-8", "utf8":
	case "latin1", "iso-8859-1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	default:
		return nil, nil, eris.Errorf("csv: unsupported encoding %q", opts.Encoding)
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields

	var header []string
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "csv: read row")
		}

		if opts.TrimSpace {
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
		}

		if header == nil {
			header = record
			continue
		}
		rows = append(rows, record)
	}

	if header == nil {
		return nil, nil, eris.New("csv: empty document")
	}
	return header, rows, nil
}
