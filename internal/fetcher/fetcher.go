// Package fetcher loads lead spreadsheets for batch searches. A source can
// be a local path, an http(s) URL, or an ftp URL; the format (CSV or XLSX)
// is decided by file extension.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// LeadFile is a parsed spreadsheet: the header row plus all data rows.
type LeadFile struct {
	Name   string
	Header []string
	Rows   [][]string
}

// LoadOptions configures parsing of the fetched file.
type LoadOptions struct {
	CSV  CSVOptions
	XLSX XLSXOptions
}

// Loader fetches and parses lead files from any supported source.
type Loader struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
}

// NewLoader creates a Loader with the given transports. Either may be nil,
// disabling that scheme.
func NewLoader(httpFetcher *HTTPFetcher, ftpFetcher *FTPFetcher) *Loader {
	return &Loader{http: httpFetcher, ftp: ftpFetcher}
}

// Load fetches the source and parses it into a LeadFile.
func (l *Loader) Load(ctx context.Context, source string, opts LoadOptions) (*LeadFile, error) {
	body, name, err := l.open(ctx, source)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", source)
	}

	file := &LeadFile{Name: name}
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx":
		file.Header, file.Rows, err = ReadXLSX(data, opts.XLSX)
	case ".csv", ".txt", "":
		file.Header, file.Rows, err = ReadCSV(strings.NewReader(string(data)), opts.CSV)
	default:
		return nil, eris.Errorf("fetcher: unsupported file type %q", path.Ext(name))
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (l *Loader) open(ctx context.Context, source string) (io.ReadCloser, string, error) {
	u, err := url.Parse(source)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			if l.http == nil {
				return nil, "", eris.New("fetcher: http sources are not enabled")
			}
			body, dlErr := l.http.Download(ctx, source)
			if dlErr != nil {
				return nil, "", dlErr
			}
			return body, path.Base(u.Path), nil
		case "ftp":
			if l.ftp == nil {
				return nil, "", eris.New("fetcher: ftp sources are not enabled")
			}
			body, dlErr := l.ftp.Download(ctx, source)
			if dlErr != nil {
				return nil, "", dlErr
			}
			return body, path.Base(u.Path), nil
		}
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, "", eris.Wrapf(err, "fetcher: open %s", source)
	}
	return f, path.Base(source), nil
}
