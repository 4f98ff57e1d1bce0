package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_HeaderAndRows(t *testing.T) {
	in := "name,city,country,type\nAcme,Paris,France,Bakery\nGlobex,Berlin,Germany,Retail\n"

	header, rows, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "city", "country", "type"}, header)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Acme", "Paris", "France", "Bakery"}, rows[0])
}

func TestReadCSV_Latin1Encoding(t *testing.T) {
	// "Boulangerie Valérie" with é as the Latin-1 byte 0xE9.
	in := "name\nBoulangerie Val\xe9rie\n"

	header, rows, err := ReadCSV(strings.NewReader(in), CSVOptions{Encoding: "latin1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, "Boulangerie Valérie", rows[0][0])
}

func TestReadCSV_UnsupportedEncoding(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader("a\n1\n"), CSVOptions{Encoding: "ebcdic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported encoding")
}

func TestReadCSV_TrimSpaceAndDelimiter(t *testing.T) {
	in := "name; city\n Acme ; Paris \n"

	header, rows, err := ReadCSV(strings.NewReader(in), CSVOptions{Delimiter: ';', TrimSpace: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "city"}, header)
	assert.Equal(t, []string{"Acme", "Paris"}, rows[0])
}

func TestReadCSV_VariableFieldCounts(t *testing.T) {
	in := "name,city\nAcme\nGlobex,Berlin,extra\n"

	_, rows, err := ReadCSV(strings.NewReader(in), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 1)
	assert.Len(t, rows[1], 3)
}

func TestReadCSV_Empty(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}
