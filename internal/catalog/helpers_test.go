package catalog

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	logoLine = `{"id":"logo","name":"Logo Design","image":"/img/logo.png","category":"design","basePrice":"50.00",` +
		`"options":[{"name":"size","type":"select","values":[{"value":"small","priceDelta":"0"},{"value":"large","priceDelta":"12.50"}]},` +
		`{"name":"revisions","type":"number","min":0,"max":5,"pricePerUnit":"7.25"}]}`
	cardLine    = `{"id":"card","name":"Business Card","basePrice":5}`
	retiredLine = `{"id":"old","name":"Retired","basePrice":"1.00","isActive":false}`
)

// gzipLines returns the gzipped JSON-lines payload.
func gzipLines(t *testing.T, lines []string) []byte {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	for _, line := range lines {
		_, err := gzipWriter.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, gzipWriter.Close())
	return buf.Bytes()
}

// createTestCatalogFile creates a gzipped test catalogue file.
func createTestCatalogFile(t *testing.T, filename string, lines []string) string {
	filePath := filepath.Join(t.TempDir(), filename)
	require.NoError(t, os.WriteFile(filePath, gzipLines(t, lines), 0o600))
	return filePath
}
