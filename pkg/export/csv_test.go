package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, Table{
		Headers: []string{"id", "fileFilename", "contentType"},
		Rows: [][]string{
			{"d1", "a, b.pdf", "application/pdf"},
			{"d2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "id,fileFilename,contentType\nd1,\"a, b.pdf\",application/pdf\nd2,,\n", buf.String())
}

func TestWriteCSVRejectsBadShapes(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, WriteCSV(&buf, Table{}))
	require.Error(t, WriteCSV(&buf, Table{Headers: []string{"id"}, Rows: [][]string{{"a", "b"}}}))
}
