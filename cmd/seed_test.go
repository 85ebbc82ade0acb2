package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadQueries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "entities.txt")
	content := `# portfolio issuers
Microsoft Corporation
MSFT

  US0378331005
# trailing comment
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	queries, err := readQueries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Microsoft Corporation", "MSFT", "US0378331005"}, queries)
}

func TestReadQueriesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := readQueries(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
