package fetch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	manifest := `
# cohort 2026
alice = https://gitlab.example.com/2026/alice.git
bob   = git@gitlab.example.com:2026/bob.git

starter = https://gitlab.example.com/2026/starter.git
`
	entries, err := ParseManifest(strings.NewReader(manifest))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, Entry{Name: "alice", URL: "https://gitlab.example.com/2026/alice.git"}, entries[0])
	assert.Equal(t, "bob", entries[1].Name)
	assert.Equal(t, "git@gitlab.example.com:2026/bob.git", entries[1].URL)
	assert.Equal(t, "starter", entries[2].Name)
}

func TestParseManifestErrors(t *testing.T) {
	cases := []struct {
		name     string
		manifest string
	}{
		{"missing separator", "alice https://example.com/a.git"},
		{"empty url", "alice = "},
		{"empty name", " = https://example.com/a.git"},
		{"duplicate name", "a = u1\na = u2"},
		{"path separator in name", "../evil = https://example.com/a.git"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseManifest(strings.NewReader(tc.manifest))
			assert.Error(t, err)
		})
	}
}

func TestParseManifestEmpty(t *testing.T) {
	entries, err := ParseManifest(strings.NewReader("# nothing\n\n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
