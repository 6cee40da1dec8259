package deckfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const starter = `
name: starter
cards:
  - name: Scout
    count: 2
  - name: Wall
  - name: Bolt
    count: 3
`

func TestParseExpand(t *testing.T) {
	l, err := Parse([]byte(starter))
	require.NoError(t, err)

	assert.Equal(t, "starter", l.Name)
	assert.Equal(t, 6, l.Size())
	assert.Equal(t, []string{"Scout", "Scout", "Wall", "Bolt", "Bolt", "Bolt"}, l.Expand())
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "name: nothing\n"},
		{"negative", "cards:\n  - name: A\n    count: -1\n"},
		{"unnamed", "cards:\n  - count: 2\n"},
		{"not yaml", "cards: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("name: x\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(starter), 0o600))

	l, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, l.Cards, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
