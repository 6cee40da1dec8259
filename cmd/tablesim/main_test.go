package main

import (
	"os"
	"path/filepath"
	"testing"

	"cardtable/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMatchesTheTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table_config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"group_radius": 2.5, "card_width": 2}`), 0o600))

	cfg, err := loadConfig(path, map[string]string{config.EnvMaxDeckSize: "60"})
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.GroupRadius)
	assert.Equal(t, 2.0, cfg.CardWidth)
	assert.Equal(t, 60, cfg.MaxDeckSize)

	// The match loads the default path later in the same process and must
	// see the file the participants used.
	require.NoError(t, config.LoadTableConfig(config.DefaultPath))
	assert.Equal(t, 2.5, config.GetTableConfig().GroupRadius)

	_, err = loadConfig(path, map[string]string{config.EnvMaxDeckSize: "lots"})
	assert.Error(t, err)
}
