package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aelgogary/stgit/internal/config"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	require.False(t, cfg.WantsMergetool())
	require.True(t, cfg.WantsColor())
	require.False(t, cfg.WantsAutoImerge())
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	useMergetool := true
	useColor := false
	cfg := &config.RepoConfig{UseMergetool: &useMergetool, UseColor: &useColor}

	require.NoError(t, config.Save(dir, cfg))

	reread, err := config.Load(dir)
	require.NoError(t, err)
	require.True(t, reread.WantsMergetool())
	require.False(t, reread.WantsColor())
	require.False(t, reread.WantsAutoImerge())
}
