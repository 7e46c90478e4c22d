package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	require.NotEmpty(t, s.Get(Welcome))
	require.NotEmpty(t, s.Get(FormTemplate))
}

func TestLoad_OverrideFileWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		// overrides only WELCOME, everything else keeps its default
		WELCOME: "Halo dari override!",
	}`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Halo dari override!", s.Get(Welcome))
	require.NotEmpty(t, s.Get(FormReceived))
}

func TestLoad_MissingOverrideFileIsNotAnError(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json5"))
	require.NoError(t, err)
	require.NotEmpty(t, s.Get(Welcome))
}
