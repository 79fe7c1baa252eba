package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string            `json:"name"`
	Retries int               `json:"retries"`
	Headers map[string]string `json:"headers"`
}

func writeFile(t *testing.T, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.json5"), `{
		// comments are allowed
		name: "base",
		retries: 3,
	}`)
	writeFile(t, filepath.Join(dir, "app.local.json5"), `{ retries: 7 }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, "base", cfg.Name)
	require.Equal(t, 7, cfg.Retries)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "nope.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigWithDefaults(t *testing.T) {
	defaults := testConfig{
		Name:    "default",
		Retries: 15,
		Headers: map[string]string{"Accept-Language": "bg"},
	}

	cfg, err := ReadConfigWithDefaults(filepath.Join(t.TempDir(), "missing.json5"), defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, cfg)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.json5"), `{ name: "override" }`)
	cfg, err = ReadConfigWithDefaults(filepath.Join(dir, "app.json5"), testConfig{Name: "default", Retries: 15})
	require.NoError(t, err)
	require.Equal(t, "override", cfg.Name)
	require.Equal(t, 15, cfg.Retries)
}

func TestLocalVariant(t *testing.T) {
	require.Equal(t, filepath.Join("a", "b.local.json5"), localVariant(filepath.Join("a", "b.json5")))
	require.Equal(t, "noext.local", localVariant("noext"))
}
