package thermalconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
	"codeberg.org/mutker/thermald/internal/thermalconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, product, content string) string {
	t.Helper()
	path := filepath.Join(dir, thermalconfig.FileName(product))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "thermal.stm32mp1.xml", thermalconfig.FileName("stm32mp1"))
	assert.Equal(t, "thermal.generic.xml", thermalconfig.FileName(""))
}

func TestLocateFallback(t *testing.T) {
	vendor := t.TempDir()
	system := t.TempDir()
	dirs := []string{vendor, system}

	want := writeConfig(t, system, "board", `<thermalhal/>`)
	path, err := thermalconfig.Locate("board", dirs)
	require.NoError(t, err)
	assert.Equal(t, want, path)

	want = writeConfig(t, vendor, "board", `<thermalhal/>`)
	path, err = thermalconfig.Locate("board", dirs)
	require.NoError(t, err)
	assert.Equal(t, want, path, "vendor directory takes precedence")
}

func TestLocateNotFound(t *testing.T) {
	_, err := thermalconfig.Locate("board", []string{t.TempDir(), t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, thermalconfig.ErrConfigNotFound, errors.CodeOf(err))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	want := writeConfig(t, dir, "board", fullConfig)

	store, path, err := thermalconfig.Load("board", []string{dir}, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, want, path)
	assert.Equal(t, 4, store.Len())
}

func TestLoadParseError(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "board", `<thermalhal><bogus/></thermalhal>`)

	store, _, err := thermalconfig.Load("board", []string{dir}, logger.Nop())
	assert.Nil(t, store)
	assert.Equal(t, thermalconfig.ErrUnexpectedElement, errors.CodeOf(err))
}
