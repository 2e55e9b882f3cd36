package pid_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/pid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	dir := t.TempDir()
	f := pid.New(dir)
	assert.Equal(t, filepath.Join(dir, "thermald.pid"), f.Path())

	require.NoError(t, f.Write())

	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	require.NoError(t, f.Remove())
	assert.NoFileExists(t, f.Path())

	require.NoError(t, f.Remove(), "removing a missing file is not an error")
}

func TestWriteAlreadyRunning(t *testing.T) {
	f := pid.New(t.TempDir())
	require.NoError(t, f.Write())

	// The file now names this test process, which is alive.
	err := f.Write()
	assert.Equal(t, errors.ErrAlreadyRunning, errors.CodeOf(err))
}

func TestWriteReplacesStaleFile(t *testing.T) {
	for _, content := range []string{"999999999", "garbage", ""} {
		f := pid.New(t.TempDir())
		require.NoError(t, os.WriteFile(f.Path(), []byte(content), 0o600))

		require.NoError(t, f.Write(), content)

		data, err := os.ReadFile(f.Path())
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))
	}
}
