package thermal_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/thermald/internal/logger"
	"codeberg.org/mutker/thermald/internal/thermal"
	"codeberg.org/mutker/thermald/internal/thermalconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu  sync.Mutex
	got []thermal.Temperature
}

func (c *collector) NotifyThrottling(t thermal.Temperature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, t)
}

func (c *collector) names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.got))
	for _, t := range c.got {
		out = append(out, t.Name+":"+t.Severity.String())
	}
	return out
}

func TestWatcherPoll(t *testing.T) {
	root := fakeSysfs(t)
	s := newService(t, root, thermalconfig.NewStore(), true)
	c := &collector{}
	w := thermal.NewWatcher(s, c, logger.Nop())
	ctx := context.Background()

	// First poll reports sensors already above NONE.
	n, err := w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"CPU0:SEVERE", "GPU:SEVERE"}, c.names())

	// Nothing changed.
	n, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	writeNode(t, root, "thermal_zone0/temp", "95000\n")
	n, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	writeNode(t, root, "thermal_zone0/temp", "20000\n")
	n, err = w.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []string{
		"CPU0:SEVERE", "GPU:SEVERE",
		"CPU0:CRITICAL", "GPU:CRITICAL",
		"CPU0:NONE", "GPU:NONE",
	}, c.names())
}

func TestWatcherPollUnsupported(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "thermal_zone0", "type"), 0o755))
	s := newService(t, root, thermalconfig.NewStore(), true)
	require.False(t, s.Enabled())

	c := &collector{}
	n, err := thermal.NewWatcher(s, c, logger.Nop()).Poll(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, c.names())
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	s := newService(t, fakeSysfs(t), thermalconfig.NewStore(), true)
	c := &collector{}
	w := thermal.NewWatcher(s, c, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 10*time.Millisecond) }()

	assert.Eventually(t, func() bool { return len(c.names()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherWithRegistry(t *testing.T) {
	s := newService(t, fakeSysfs(t), thermalconfig.NewStore(), true)
	reg := thermal.NewRegistry(logger.Nop())
	l := &recorder{}
	_, err := reg.Register(l, true, thermal.TemperatureGPU)
	require.NoError(t, err)

	_, err = thermal.NewWatcher(s, reg, logger.Nop()).Poll(context.Background())
	require.NoError(t, err)
	reg.Wait()

	got := l.received()
	require.Len(t, got, 1)
	assert.Equal(t, "GPU", got[0].Name)
}
