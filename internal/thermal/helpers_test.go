package thermal_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"codeberg.org/mutker/thermald/internal/logger"
	"codeberg.org/mutker/thermald/internal/thermalconfig"
	"github.com/stretchr/testify/require"
)

func writeNode(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// lockedBuffer collects log output written from several goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func parseStore(t *testing.T, doc string) *thermalconfig.Store {
	t.Helper()
	store, err := thermalconfig.NewParser(thermalconfig.ThermalGrammar(), logger.Nop()).Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return store
}

// fakeSysfs builds a thermal class tree with two zones and two cooling
// devices, one of which is not managed.
func fakeSysfs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeNode(t, root, "thermal_zone0/type", "cpu0-thermal\n")
	writeNode(t, root, "thermal_zone0/temp", "45000\n")
	writeNode(t, root, "thermal_zone0/trip_point_0_type", "passive\n")
	writeNode(t, root, "thermal_zone0/trip_point_0_temp", "40000\n")
	writeNode(t, root, "thermal_zone0/trip_point_1_type", "critical\n")
	writeNode(t, root, "thermal_zone0/trip_point_1_temp", "90000\n")

	writeNode(t, root, "thermal_zone1/type", "dummy-battery\n")
	writeNode(t, root, "thermal_zone1/temp", "30000\n")

	writeNode(t, root, "cooling_device0/type", "thermal-cpufreq-0\n")
	writeNode(t, root, "cooling_device0/cur_state", "3\n")
	writeNode(t, root, "cooling_device1/type", "pwm-fan\n")
	writeNode(t, root, "cooling_device1/cur_state", "1\n")

	return root
}

const procStat = `cpu  10 1 5 100 0 0 0 0 0 0
cpu0 4 1 2 50 0 0 0 0 0 0
cpu1 6 0 3 50 0 0 0 0 0 0
cpu2 1 1 1 1 0 0 0 0 0 0
ctxt 100
btime 1700000000
processes 10
procs_running 1
procs_blocked 0
`

func fakeProc(t *testing.T) (procRoot, cpuRoot string) {
	t.Helper()
	procRoot = t.TempDir()
	cpuRoot = t.TempDir()

	writeNode(t, procRoot, "stat", procStat)
	writeNode(t, cpuRoot, "cpu1/online", "0\n")

	return procRoot, cpuRoot
}
