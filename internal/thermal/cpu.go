package thermal

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
	"codeberg.org/mutker/thermald/internal/thermalconfig"
	"github.com/prometheus/procfs"
)

const (
	DefaultProcRoot = procfs.DefaultMountPoint
	DefaultCPURoot  = "/sys/devices/system/cpu"

	// procfs reports /proc/stat columns in seconds; the kernel counts in
	// USER_HZ ticks.
	userHZ = 100
)

// cpuReader reports per-CPU busy and total time.
type cpuReader struct {
	procRoot string
	cpuRoot  string
	max      int
	logger   logger.Logger
}

func newCPUReader(procRoot, cpuRoot string, log logger.Logger) *cpuReader {
	if procRoot == "" {
		procRoot = DefaultProcRoot
	}
	if cpuRoot == "" {
		cpuRoot = DefaultCPURoot
	}

	return &cpuReader{procRoot: procRoot, cpuRoot: cpuRoot, max: thermalconfig.CPUSlots, logger: log}
}

func ticks(seconds float64) uint64 {
	return uint64(math.Round(seconds * userHZ))
}

// usages reads /proc/stat and reports the lowest numbered CPUs.
func (c *cpuReader) usages() ([]CPUUsage, error) {
	errFactory := errors.New()

	fs, err := procfs.NewFS(c.procRoot)
	if err != nil {
		return nil, errFactory.Wrap(ErrReadCPUUsage, err)
	}

	stat, err := fs.Stat()
	if err != nil {
		return nil, errFactory.Wrap(ErrReadCPUUsage, err)
	}

	if len(stat.CPU) == 0 {
		return nil, errFactory.WithData(ErrReadCPUUsage, "no per-CPU lines in stat")
	}

	ids := make([]int64, 0, len(stat.CPU))
	for id := range stat.CPU {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > c.max {
		c.logger.Debug().
			Int("cpus", len(ids)).
			Int("reported", c.max).
			Int64("first_dropped", ids[c.max]).
			Msg("Dropping CPU lines beyond the reported slots")
		ids = ids[:c.max]
	}

	out := make([]CPUUsage, 0, len(ids))
	for _, id := range ids {
		s := stat.CPU[id]
		active := ticks(s.User) + ticks(s.Nice) + ticks(s.System)

		online, err := c.online(id)
		if err != nil {
			return nil, errFactory.Wrap(ErrReadCPUUsage, err)
		}

		out = append(out, CPUUsage{
			Name:   fmt.Sprintf("CPU%d", id),
			Active: active,
			Total:  active + ticks(s.Idle),
			Online: online,
		})
	}

	return out, nil
}

// online reads cpuN/online. CPUs without the file cannot be taken offline.
func (c *cpuReader) online(id int64) (bool, error) {
	data, err := os.ReadFile(filepath.Join(c.cpuRoot, fmt.Sprintf("cpu%d", id), "online"))
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, err
	}

	return v != 0, nil
}
