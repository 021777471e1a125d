package queue

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// memoryPressureThreshold is the used-percent above which scheduler start
// logs a warning instead of silently degrading under swap.
const memoryPressureThreshold = 90.0

// checkMemoryPressure returns a human-readable warning when system memory
// is nearly exhausted, or "" when headroom looks fine. Failures to read
// system stats are not worth failing startup over.
func (s *Scheduler) checkMemoryPressure() string {
	vm, err := mem.VirtualMemory()
	if err != nil {
		s.logger.Debugw("Could not read system memory stats", "error", err)
		return ""
	}
	if vm.UsedPercent >= memoryPressureThreshold {
		return fmt.Sprintf("system memory %.1f%% used (%.1f MB available)",
			vm.UsedPercent, float64(vm.Available)/(1024*1024))
	}
	return ""
}
