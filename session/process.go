package session

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

// processRunning scans the host process table for a process whose name
// contains name (case-insensitive). Used by real drivers to enforce the
// single-instance policy before spawning a new process.
func processRunning(name string) (bool, error) {
	procs, err := process.Processes()
	if err != nil {
		return false, errors.Wrap(err, "failed to list processes")
	}

	needle := strings.ToLower(name)
	for _, p := range procs {
		pname, err := p.Name()
		if err != nil {
			continue // process may have exited mid-scan
		}
		if strings.Contains(strings.ToLower(pname), needle) {
			return true, nil
		}
	}
	return false, nil
}

// pidAlive reports whether a pid still exists on the host
func pidAlive(pid int32) bool {
	alive, err := process.PidExists(pid)
	return err == nil && alive
}
