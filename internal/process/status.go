package process

import (
	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// Status is a point-in-time view of a supervised process taken from the OS
// process table.
type Status struct {
	Running    bool    `json:"running"`
	OSStatus   string  `json:"status"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryMB   float64 `json:"memory_mb"`
}

// QueryStatus inspects the process table for pid. Absence is not an error;
// it yields a stopped status with zeroed resource figures.
func QueryStatus(pid int) Status {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return Status{Running: false, OSStatus: "exited"}
	}
	st := Status{Running: true, OSStatus: "unknown"}
	if sts, err := p.Status(); err == nil && len(sts) > 0 {
		st.OSStatus = sts[0]
	}
	if cpu, err := p.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		st.MemoryMB = float64(mem.RSS) / (1024 * 1024)
	}
	return st
}

// Alive reports whether pid exists and is not a zombie. A pid whose status
// cannot be read is treated as dead, matching the monitor's recovery policy.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := gopsproc.PidExists(int32(pid))
	if err != nil || !exists {
		return false
	}
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	sts, err := p.Status()
	if err != nil {
		return false
	}
	for _, s := range sts {
		if s == gopsproc.Zombie {
			return false
		}
	}
	return true
}
