package store

import "time"

// ProcessRecord is the durable state kept for one supervised process.
// ID is assigned monotonically and never reused; Name is unique across all
// live records. PID is only meaningful while the OS process exists.
type ProcessRecord struct {
	ID        int64             `json:"id"`
	PID       int               `json:"pid"`
	Name      string            `json:"name"`
	Cmd       string            `json:"cmd"`
	Cwd       string            `json:"cwd"`
	Restart   bool              `json:"restart"`
	StartedAt time.Time         `json:"started_at"`
	StdoutLog string            `json:"stdout_log"`
	StderrLog string            `json:"stderr_log"`
	Env       map[string]string `json:"env,omitempty"`
	Group     string            `json:"group,omitempty"`
	EnvFile   string            `json:"env_file,omitempty"`
}

// GroupInfo is a named bucket providing default environment for its members.
type GroupInfo struct {
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"created_at"`
	Env       map[string]string `json:"env,omitempty"`
	EnvFile   string            `json:"env_file,omitempty"`
}

// PortLease reserves a TCP port for a caller-supplied label.
// At most one lease exists per port number.
type PortLease struct {
	Port        int       `json:"port"`
	Name        string    `json:"name"`
	AllocatedAt time.Time `json:"allocated_at"`
}
