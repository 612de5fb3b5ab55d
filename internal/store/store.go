package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Sentinel errors matched with errors.Is by callers.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store owns the in-memory maps of process, group and port records and is the
// sole writer of the backing file. Every mutation rewrites the whole file, so
// a crash between mutations never loses more than the in-flight operation.
//
// The mutex serializes the monitor goroutine against foreground calls within
// one process. Two separate OS processes sharing the same state file can
// still race; the last full-file write wins. That matches the write-rate this
// tool is built for and is documented behavior.
type Store struct {
	mu     sync.Mutex
	path   string
	nextID int64
	procs  map[int64]ProcessRecord
	ports  map[int]PortLease
	groups map[string]GroupInfo
}

// fileState is the on-disk JSON document.
type fileState struct {
	NextID    int64                    `json:"next_id"`
	Processes map[int64]ProcessRecord  `json:"processes"`
	Ports     map[int]PortLease        `json:"ports"`
	Groups    map[string]GroupInfo     `json:"groups"`
}

// Open loads the store at path, creating parent directories as needed.
// A missing or corrupt file yields an empty store rather than an error.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	s := &Store{
		path:   path,
		nextID: 1,
		procs:  make(map[int64]ProcessRecord),
		ports:  make(map[int]PortLease),
		groups: make(map[string]GroupInfo),
	}
	s.load()
	return s, nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

func (s *Store) load() {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var fs fileState
	if err := json.Unmarshal(b, &fs); err != nil {
		// Corrupt file: degrade to an empty store. Known risk, not silent
		// loss avoidance; the next mutation rewrites the file.
		return
	}
	if fs.NextID > 0 {
		s.nextID = fs.NextID
	}
	if fs.Processes != nil {
		s.procs = fs.Processes
	}
	if fs.Ports != nil {
		s.ports = fs.Ports
	}
	if fs.Groups != nil {
		s.groups = fs.Groups
	}
}

// save must be called with s.mu held.
func (s *Store) save() error {
	fs := fileState{
		NextID:    s.nextID,
		Processes: s.procs,
		Ports:     s.ports,
		Groups:    s.groups,
	}
	b, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// NextID allocates and persists the next process id.
func (s *Store) NextID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	_ = s.save()
	return id
}

// AddProcess inserts (or reinserts) a record and persists the store.
func (s *Store) AddProcess(rec ProcessRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.procs[rec.ID] = rec
	return s.save()
}

// RemoveProcess deletes the record with the given id.
func (s *Store) RemoveProcess(id int64) (ProcessRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.procs[id]
	if !ok {
		return ProcessRecord{}, false
	}
	delete(s.procs, id)
	_ = s.save()
	return rec, true
}

// GetProcess looks up a record by id.
func (s *Store) GetProcess(id int64) (ProcessRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.procs[id]
	return rec, ok
}

// FindByName looks up a record by its unique name.
func (s *Store) FindByName(name string) (ProcessRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.procs {
		if rec.Name == name {
			return rec, true
		}
	}
	return ProcessRecord{}, false
}

// ListProcesses returns all records ordered by id.
func (s *Store) ListProcesses() []ProcessRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProcessRecord, 0, len(s.procs))
	for _, rec := range s.procs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllocatePort records a lease. The caller (ports.Allocator) is responsible
// for range and bindability checks; here only uniqueness is enforced.
func (s *Store) AllocatePort(lease PortLease) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ports[lease.Port]; ok {
		return fmt.Errorf("port %d already leased: %w", lease.Port, ErrConflict)
	}
	s.ports[lease.Port] = lease
	return s.save()
}

// FreePort removes a lease if present and reports whether one existed.
func (s *Store) FreePort(port int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ports[port]; !ok {
		return false
	}
	delete(s.ports, port)
	_ = s.save()
	return true
}

// GetPort returns the lease for a port number.
func (s *Store) GetPort(port int) (PortLease, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.ports[port]
	return l, ok
}

// ListPorts returns leases ordered by port, optionally filtered by owner name.
func (s *Store) ListPorts(name string) []PortLease {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PortLease, 0, len(s.ports))
	for _, l := range s.ports {
		if name != "" && l.Name != name {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// CreateGroup creates a named group with optional default environment.
func (s *Store) CreateGroup(name string, env map[string]string, envFile string) (GroupInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[name]; ok {
		return GroupInfo{}, fmt.Errorf("group %q already exists: %w", name, ErrConflict)
	}
	g := GroupInfo{Name: name, CreatedAt: time.Now(), Env: env, EnvFile: envFile}
	s.groups[name] = g
	if err := s.save(); err != nil {
		return GroupInfo{}, err
	}
	return g, nil
}

// RemoveGroup deletes a group and clears the group field on every member.
// Members are not stopped.
func (s *Store) RemoveGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[name]; !ok {
		return fmt.Errorf("group %q: %w", name, ErrNotFound)
	}
	delete(s.groups, name)
	for id, rec := range s.procs {
		if rec.Group == name {
			rec.Group = ""
			s.procs[id] = rec
		}
	}
	return s.save()
}

// GetGroup looks up a group by name.
func (s *Store) GetGroup(name string) (GroupInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[name]
	return g, ok
}

// ListGroups returns all groups ordered by name.
func (s *Store) ListGroups() []GroupInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]GroupInfo, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ProcessesInGroup returns the member records of a group ordered by id.
func (s *Store) ProcessesInGroup(name string) []ProcessRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProcessRecord, 0)
	for _, rec := range s.procs {
		if rec.Group == name {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AssignGroup moves a process into a group.
func (s *Store) AssignGroup(id int64, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[group]; !ok {
		return fmt.Errorf("group %q: %w", group, ErrNotFound)
	}
	rec, ok := s.procs[id]
	if !ok {
		return fmt.Errorf("process %d: %w", id, ErrNotFound)
	}
	rec.Group = group
	s.procs[id] = rec
	return s.save()
}

// UnassignGroup clears a process's group membership.
func (s *Store) UnassignGroup(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.procs[id]
	if !ok {
		return fmt.Errorf("process %d: %w", id, ErrNotFound)
	}
	rec.Group = ""
	s.procs[id] = rec
	return s.save()
}
