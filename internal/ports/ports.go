package ports

import (
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/loykin/sentinel/internal/store"
)

// Valid allocation range. Ports below 1024 need privileges and are never
// handed out.
const (
	MinPort = 1024
	MaxPort = 65535
)

// Number of random draws before giving up on automatic allocation.
const maxDraws = 100

// Allocator hands out exclusive TCP port leases backed by the store's port
// table. Bindability is proven by a bind-and-release on loopback; the gap
// between the probe and the caller's actual bind is inherent to the approach.
type Allocator struct {
	st *store.Store
}

func New(st *store.Store) *Allocator { return &Allocator{st: st} }

// Allocate leases a port for name. With port > 0 the specific port is
// requested; it must be unleased, in range and currently bindable. With
// port == 0 up to 100 random in-range candidates are tried. Returns the
// leased port and true, or 0 and false when no port could be allocated.
func (a *Allocator) Allocate(name string, port int) (int, bool) {
	chosen := 0
	if port > 0 {
		if _, leased := a.st.GetPort(port); leased || !Bindable(port) {
			return 0, false
		}
		chosen = port
	} else {
		for i := 0; i < maxDraws; i++ {
			candidate := MinPort + rand.Intn(MaxPort-MinPort+1)
			if _, leased := a.st.GetPort(candidate); leased {
				continue
			}
			if !Bindable(candidate) {
				continue
			}
			chosen = candidate
			break
		}
		if chosen == 0 {
			return 0, false
		}
	}
	lease := store.PortLease{Port: chosen, Name: name, AllocatedAt: time.Now()}
	if err := a.st.AllocatePort(lease); err != nil {
		// Lost a race against a concurrent allocation.
		return 0, false
	}
	return chosen, true
}

// Free releases a lease and reports whether one existed.
func (a *Allocator) Free(port int) bool { return a.st.FreePort(port) }

// Bindable reports whether the port is in range and can currently be bound
// on the loopback interface.
func Bindable(port int) bool {
	if port < MinPort || port > MaxPort {
		return false
	}
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = l.Close()
	return true
}
