package main

import (
	"fmt"
	"strconv"

	"github.com/loykin/sentinel"
	"github.com/spf13/cobra"
)

// PortFlags holds flags for port subcommands
type PortFlags struct {
	Port int
	Name string
}

// createPortCommand creates the port subcommand tree
func createPortCommand(c command, f *PortFlags) *cobra.Command {
	port := &cobra.Command{
		Use:   "port",
		Short: "Manage port leases",
		Long: `Lease TCP ports for named services. A lease reserves the port in the
state file; allocation also bind-probes the port on loopback so a port held
by an unrelated process is never handed out.

Examples:
  sentinel port allocate web            # random free port
  sentinel port allocate web --port=8080
  sentinel port free 8080`,
	}

	allocate := &cobra.Command{
		Use:   "allocate <name>",
		Short: "Lease a port for a named service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.PortAllocate(args[0], f.Port)
		},
	}
	allocate.Flags().IntVar(&f.Port, "port", 0, "specific port to lease (random free port when 0)")

	free := &cobra.Command{
		Use:   "free <port>",
		Short: "Release a leased port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid port %q", args[0])
			}
			return c.PortFree(p)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List port leases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.PortList(f.Name)
		},
	}
	list.Flags().StringVar(&f.Name, "name", "", "only show leases held by this name")

	port.AddCommand(allocate, free, list)
	return port
}

func (c command) PortAllocate(name string, port int) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		p, ok := eng.AllocatePort(name, port)
		if !ok {
			if port > 0 {
				return fmt.Errorf("port %d is not available", port)
			}
			return fmt.Errorf("no free port found for %s", name)
		}
		fmt.Printf("allocated port %d for %s\n", p, name)
		return nil
	})
}

func (c command) PortFree(port int) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		if !eng.FreePort(port) {
			return fmt.Errorf("port %d: %w", port, sentinel.ErrNotFound)
		}
		fmt.Printf("freed port %d\n", port)
		return nil
	})
}

func (c command) PortList(name string) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		leases := eng.ListPorts(name)
		if len(leases) == 0 {
			fmt.Println("no port leases")
			return nil
		}
		fmt.Printf("%-7s %-20s %s\n", "PORT", "NAME", "ALLOCATED")
		for _, l := range leases {
			fmt.Printf("%-7d %-20s %s\n", l.Port, l.Name, l.AllocatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	})
}
