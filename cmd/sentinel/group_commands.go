package main

import (
	"fmt"

	"github.com/loykin/sentinel"
	"github.com/spf13/cobra"
)

// GroupFlags holds flags for group subcommands
type GroupFlags struct {
	Env     []string
	EnvFile string
	Force   bool
}

// createGroupCommand creates the group subcommand tree
func createGroupCommand(c command, f *GroupFlags) *cobra.Command {
	group := &cobra.Command{
		Use:   "group",
		Short: "Manage process groups",
		Long: `Groups bundle processes that share environment and are operated on
together. Group environment sits between the global dotenv files and each
process's own environment.

Examples:
  sentinel group create backend --env=STAGE=prod --env-file=backend.env
  sentinel group add web backend
  sentinel group restart backend`,
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := parseEnvPairs(f.Env)
			if err != nil {
				return err
			}
			return c.GroupCreate(args[0], env, f.EnvFile)
		},
	}
	create.Flags().StringArrayVar(&f.Env, "env", nil, "group environment entry KEY=VALUE (repeatable)")
	create.Flags().StringVar(&f.EnvFile, "env-file", "", "dotenv file loaded for every member")

	remove := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a group",
		Long: `Delete a group. Member processes keep running and stay in the state
file, they simply lose their group association.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.GroupDelete(args[0])
		},
	}

	add := &cobra.Command{
		Use:   "add <id|name> <group>",
		Short: "Attach a process to a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.GroupAdd(args[0], args[1])
		},
	}

	detach := &cobra.Command{
		Use:   "remove <id|name>",
		Short: "Detach a process from its group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.GroupRemove(args[0])
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List groups and their members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.GroupList()
		},
	}

	start := &cobra.Command{
		Use:   "start <group>",
		Short: "Start every dead member of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.GroupStart(args[0])
		},
	}

	stop := &cobra.Command{
		Use:   "stop <group>",
		Short: "Stop every member of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.GroupStop(args[0], f.Force)
		},
	}
	stop.Flags().BoolVar(&f.Force, "force", false, "kill immediately with SIGKILL")

	restart := &cobra.Command{
		Use:   "restart <group>",
		Short: "Restart every member of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.GroupRestart(args[0])
		},
	}

	group.AddCommand(create, remove, add, detach, list, start, stop, restart)
	return group
}

func (c command) GroupCreate(name string, env map[string]string, envFile string) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		g, err := eng.CreateGroup(name, env, envFile)
		if err != nil {
			return err
		}
		fmt.Printf("created group %s\n", g.Name)
		return nil
	})
}

func (c command) GroupDelete(name string) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		if err := eng.RemoveGroup(name); err != nil {
			return err
		}
		fmt.Printf("deleted group %s\n", name)
		return nil
	})
}

func (c command) GroupAdd(target, group string) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		rec, err := eng.Resolve(target)
		if err != nil {
			return err
		}
		if err := eng.AssignGroup(rec.ID, group); err != nil {
			return err
		}
		fmt.Printf("added %s to group %s\n", rec.Name, group)
		return nil
	})
}

func (c command) GroupRemove(target string) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		rec, err := eng.Resolve(target)
		if err != nil {
			return err
		}
		if err := eng.UnassignGroup(rec.ID); err != nil {
			return err
		}
		fmt.Printf("removed %s from its group\n", rec.Name)
		return nil
	})
}

func (c command) GroupList() error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		groups := eng.ListGroups()
		if len(groups) == 0 {
			fmt.Println("no groups")
			return nil
		}
		for _, g := range groups {
			members := eng.ProcessesInGroup(g.Name)
			fmt.Printf("%s (%d members", g.Name, len(members))
			if g.EnvFile != "" {
				fmt.Printf(", env-file=%s", g.EnvFile)
			}
			fmt.Println(")")
			for _, rec := range members {
				fmt.Printf("  %-5d %-20s pid=%d\n", rec.ID, rec.Name, rec.PID)
			}
		}
		return nil
	})
}

// GroupStart starts only the dead members, leaving running ones alone.
func (c command) GroupStart(name string) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		if _, ok := eng.GetGroup(name); !ok {
			return fmt.Errorf("group %s: %w", name, sentinel.ErrNotFound)
		}
		var dead []sentinel.ProcessRecord
		for _, rec := range eng.ProcessesInGroup(name) {
			if !eng.Status(rec).Running {
				dead = append(dead, rec)
			}
		}
		ok, failed := eng.BatchRestart(dead)
		printBatchResult("started", ok, failed)
		return nil
	})
}

func (c command) GroupStop(name string, force bool) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		if _, ok := eng.GetGroup(name); !ok {
			return fmt.Errorf("group %s: %w", name, sentinel.ErrNotFound)
		}
		ok, failed := eng.BatchStop(eng.ProcessesInGroup(name), force)
		printBatchResult("stopped", ok, failed)
		return nil
	})
}

func (c command) GroupRestart(name string) error {
	return c.withEngine(func(eng *sentinel.Engine) error {
		if _, ok := eng.GetGroup(name); !ok {
			return fmt.Errorf("group %s: %w", name, sentinel.ErrNotFound)
		}
		ok, failed := eng.BatchRestart(eng.ProcessesInGroup(name))
		printBatchResult("restarted", ok, failed)
		return nil
	})
}
