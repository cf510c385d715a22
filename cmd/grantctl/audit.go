package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <app> <group>",
		Short: "Show recent change requests for a subject",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			entries, err := c.Audit(subject(args[0], args[1]))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("no audit entries")
				return nil
			}
			for _, e := range entries {
				verb := "revoke"
				if e.Request.Grant {
					verb = "grant"
				}
				fixed := ""
				if e.Request.UserFixed {
					fixed = " (user-fixed)"
				}
				fmt.Printf("%s  %s %s%s  by %s\n", e.AppliedAt, verb, e.Request.Target, fixed, e.Caller)
			}
			return nil
		},
	}
}
