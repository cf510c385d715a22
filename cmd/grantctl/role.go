package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func roleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Query role availability",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <role>",
		Short: "Check whether a role can be held on this device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			available, err := c.RoleAvailability(args[0], flagUser)
			if err != nil {
				return err
			}
			if available {
				fmt.Printf("%s: available\n", args[0])
			} else {
				fmt.Printf("%s: not available\n", args[0])
			}
			return nil
		},
	})
	return cmd
}
