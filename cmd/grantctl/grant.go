package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grantd/grantd/internal/cli"
	"github.com/grantd/grantd/internal/feed"
	"github.com/grantd/grantd/internal/grant"
	"github.com/grantd/grantd/internal/server"
)

func grantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Show and change app permission grants",
	}
	cmd.AddCommand(grantShowCmd(), grantSetCmd(), grantListCmd(), grantEnrollCmd(), grantRemoveCmd())
	return cmd
}

func subject(app, group string) grant.Subject {
	return grant.Subject{App: app, Group: group, User: flagUser}
}

func grantShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <app> <group>",
		Short: "Show the current grant state for an app's permission group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			sub := subject(args[0], args[1])
			snap, detail, admin, err := c.GetGrant(sub)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", sub)
			p := &cli.Printer{Out: os.Stdout}
			for _, choice := range grant.Choices {
				p.Apply(choice, snap.Buttons[choice], true)
			}
			p.SetDetail(detail)
			p.SetAdminInfo(admin)
			return nil
		},
	}
}

func grantSetCmd() *cobra.Command {
	var assumeYes bool
	cmd := &cobra.Command{
		Use:   "set <app> <group> <choice>",
		Short: "Change a grant, confirming risky denials",
		Long: "Choices: allow, allow_always, allow_foreground, ask, deny, deny_foreground.\n" +
			"Denying a default-granted or legacy-app permission asks for confirmation first.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			choice, err := grant.ParseChoice(args[2])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			sub := subject(args[0], args[1])

			sess := &cli.Session{
				Client: c,
				Source: &feed.Client{
					SocketPath: socketPath(),
					Token:      c.Token(),
					Subject:    sub,
				},
				Subject:   sub,
				Renderer:  &cli.Printer{Out: os.Stdout, Quiet: true},
				Confirmer: &cli.Prompt{In: os.Stdin, Out: os.Stderr, AssumeYes: assumeYes},
			}
			outcome, err := sess.Run(choice)
			if err != nil {
				return err
			}
			switch {
			case outcome.Cancelled:
				fmt.Println("no change")
			default:
				fmt.Printf("%s: %s\n", outcome.Group, outcome.Result)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "confirm risky denials without prompting")
	return cmd
}

func grantListCmd() *cobra.Command {
	var byApp, byGroup string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List grants by app or by permission group",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (byApp == "") == (byGroup == "") {
				return fmt.Errorf("exactly one of --app or --group is required")
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			var grants []server.GrantListing
			if byApp != "" {
				grants, err = c.ListGrantsForApp(byApp, flagUser)
			} else {
				grants, err = c.ListGrantsForGroup(byGroup, flagUser)
			}
			if err != nil {
				return err
			}
			if len(grants) == 0 {
				fmt.Println("no grants recorded")
				return nil
			}
			for _, g := range grants {
				checked := grant.Choice("none")
				if g.Snapshot != nil {
					checked = g.Snapshot.CheckedChoice()
				}
				fmt.Printf("%s  %s\n", g.Subject, checked)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&byApp, "app", "", "list every permission group for this app")
	cmd.Flags().StringVar(&byGroup, "group", "", "list every app holding this permission group")
	return cmd
}

func grantEnrollCmd() *cobra.Command {
	var opts server.EnrollOptions
	cmd := &cobra.Command{
		Use:   "enroll <app> <group>",
		Short: "Register grant state for a subject (app install)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			sub := subject(args[0], args[1])
			if err := c.EnrollSubject(sub, opts); err != nil {
				return err
			}
			fmt.Printf("enrolled %s\n", sub)
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.HasBackground, "background", false, "group includes a background permission")
	cmd.Flags().BoolVar(&opts.FgGranted, "granted", false, "start with foreground granted")
	cmd.Flags().BoolVar(&opts.BgGranted, "bg-granted", false, "start with background granted")
	cmd.Flags().BoolVar(&opts.DefaultGranted, "default-granted", false, "grant was made by default, deny warns")
	cmd.Flags().BoolVar(&opts.Legacy, "legacy", false, "app predates runtime prompts, deny warns")
	cmd.Flags().IntVar(&opts.Individual, "individual", 0, "permissions in the group controlled one by one")
	cmd.Flags().StringVar(&opts.AdminEnforcer, "admin", "", "admin that locks this subject")
	cmd.Flags().StringVar(&opts.AdminRestriction, "admin-restriction", "all", "admin restriction: all or background")
	return cmd
}

func grantRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <app> <group>",
		Short: "Drop grant state for a subject (app uninstall)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			sub := subject(args[0], args[1])
			if err := c.RemoveSubject(sub); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", sub)
			return nil
		},
	}
}
