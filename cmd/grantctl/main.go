package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grantd/grantd/internal/config"
	"github.com/grantd/grantd/internal/logger"
	"github.com/grantd/grantd/internal/server"
)

var (
	flagSocket string
	flagUser   string
)

func main() {
	logger.Init("warn", "")

	root := &cobra.Command{
		Use:   "grantctl",
		Short: "grantctl — manage app permission grants and roles",
	}
	root.PersistentFlags().StringVar(&flagSocket, "socket", "", "daemon socket path (default: config)")
	root.PersistentFlags().StringVarP(&flagUser, "user", "u", "0", "target user id")

	root.AddCommand(
		roleCmd(),
		grantCmd(),
		auditCmd(),
		hashTokenCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func socketPath() string {
	if flagSocket != "" {
		return flagSocket
	}
	return config.Default().Server.Socket
}

// newClient opens a daemon client, trading GRANTD_ADMIN_TOKEN for a
// session when the daemon runs with auth enabled.
func newClient() (*server.Client, error) {
	c := server.NewClient(socketPath())
	if tok := os.Getenv("GRANTD_ADMIN_TOKEN"); tok != "" {
		if _, err := c.OpenSession(tok, "grantctl"); err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
	}
	return c, nil
}
