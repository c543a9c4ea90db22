// @title           TaskSync API
// @version         1.0
// @description     Multi-user to-do lists with live updates over websocket.
// @BasePath        /
// @securityDefinitions.apikey TokenAuth
// @in              header
// @name            x-access-token
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "api",
		Short:         "TaskSync API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newHashPasswordCommand())
	return cmd
}
