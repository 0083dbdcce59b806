package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func NewRootCommand() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "remindbot",
		Short:         "Telegram bot for countdown reminders before an event",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./config.yaml", "path to config (yaml or json)")

	root.AddCommand(newServeCommand(&cfgPath))
	root.AddCommand(newPlanCommand())
	root.AddCommand(newListCommand(&cfgPath))
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("remindbot", version)
		},
	}
}
