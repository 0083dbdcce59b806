package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"remindbot/internal/app"
	"remindbot/internal/commands"
	"remindbot/internal/config"
	"remindbot/internal/reminder"
	"remindbot/internal/storage"
	"remindbot/pkg/logx"
)

func newListCommand(cfgPath *string) *cobra.Command {
	var chatID int64
	var threadID int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored reminders of a chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.NewConfigManager(*cfgPath).Parse()
			if err != nil {
				return err
			}
			sc, err := app.MapStorageConfig(cfg)
			if err != nil {
				return err
			}
			loc, err := reminder.LoadZone(cfg.Scheduler.Timezone)
			if err != nil {
				return err
			}
			store, err := storage.Open(sc, logx.Nop())
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.QueryByScope(cmd.Context(), reminder.Scope{ChatID: chatID, ThreadID: threadID})
			if err != nil {
				return err
			}
			return printReminders(cmd, list, time.Now(), loc)
		},
	}
	cmd.Flags().Int64Var(&chatID, "chat", 0, "chat id")
	cmd.Flags().IntVar(&threadID, "thread", 0, "forum topic id (0 for the main thread)")
	_ = cmd.MarkFlagRequired("chat")
	return cmd
}

func printReminders(cmd *cobra.Command, list []reminder.Reminder, now time.Time, loc *time.Location) error {
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "no reminders")
		return nil
	}
	for _, r := range list {
		next := "due"
		if r.NextFireAt.After(now) {
			next = humanize.RelTime(r.NextFireAt, now, "ago", "from now")
		}
		fmt.Fprintf(out, "%s  %s  every %-8s  %3d left  next %-16s  %s\n",
			r.ID,
			reminder.FormatEvent(r.EventAt, loc),
			commands.FormatInterval(r.Interval),
			r.Remaining,
			next,
			reminder.Snippet(r.Message),
		)
	}
	return nil
}
