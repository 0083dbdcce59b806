package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"remindbot/internal/commands"
	"remindbot/internal/reminder"
)

const planMaxLines = 50

func newPlanCommand() *cobra.Command {
	var event, interval, tz, at string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show when reminders for an event would fire, without storing anything",
		Example: `  remindbot plan --event 20.09.2025-10:00 --interval 12h
  remindbot plan --event 24.12.2025-18:00 --interval 01:30:00 --tz Europe/Vienna`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := reminder.LoadZone(tz)
			if err != nil {
				return err
			}
			now := time.Now()
			if at != "" {
				if now, err = reminder.ParseEventTime(at, loc); err != nil {
					return fmt.Errorf("--now: %w", err)
				}
			}
			eventAt, err := reminder.ParseEventTime(event, loc)
			if err != nil {
				return err
			}
			iv, err := reminder.ParseInterval(interval)
			if err != nil {
				return err
			}
			plan, err := reminder.ComputeInitialPlan(eventAt, iv, now)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "event:     %s (%s)\n", reminder.FormatEvent(eventAt, loc), loc)
			fmt.Fprintf(out, "interval:  %s\n", commands.FormatInterval(iv))
			fmt.Fprintf(out, "reminders: %d\n", plan.Remaining)
			for k, n := plan.Remaining, 0; k >= 1; k, n = k-1, n+1 {
				if n == planMaxLines {
					fmt.Fprintf(out, "  … %d more\n", k)
					break
				}
				fireAt := reminder.FireAt(eventAt, iv, k)
				fmt.Fprintf(out, "  %s  ~%s left  (%s)\n",
					reminder.FormatEvent(fireAt, loc),
					reminder.FormatHours(eventAt.Sub(fireAt)),
					humanize.RelTime(fireAt, now, "ago", "from now"),
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&event, "event", "", "event time, dd.MM.yyyy-HH:mm")
	cmd.Flags().StringVar(&interval, "interval", "", "interval, e.g. 12h, 30m, 12:00:00h")
	cmd.Flags().StringVar(&tz, "tz", "", "IANA timezone (default "+reminder.DefaultZone+")")
	cmd.Flags().StringVar(&at, "now", "", "pretend the current time is this, dd.MM.yyyy-HH:mm")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("interval")
	return cmd
}
