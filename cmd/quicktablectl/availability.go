package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"quicktable/internal/models"

	"github.com/spf13/cobra"
)

// parseDateInput accepts YYYY-MM-DD, "today" and "tomorrow" in loc.
func parseDateInput(input string, loc *time.Location) (string, error) {
	now := time.Now().In(loc)
	switch input {
	case "", "today":
		return models.FormatDate(now), nil
	case "tomorrow":
		return models.FormatDate(now.AddDate(0, 0, 1)), nil
	}
	if _, err := models.ParseDate(input); err != nil {
		return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", input)
	}
	return input, nil
}

func slotsCmd(opts *rootOptions) *cobra.Command {
	var date string
	var party int

	cmd := &cobra.Command{
		Use:   "slots <slug>",
		Short: "Show the bookable slots of a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			day, err := parseDateInput(date, a.cfg.Location())
			if err != nil {
				return err
			}

			restaurant, slots, err := a.reservations.Slots(cmd.Context(), args[0], day, party)
			if err != nil {
				return err
			}
			if opts.outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"restaurantId": restaurant.ID,
					"date":         day,
					"partySize":    party,
					"slots":        slots,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s, %s, party of %d\n", restaurant.Name, day, party)
			if len(slots) == 0 {
				return printNoSlots(out, a, restaurant, day)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tAVAILABLE\tTOTAL\tSTATUS")
			for _, s := range slots {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", s.Time, s.AvailableCapacity, s.TotalCapacity, s.Status)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&date, "date", "today", "Date (YYYY-MM-DD, today, tomorrow)")
	cmd.Flags().IntVar(&party, "party", 2, "Party size")
	return cmd
}

// printNoSlots explains an empty slot list with the date's picker state.
func printNoSlots(out io.Writer, a *app, restaurant *models.Restaurant, day string) error {
	date, err := models.ParseDate(day)
	if err != nil {
		return err
	}
	summary, err := a.engine.Summarize(restaurant, date)
	if err != nil {
		return err
	}
	if summary.State == models.DayOpen {
		fmt.Fprintln(out, "no slots")
		return nil
	}
	fmt.Fprintln(out, summary.State)
	return nil
}

func daysCmd(opts *rootOptions) *cobra.Command {
	var from string
	var days int

	cmd := &cobra.Command{
		Use:   "days <slug>",
		Short: "Show which dates are open for booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			start, err := parseDateInput(from, a.cfg.Location())
			if err != nil {
				return err
			}
			startDay, err := models.ParseDate(start)
			if err != nil {
				return err
			}

			summaries, err := a.reservations.Days(cmd.Context(), args[0], startDay, days)
			if err != nil {
				return err
			}
			if opts.outputJSON {
				return writeJSON(cmd.OutOrStdout(), summaries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tWEEKDAY\tSTATE\tFIRST\tLAST")
			for _, d := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Date, d.Weekday, d.State, d.FirstSlot, d.LastSlot)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&from, "from", "today", "First date")
	cmd.Flags().IntVar(&days, "days", models.DefaultPickerDays, "Number of dates")
	return cmd
}
