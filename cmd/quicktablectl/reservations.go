package main

import (
	"fmt"
	"text/tabwriter"

	"quicktable/internal/export"
	"quicktable/internal/models"

	"github.com/spf13/cobra"
)

func reservationsCmd(opts *rootOptions) *cobra.Command {
	var status, date, search string

	cmd := &cobra.Command{
		Use:   "reservations <restaurant-id>",
		Short: "List a restaurant's reservations, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := models.ReservationFilter{Date: date, Search: search}
			if status != "all" {
				filter.Status = models.ReservationStatus(status)
			}

			list, err := opts.app.reservations.List(cmd.Context(), args[0], filter)
			if err != nil {
				return err
			}
			if opts.outputJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tTIME\tPARTY\tNAME\tPHONE\tSTATUS")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n", r.ID, r.Date, r.Time, r.PartySize, r.CustomerName, r.CustomerPhone, r.Status)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "pending, confirmed, cancelled, completed or all")
	cmd.Flags().StringVar(&date, "date", "", "Only this date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&search, "query", "q", "", "Match name or phone")
	return cmd
}

func exportCmd(opts *rootOptions) *cobra.Command {
	var from, to, dir string

	cmd := &cobra.Command{
		Use:   "export <restaurant-id>",
		Short: "Write reservations of a date range to an xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			loc := a.cfg.Location()

			fromDay, err := parseDateInput(from, loc)
			if err != nil {
				return err
			}
			toDay, err := parseDateInput(to, loc)
			if err != nil {
				return err
			}

			restaurant, err := a.restaurants.Get(ctx, args[0])
			if err != nil {
				return err
			}
			list, err := a.reservations.ListBetween(ctx, restaurant.ID, fromDay, toDay)
			if err != nil {
				return err
			}

			if dir == "" {
				dir = a.cfg.Exports.Path
			}
			path, err := export.NewExporter(dir, loc, a.logger).Save(restaurant, fromDay, toDay, list)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d reservation(s) to %s\n", len(list), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "today", "First date")
	cmd.Flags().StringVar(&to, "to", "today", "Last date")
	cmd.Flags().StringVarP(&dir, "out", "o", "", "Output directory (defaults to exports.path)")
	return cmd
}
