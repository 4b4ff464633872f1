package main

import (
	"fmt"
	"text/tabwriter"

	"quicktable/internal/config"

	"github.com/spf13/cobra"
)

func seedCmd(opts *rootOptions) *cobra.Command {
	var file string
	var demo bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load restaurants from a YAML file into the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()

			if demo {
				if err := a.restaurants.EnsureDefault(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "demo restaurant ready")
				return nil
			}

			path := file
			if path == "" {
				path = a.cfg.RestaurantsFile
			}
			if path == "" {
				return fmt.Errorf("--file is required when restaurants_file is not configured")
			}
			restaurants, err := config.LoadRestaurants(path)
			if err != nil {
				return err
			}
			if err := a.restaurants.Seed(ctx, restaurants); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d restaurant(s) from %s\n", len(restaurants), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Restaurants YAML file (defaults to restaurants_file)")
	cmd.Flags().BoolVar(&demo, "demo", false, "Create the demo restaurant if the directory is empty")
	return cmd
}

func restaurantsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restaurants",
		Short: "List restaurants",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := opts.app.restaurants.List(cmd.Context())
			if err != nil {
				return err
			}
			if opts.outputJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSLUG\tNAME\tCAPACITY\tINTERVAL\tDURATION")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%dm\t%dm\n", r.ID, r.Slug, r.Name, r.TotalCapacity(), r.BookingInterval, r.AvgDiningDuration)
			}
			return tw.Flush()
		},
	}
}
