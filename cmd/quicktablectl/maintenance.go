package main

import (
	"fmt"

	"quicktable/internal/database"
	"quicktable/internal/google"

	"github.com/spf13/cobra"
)

func sheetsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Google Sheets mirror maintenance",
	}
	cmd.AddCommand(sheetsSyncCmd(opts))
	return cmd
}

func sheetsSyncCmd(opts *rootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "sync <restaurant-id>",
		Short: "Rewrite the reservations sheet from the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			g := a.cfg.Google
			if g.CredentialsFile == "" || g.SpreadsheetID == "" {
				return fmt.Errorf("google.credentials_file and google.spreadsheet_id are required")
			}

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

			sheets, err := google.NewSheetsService(ctx, g.CredentialsFile, g.SpreadsheetID, g.SheetName, loc)
			if err != nil {
				return err
			}
			if err := sheets.ReplaceReservationsSheet(ctx, list, restaurant.Name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d reservation(s) to sheet %q\n", len(list), g.SheetName)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "today", "First date")
	cmd.Flags().StringVar(&to, "to", "today", "Last date")
	return cmd
}

func backupCmd(opts *rootOptions) *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a database backup now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			svc := database.NewBackupService(a.cfg.Database.Path, a.cfg.Backup, a.logger)
			path, err := svc.PerformBackup(cmd.Context())
			if err != nil {
				return err
			}
			removed := 0
			if !keep {
				removed = svc.CleanupOldBackups()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s (%d old backup(s) removed)\n", path, removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&keep, "keep", false, "Skip retention cleanup")
	return cmd
}
