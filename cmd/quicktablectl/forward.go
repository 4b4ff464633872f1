package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func forwardCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forward",
		Short: "Inspect and requeue forward tasks",
	}
	cmd.AddCommand(forwardFailedCmd(opts), forwardRetryCmd(opts))
	return cmd
}

func forwardFailedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "failed",
		Short: "List tasks that exhausted their retries",
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := opts.app.db.GetFailedForwardTasks(cmd.Context())
			if err != nil {
				return err
			}
			if opts.outputJSON {
				return writeJSON(cmd.OutOrStdout(), tasks)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tRESERVATION\tRETRIES\tERROR")
			for _, t := range tasks {
				lastErr := ""
				if t.LastError != nil {
					lastErr = *t.LastError
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", t.ID, t.TaskType, t.ReservationID, t.RetryCount, lastErr)
			}
			return tw.Flush()
		},
	}
}

func forwardRetryCmd(opts *rootOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "retry [task-id...]",
		Short: "Requeue failed tasks for the running worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db := opts.app.db

			var ids []int64
			if all {
				tasks, err := db.GetFailedForwardTasks(ctx)
				if err != nil {
					return err
				}
				for _, t := range tasks {
					ids = append(ids, t.ID)
				}
			}
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid task id %q", arg)
				}
				ids = append(ids, id)
			}
			if len(ids) == 0 {
				return fmt.Errorf("pass task ids or --all")
			}

			for _, id := range ids {
				if err := db.RequeueFailedForwardTask(ctx, id); err != nil {
					return fmt.Errorf("task %d: %w", id, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requeued %d task(s)\n", len(ids))
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Requeue every failed task")
	return cmd
}
