package cli

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/peopledesk/internal/app"
	"github.com/odyssey-erp/peopledesk/jobs"
)

func newJobsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger background jobs",
	}
	var retentionHours int
	trigger := &cobra.Command{
		Use:       "trigger <job>",
		Short:     "Enqueue a job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{jobs.TaskBonusTotalsRefresh, jobs.TaskIdempotencyCleanup},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadStoreConfig()
			if err != nil {
				return err
			}
			client, err := jobs.NewClient(cfg.Asynq())
			if err != nil {
				return err
			}
			defer client.Close()

			var info *asynq.TaskInfo
			switch args[0] {
			case jobs.TaskBonusTotalsRefresh:
				info, err = client.EnqueueBonusTotalsRefresh(cmd.Context(), jobs.BonusTotalsRefreshPayload{RequestedBy: "peoplectl"})
			case jobs.TaskIdempotencyCleanup:
				info, err = client.EnqueueIdempotencyCleanup(cmd.Context(), jobs.IdempotencyCleanupPayload{RetentionHours: retentionHours})
			default:
				return fmt.Errorf("unsupported job %s", args[0])
			}
			if errors.Is(err, asynq.ErrDuplicateTask) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already queued\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s\n", info.Type, info.ID)
			return nil
		},
	}
	trigger.Flags().IntVar(&retentionHours, "retention-hours", 0, "idempotency key retention for the cleanup job")
	cmd.AddCommand(trigger)
	return cmd
}
