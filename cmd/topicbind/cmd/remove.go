package cmd

import (
	"github.com/topicbind/topicbind/internal/output"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Unsubscribe all functions, then delete the permission stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := loadPlugin(ctx)
		if err != nil {
			return fail(err)
		}

		output.Step(1, 2, "Unsubscribing functions from external topics")
		if err := p.UnsubscribeAll(ctx); err != nil {
			return fail(err)
		}
		output.StepSuccess(1, 2, "Subscriptions removed")

		output.Step(2, 2, "Deleting permission stack "+p.Config.StackName())
		if err := p.RemovePermissions(ctx); err != nil {
			return fail(err)
		}
		output.StepSuccess(2, 2, "Permission stack deleted")

		output.Blank()
		output.Success("Removed external topic wiring for %s-%s", p.Config.Service, p.Config.Stage)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
