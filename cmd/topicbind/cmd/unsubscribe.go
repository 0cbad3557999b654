package cmd

import (
	"github.com/topicbind/topicbind/internal/output"

	"github.com/spf13/cobra"
)

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe",
	Short: "Unsubscribe functions from their external topics without a remove",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPlugin(cmd.Context())
		if err != nil {
			return fail(err)
		}

		if err := p.UnsubscribeAllStandalone(cmd.Context()); err != nil {
			return fail(err)
		}

		output.Success("Removed subscriptions for %d binding(s)", len(p.Bindings()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unsubscribeCmd)
}
