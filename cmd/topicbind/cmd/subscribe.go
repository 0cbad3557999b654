package cmd

import (
	"github.com/topicbind/topicbind/internal/output"

	"github.com/spf13/cobra"
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Subscribe functions to their external topics without a deploy",
	Long: `Subscribe reconciles every externalSNS binding independently of a deploy.
Because no permission stack is applied, the invoke permission is granted
directly on each function before subscribing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPlugin(cmd.Context())
		if err != nil {
			return fail(err)
		}

		if err := p.SubscribeAllStandalone(cmd.Context()); err != nil {
			return fail(err)
		}

		output.Success("Reconciled %d binding(s)", len(p.Bindings()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(subscribeCmd)
}
