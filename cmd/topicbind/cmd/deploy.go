package cmd

import (
	"github.com/topicbind/topicbind/internal/output"

	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Compile and apply invoke permissions, then subscribe all functions",
	Long: `Deploy runs the full post-deploy lifecycle: the permission template is
compiled and applied as a CloudFormation stack, then every function with an
externalSNS event is subscribed to its topic.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := loadPlugin(ctx)
		if err != nil {
			return fail(err)
		}

		output.Step(1, 3, "Compiling permission template")
		tmpl, err := p.WriteTemplate()
		if err != nil {
			return fail(err)
		}
		output.StepSuccess(1, 3, "Template compiled")

		output.Step(2, 3, "Applying permission stack "+p.Config.StackName())
		if err := p.ApplyPermissions(ctx); err != nil {
			return fail(err)
		}
		output.StepSuccess(2, 3, "Permissions applied")

		output.Step(3, 3, "Subscribing functions to external topics")
		if err := p.SubscribeAll(ctx); err != nil {
			return fail(err)
		}
		output.StepSuccess(3, 3, "Subscriptions reconciled")

		output.Blank()
		output.Success("Deployed %d permission resource(s), reconciled %d binding(s)",
			tmpl.Len(), len(p.Bindings()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
}
