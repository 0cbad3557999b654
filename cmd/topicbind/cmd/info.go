package cmd

import (
	"github.com/topicbind/topicbind/internal/constants"
	"github.com/topicbind/topicbind/internal/output"
	"github.com/topicbind/topicbind/internal/providers/aws"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the manifest's external topic bindings and the AWS identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPlugin(cmd.Context())
		if err != nil {
			return fail(err)
		}

		output.Header("📋 " + constants.ProjectName + " bindings")
		output.KeyValue("Service", p.Config.Service)
		output.KeyValue("Stage", p.Config.Stage)
		output.KeyValue("Region", p.Config.Region)

		identity, err := aws.GetCallerIdentity(cmd.Context(), p.Clients.STS)
		if err != nil {
			return fail(err)
		}
		output.KeyValue("Account", identity.Account)
		output.KeyValue("Identity", identity.Arn)
		output.Blank()

		bindings := p.Bindings()
		if len(bindings) == 0 {
			output.Info("no external topic bindings declared")
			return nil
		}
		for _, b := range bindings {
			output.Printf("  %s → %s (%s)\n", output.Bold(b.Function), b.Topic, b.Protocol)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
