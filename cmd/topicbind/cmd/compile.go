package cmd

import (
	"log/slog"

	"github.com/topicbind/topicbind/internal/output"
	"github.com/topicbind/topicbind/internal/plugin"
	"github.com/topicbind/topicbind/internal/project"
	"github.com/topicbind/topicbind/internal/providers/aws"

	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile the permission template for all external topic bindings",
	Long: `Compile synthesizes an AWS::Lambda::Permission resource for every
(function, topic) pair in the manifest and writes the result as a
CloudFormation template fragment. No remote calls are made.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fail(err)
		}

		manifest, err := project.LoadManifest(cfg.Manifest)
		if err != nil {
			return fail(err)
		}

		// Compile needs no AWS clients; build the context without them.
		p := plugin.New(cfg, manifest, &aws.Clients{}, slog.Default())
		tmpl, err := p.WriteTemplate()
		if err != nil {
			return fail(err)
		}

		output.Success("Compiled %d permission resource(s) to %s", tmpl.Len(), cfg.TemplatePath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
}
