package cmd

import (
	"github.com/topicbind/topicbind/internal/constants"
	"github.com/topicbind/topicbind/internal/output"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version of the CLI",
	Run: func(cmd *cobra.Command, args []string) {
		output.Printf("%s %s\n", constants.ProjectName, *constants.GetVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
