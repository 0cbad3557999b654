// Package constants defines global constants used throughout topicbind.
// It includes version information, naming conventions, and defaults.
package constants

var version = "0.0.0-development" // Updated by CI/CD pipeline at build time

// GetVersion returns the current version of topicbind.
func GetVersion() *string {
	return &version
}

// ProjectName is the name of the CLI tool and application
const ProjectName = "topicbind"

// DefaultManifestName is the function manifest read from the working directory
// when no --manifest flag is given.
const DefaultManifestName = "topicbind.yaml"

// DefaultTemplateName is the compiled permission template written by the
// compile hook when no output path is configured.
const DefaultTemplateName = "topicbind-permissions.json"

// DefaultStage is used when no deployment stage is configured.
const DefaultStage = "dev"
