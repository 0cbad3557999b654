// Package config manages configuration for the topicbind CLI.
// It uses Viper for unified configuration management from files, flags, and
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/topicbind/topicbind/internal/constants"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config carries the externally supplied inputs for a reconciliation run.
// Values come from topicbind.yaml alongside the manifest, from TOPICBIND_*
// environment variables, or from command flags; flags win.
type Config struct {
	// Service is the deployment's service name; combined with Stage it forms
	// the API gateway naming convention used by the endpoint resolver.
	Service string `mapstructure:"service" validate:"required"`
	// Stage is the deployment stage (dev, staging, prod, ...).
	Stage string `mapstructure:"stage" validate:"required"`
	// Region is the AWS region functions and topics live in. Optional: the
	// resolver derives the effective region from the function ARN.
	Region string `mapstructure:"region"`
	// Manifest is the path to the function manifest.
	Manifest string `mapstructure:"manifest"`
	// TemplatePath is where the compile hook writes the permission template.
	TemplatePath string `mapstructure:"template_path"`
	// NoDeploy makes every mutating action log and return without remote calls.
	NoDeploy bool `mapstructure:"no_deploy"`
	// LogLevel is the slog level name (DEBUG, INFO, WARN, ERROR).
	LogLevel string `mapstructure:"log_level"`
	// Concurrency bounds how many functions are reconciled at once.
	Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=32"`
}

var validate = validator.New()

// Load loads the configuration using Viper. Environment variables take
// precedence over config file values; callers overlay flag values afterwards.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("error loading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(strings.ToUpper(constants.ProjectName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration after flag overlay.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// StackName returns the CloudFormation stack the compiled permission template
// is applied as. Deterministic per (service, stage).
func (c *Config) StackName() string {
	return fmt.Sprintf("%s-%s-%s-permissions", c.Service, c.Stage, constants.ProjectName)
}

// GatewayName returns the deployed API gateway name the endpoint resolver
// looks for, following the "{stage}-{service}" convention.
func (c *Config) GatewayName() string {
	return fmt.Sprintf("%s-%s", c.Stage, c.Service)
}

// GetLogLevel returns the slog.Level from the string configuration.
// Defaults to INFO if the level string is invalid.
func (c *Config) GetLogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Helper functions

func setDefaults(v *viper.Viper) {
	v.SetDefault("stage", constants.DefaultStage)
	v.SetDefault("manifest", constants.DefaultManifestName)
	v.SetDefault("template_path", constants.DefaultTemplateName)
	v.SetDefault("log_level", "INFO")
	v.SetDefault("concurrency", 4)
	v.SetDefault("no_deploy", false)
}

func bindEnvVars(v *viper.Viper) {
	// Bind all environment variables explicitly
	envVars := []string{
		"SERVICE",
		"STAGE",
		"REGION",
		"MANIFEST",
		"TEMPLATE_PATH",
		"NO_DEPLOY",
		"LOG_LEVEL",
		"CONCURRENCY",
	}

	prefix := strings.ToUpper(constants.ProjectName)
	for _, envVar := range envVars {
		configKey := strings.ToLower(envVar)
		_ = v.BindEnv(configKey, prefix+"_"+envVar)
	}
}
