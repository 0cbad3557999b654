// Package cmd implements the topicbind CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/topicbind/topicbind/internal/config"
	"github.com/topicbind/topicbind/internal/constants"
	"github.com/topicbind/topicbind/internal/logger"
	"github.com/topicbind/topicbind/internal/output"
	"github.com/topicbind/topicbind/internal/plugin"
	"github.com/topicbind/topicbind/internal/project"
	"github.com/topicbind/topicbind/internal/providers/aws"

	"github.com/spf13/cobra"
)

var (
	debug         bool
	manifestPath  string
	noDeploy      bool
	region        string
	service       string
	stage         string
	timeout       string
	timeoutCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   constants.ProjectName,
	Short: "Wire Lambda functions to externally-owned SNS topics",
	Long: fmt.Sprintf(`%s reconciles Lambda function subscriptions against SNS topics that are
owned outside the deployment: it compiles the invoke permissions the topics
need, subscribes functions after deploy, and unsubscribes them before remove.
Topics themselves are never created or deleted.`, constants.ProjectName),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}
		logger.Initialize(constants.CLI, logLevel)

		if timeout == "0" {
			return nil
		}

		timeoutDuration, err := parseTimeout(timeout)
		if err != nil {
			return fmt.Errorf("error parsing timeout: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
		timeoutCancel = cancel // Released in Execute()
		cmd.SetContext(ctx)
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if timeoutCancel != nil {
		timeoutCancel()
	}

	if err != nil {
		// Errors from fail() were already printed by the command.
		var printed *failure
		if !errors.As(err, &printed) {
			output.Error("%v", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "Path to the function manifest (default topicbind.yaml)")
	rootCmd.PersistentFlags().StringVar(&service, "service", "", "Service name (overrides manifest)")
	rootCmd.PersistentFlags().StringVar(&stage, "stage", "", "Deployment stage (default dev)")
	rootCmd.PersistentFlags().StringVar(&region, "region", "", "AWS region (default from environment)")
	rootCmd.PersistentFlags().BoolVar(&noDeploy, "no-deploy", false, "Log intended actions without any remote calls")
	rootCmd.PersistentFlags().StringVar(&timeout, "timeout", "20m", "Timeout for the whole run (e.g. 10m, 30s; 0 disables)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debugging logs")
}

// loadConfig loads configuration from the manifest file and environment,
// then overlays any flags the user set.
func loadConfig() (*config.Config, error) {
	path := manifestPath
	if path == "" {
		path = constants.DefaultManifestName
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Manifest = path

	if service != "" {
		cfg.Service = service
	}
	if stage != "" {
		cfg.Stage = stage
	}
	if region != "" {
		cfg.Region = region
	}
	if noDeploy {
		cfg.NoDeploy = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadPlugin assembles the full lifecycle context: config, manifest, and AWS
// clients.
func loadPlugin(ctx context.Context) (*plugin.Plugin, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	manifest, err := project.LoadManifest(cfg.Manifest)
	if err != nil {
		return nil, err
	}

	clients, err := aws.NewClients(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		cfg.Region = clients.Region
	}

	return plugin.New(cfg, manifest, clients, slog.Default()), nil
}

// parseTimeout parses a timeout string to time.Duration.
// Supports formats: "10m", "30s", "1h", "600" (number of seconds).
func parseTimeout(timeoutStr string) (time.Duration, error) {
	if timeoutStr == "" {
		timeoutStr = "20m"
	}

	duration, err := time.ParseDuration(timeoutStr)
	if err == nil {
		return duration, nil
	}

	seconds, err := strconv.Atoi(timeoutStr)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout format: %s (use duration like '10m' or '30s', or seconds like '600')", timeoutStr)
	}

	return time.Duration(seconds) * time.Second, nil
}

// failure is returned by commands after they have already printed the error.
type failure struct{ err error }

func (f *failure) Error() string { return f.err.Error() }

// fail prints the error and returns it so cobra exits non-zero.
func fail(err error) error {
	output.Error("%v", err)
	return &failure{err: err}
}
