package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-esym/internal/config"
	"github.com/l3aro/go-esym/internal/log"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "esym",
	Short: "esym - ES modules to ym modules",
	Long: `esym rewrites ES module files into ym.modules.define registrations.

Commands:
  transform   Transform a single file
  build       Transform every source file into the output directory
  name        Print module names and resolved imports
  watch       Rebuild files as they change
  init        Create a project configuration interactively

Use "esym [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		jsonLog, _ := cmd.Flags().GetBool("json-log")
		log.Setup(verbose).SetJSONOutput(jsonLog)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringP("config", "c", "", "Config file path (default: ~/.esym and ./.esym config.yaml)")
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging")
	RootCmd.PersistentFlags().Bool("json-log", false, "Log as JSON")

	RootCmd.AddCommand(transformCmd)
	RootCmd.AddCommand(buildCmd)
	RootCmd.AddCommand(nameCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(initCmd)
}

// loadConfig loads the file given with --config, or the layered default
// configuration. --verbose overrides the configured verbosity.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}
	if cfg.Verbose {
		log.Default().SetLevel(log.DebugLevel)
	}
	return cfg, nil
}

// workingDir is the project root used to resolve absolute paths.
func workingDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return wd, nil
}
