package commands

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-esym/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a project configuration interactively",
	Long: `Guides you through setting up esym for the current project and writes
the answers to ./.esym/config.yaml (or ~/.esym/config.yaml with --global).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		global, _ := cmd.Flags().GetBool("global")
		yes, _ := cmd.Flags().GetBool("yes")

		configPath := config.ProjectConfigFilePath()
		if global {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("getting home directory: %w", err)
			}
			configPath = filepath.Join(home, ".esym", "config.yaml")
		}

		cfg := config.DefaultConfig()
		if !yes {
			proceed, err := runInitForm(cfg, configPath)
			if err != nil {
				return err
			}
			if !proceed {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
		}

		return saveInitConfig(cmd.OutOrStdout(), cfg, configPath)
	},
}

func init() {
	initCmd.Flags().Bool("global", false, "Write the global configuration instead")
	initCmd.Flags().BoolP("yes", "y", false, "Write the defaults without prompting")
}

func runInitForm(cfg *config.Config, configPath string) (bool, error) {
	var mappings string
	workers := strconv.Itoa(cfg.Workers)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Source directory").
				Description("Module names are derived from paths below this directory").
				Placeholder(cfg.SourceDir).
				Value(&cfg.SourceDir),
			huh.NewInput().
				Title("Source extension").
				Placeholder(cfg.SourceExtension).
				Value(&cfg.SourceExtension).
				Validate(func(s string) error {
					if !strings.HasPrefix(s, ".") {
						return fmt.Errorf("extension must start with a dot")
					}
					return nil
				}),
			huh.NewInput().
				Title("Module base (optional)").
				Description("Prefix added to every module name, e.g. \"app\"").
				Value(&cfg.ModuleBase),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Source mappings (optional)").
				Description("Comma separated alias=prefix pairs, e.g. \"@lib/=vendor.lib\"").
				Value(&mappings).
				Validate(func(s string) error {
					_, err := parseMappings(s)
					return err
				}),
			huh.NewInput().
				Title("ym global").
				Description("Identifier the registration call is made on").
				Placeholder(cfg.YmGlobal).
				Value(&cfg.YmGlobal),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Output directory").
				Placeholder(cfg.OutDir).
				Value(&cfg.OutDir),
			huh.NewInput().
				Title("Workers").
				Value(&workers).
				Validate(func(s string) error {
					if n, err := strconv.Atoi(s); err != nil || n <= 0 {
						return fmt.Errorf("workers must be a positive number")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("interactive prompt failed: %w", err)
	}

	cfg.SourceMappings, _ = parseMappings(mappings)
	cfg.Workers, _ = strconv.Atoi(workers)

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return false, fmt.Errorf("interactive prompt failed: %w", err)
		}
		return overwrite, nil
	}

	return true, nil
}

func saveInitConfig(out io.Writer, cfg *config.Config, configPath string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Fprintln(out, "=== Configuration Preview ===")
	fmt.Fprintf(out, "Config path: %s\n", configPath)
	fmt.Fprintf(out, "Source: %s (*%s)\n", cfg.SourceDir, cfg.SourceExtension)
	if cfg.ModuleBase != "" {
		fmt.Fprintf(out, "Module base: %s\n", cfg.ModuleBase)
	}
	for _, alias := range slices.Sorted(maps.Keys(cfg.SourceMappings)) {
		fmt.Fprintf(out, "Mapping: %s -> %s\n", alias, cfg.SourceMappings[alias])
	}
	fmt.Fprintf(out, "Registration: %s.modules.define\n", cfg.YmGlobal)
	fmt.Fprintf(out, "Output: %s\n", cfg.OutDir)
	fmt.Fprintln(out, "=============================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "Configuration saved to: %s\n", configPath)
	return nil
}

// parseMappings parses "alias=prefix" pairs separated by commas. An empty
// prefix maps the alias to the root namespace.
func parseMappings(s string) (map[string]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	mappings := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		alias, prefix, ok := strings.Cut(strings.TrimSpace(pair), "=")
		alias = strings.TrimSpace(alias)
		if !ok || alias == "" {
			return nil, fmt.Errorf("invalid mapping %q, want alias=prefix", pair)
		}
		mappings[alias] = strings.TrimSpace(prefix)
	}
	return mappings, nil
}
