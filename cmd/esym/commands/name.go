package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-esym/pkg/modname"
)

// nameCmd represents the name command
var nameCmd = &cobra.Command{
	Use:   "name [file...]",
	Short: "Print module names and resolved imports",
	Long: `Prints the module name of every given file.

With --import, resolves an import specifier as written in the file given
with --from and prints the dependency name it maps to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		wd, err := workingDir()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if spec, _ := cmd.Flags().GetString("import"); spec != "" {
			from, _ := cmd.Flags().GetString("from")
			if from == "" {
				return fmt.Errorf("--import requires --from")
			}
			importer, err := relativePath(wd, from)
			if err != nil {
				return err
			}

			name, err := modname.NormalizeImport(spec, importer, modname.ResolveOptions{
				Options:        cfg.NamingOptions(),
				SourceMappings: cfg.SourceMappings,
				WorkingDir:     wd,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, name)
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("no files given")
		}
		for _, arg := range args {
			rel, err := relativePath(wd, arg)
			if err != nil {
				return err
			}
			name, err := modname.Generate(rel, cfg.NamingOptions())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				fmt.Fprintln(out, name)
			} else {
				fmt.Fprintf(out, "%s\t%s\n", rel, name)
			}
		}
		return nil
	},
}

func init() {
	nameCmd.Flags().String("import", "", "Import specifier to resolve")
	nameCmd.Flags().String("from", "", "File containing the import")
}
