package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-esym/internal/log"
	"github.com/l3aro/go-esym/pkg/transform"
)

// transformCmd represents the transform command
var transformCmd = &cobra.Command{
	Use:   "transform <file>",
	Short: "Transform a single file",
	Long: `Transforms one ES module and prints the resulting ym module.
The module name is derived from the file path relative to the working directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		wd, err := workingDir()
		if err != nil {
			return err
		}

		rel, err := relativePath(wd, args[0])
		if err != nil {
			return err
		}
		content, err := os.ReadFile(filepath.Join(wd, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		res, err := transform.New(cfg.TransformOptions(wd)).TransformSource(rel, content)
		if err != nil {
			return err
		}
		log.Default().Debug("transformed", "file", rel, "module", res.Metadata.ModuleName,
			"dependencies", len(res.Metadata.Imports))

		out := res.Code
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling result: %w", err)
			}
			out = string(data) + "\n"
		}

		if outPath, _ := cmd.Flags().GetString("out"); outPath != "" {
			if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
			if err := os.WriteFile(outPath, []byte(out), 0644); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			return nil
		}

		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	transformCmd.Flags().BoolP("json", "j", false, "Output code and metadata as JSON")
	transformCmd.Flags().StringP("out", "o", "", "Write output to a file instead of stdout")
}

// relativePath returns path relative to wd, slash separated. Paths outside
// wd are rejected since module names cannot be derived for them.
func relativePath(wd, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(wd, path)
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil {
		return "", fmt.Errorf("relativizing %s: %w", path, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside the working directory %s", path, wd)
	}
	return rel, nil
}
