package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/surveyloom-cli/internal/analysis"
	"github.com/KaramelBytes/surveyloom-cli/internal/dataset"
	"github.com/KaramelBytes/surveyloom-cli/internal/utils"
)

var (
	descFormat    string
	descOutputDir string
	descSheet     string
	descQuiet     bool
)

var describeCmd = &cobra.Command{
	Use:   "describe <files...>",
	Short: "Profile the columns of one or more survey exports",
	Long: `Describe reports each column's role (id, question, metadata), inferred kind
(likert, numeric, categorical, text, empty), missing values and basic statistics.
Globs are expanded; with --output-dir each profile is written to <name>.profile.<ext>.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		ext, err := profileExt(descFormat)
		if err != nil {
			return err
		}
		if descOutputDir != "" {
			if err := os.MkdirAll(descOutputDir, 0o755); err != nil {
				return err
			}
		}
		out := cmd.OutOrStdout()
		opt := loadOptions()
		opt.Sheet = descSheet
		total := len(files)
		for i, path := range files {
			if !descQuiet && total > 1 {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			ds, err := dataset.Load(path, opt)
			if err != nil {
				return err
			}
			body, err := renderProfile(analysis.Describe(ds), descFormat)
			if err != nil {
				return err
			}
			if descOutputDir == "" {
				if err := emit(out, body, "", ""); err != nil {
					return err
				}
				continue
			}
			target := uniquePath(descOutputDir, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), ".profile"+ext)
			if err := utils.SafeWriteFile(target, body); err != nil {
				return fmt.Errorf("write profile: %w", err)
			}
			if !descQuiet {
				fmt.Fprintf(out, "✓ Wrote profile to %s\n", target)
			}
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// uniquePath returns dir/base+suffix, adding __2, __3... when the name is taken.
func uniquePath(dir, base, suffix string) string {
	p := filepath.Join(dir, base+suffix)
	for idx := 2; ; idx++ {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
		p = filepath.Join(dir, fmt.Sprintf("%s__%d%s", base, idx, suffix))
	}
}

func profileExt(format string) (string, error) {
	switch strings.ToLower(format) {
	case "", "md", "markdown":
		return ".md", nil
	case "json":
		return ".json", nil
	case "yaml", "yml":
		return ".yaml", nil
	default:
		return "", fmt.Errorf("unsupported --format: %s (use md|json|yaml)", format)
	}
}

func renderProfile(p *analysis.Profile, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return utils.PrettyJSON(p)
	case "yaml", "yml":
		return analysis.YAML(p)
	default:
		return []byte(p.Markdown()), nil
	}
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVar(&descFormat, "format", "md", "output format: md|json|yaml")
	describeCmd.Flags().StringVar(&descOutputDir, "output-dir", "", "write one profile per input file into this directory")
	describeCmd.Flags().StringVar(&descSheet, "sheet", "", "XLSX: sheet name (default first sheet)")
	describeCmd.Flags().BoolVar(&descQuiet, "quiet", false, "suppress progress output")
}
