package shellhound

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// gendocs writes the CLI reference as markdown pages or man pages.
func init() {
	var dir, format string
	cmd := &cobra.Command{
		Use:    "gendocs",
		Short:  "Generate CLI reference documentation",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			root := cmd.Root()
			root.DisableAutoGenTag = true
			switch format {
			case "markdown", "md":
				if err := doc.GenMarkdownTree(root, dir); err != nil {
					return err
				}
			case "man":
				header := &doc.GenManHeader{Title: "SHELLHOUND", Section: "1"}
				if err := doc.GenManTree(root, header, dir); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown --format %q (want markdown|man)", format)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", format, "docs to", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "docs/cli", "output directory")
	cmd.Flags().StringVar(&format, "format", "markdown", "markdown | man")
	rootCmd.AddCommand(cmd)
}
