package shellhound

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shellhound/shellhound/internal/ignore"
)

func init() {
	var suggest bool
	cmd := &cobra.Command{
		Use:   "ignore [pattern...]",
		Short: "Add root-relative patterns to " + ignore.FileName + " in the working directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if suggest {
				for _, p := range ignore.CommonUploadDirs() {
					fmt.Fprintln(out, p)
				}
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("no pattern given")
			}
			path := flagIgnore
			if path == "" {
				path = ignore.FileName
			}
			for _, p := range args {
				added, err := ignore.Append(path, p)
				if err != nil {
					return err
				}
				if added {
					fmt.Fprintf(out, "Added %s to %s\n", p, path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&suggest, "suggest", false, "print commonly ignored directories")
	rootCmd.AddCommand(cmd)
}
