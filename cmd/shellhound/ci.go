package shellhound

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ciTemplates = map[string]struct{ path, content string }{
	"github": {".github/workflows/shellhound.yml", `name: shellhound
on: [push, pull_request]
jobs:
  scan:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-go@v5
        with:
          go-version: '1.25'
      - run: go install github.com/shellhound/shellhound@latest
      - run: shellhound scan --sarif --no-log-file --fail-level 5 > shellhound.sarif
      - uses: github/codeql-action/upload-sarif@v3
        if: always()
        with:
          sarif_file: shellhound.sarif
`},
	"gitlab": {".gitlab-ci.yml", `stages: [scan]
shellhound:
  stage: scan
  image: golang:1.25
  script:
    - go install github.com/shellhound/shellhound@latest
    - shellhound scan --json --no-log-file --fail-level 5 | tee shellhound.json
  artifacts:
    when: always
    paths:
      - shellhound.json
`},
}

func init() {
	ci := &cobra.Command{Use: "ci", Short: "CI template helpers"}
	rootCmd.AddCommand(ci)

	var provider string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a CI pipeline template that scans on every push",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tpl, ok := ciTemplates[provider]
			if !ok {
				return fmt.Errorf("unknown --provider %q. Supported: github, gitlab", provider)
			}
			if !force {
				if _, err := os.Stat(tpl.path); err == nil {
					return fmt.Errorf("%s already exists (use --force)", tpl.path)
				}
			}
			if err := os.MkdirAll(filepath.Dir(tpl.path), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(tpl.path, []byte(tpl.content), 0644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", tpl.path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&provider, "provider", "github", "CI provider: github | gitlab")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing template")
	ci.AddCommand(initCmd)
}
