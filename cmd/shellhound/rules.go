package shellhound

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shellhound/shellhound/internal/match"
	"github.com/shellhound/shellhound/internal/report"
	"github.com/shellhound/shellhound/internal/rules"
)

var (
	fpOffset   int64
	fpLength   int64
	fpSeverity int32
	fpAppend   string
)

func init() {
	rulesCmd := &cobra.Command{Use: "rules", Short: "Inspect and author rule sets"}
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the fingerprints and patterns of the configured rule source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := loadRuleSet(cmd.Context())
			if err != nil {
				return err
			}
			return report.PrintRules(cmd.OutOrStdout(), set, report.PrintOptions{NoColor: flagNoColor || !isTTY(cmd.OutOrStdout())})
		},
	})

	rulesCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load the rule source and report patterns that do not compile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := loadRuleSet(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var zero int
			for _, fp := range set.Fingerprints() {
				if fp.Contribution() == 0 {
					zero++
				}
			}
			for _, p := range set.Patterns() {
				if p.Contribution() == 0 {
					zero++
				}
			}
			fmt.Fprintf(out, "%s: %d fingerprints, %d patterns\n", set.Source(), len(set.Fingerprints()), len(set.Patterns()))
			if zero > 0 {
				fmt.Fprintf(out, "%d rule(s) have severity <= 0 and never raise the warning level\n", zero)
			}
			bad := set.Invalid()
			for _, p := range bad {
				fmt.Fprintf(out, "invalid pattern %q: %v\n", p.Pattern, p.Err)
			}
			if len(bad) > 0 {
				return &failError{msg: fmt.Sprintf("%d pattern(s) do not compile", len(bad))}
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	})

	fpCmd := &cobra.Command{
		Use:   "fingerprint <file>",
		Short: "Print a fingerprint rule for a byte range of a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runFingerprint,
		Example: `
# Fingerprint a whole sample into its own file of a rules directory
shellhound rules fingerprint samples/c99.php --severity 8 > rules.d/c99.yml

# Add a rule for 64 bytes at offset 120 to an existing rule file
shellhound rules fingerprint samples/c99.php --offset 120 --length 64 --append rules.yml`,
	}
	fpCmd.Flags().Int64Var(&fpOffset, "offset", 0, "first byte of the range")
	fpCmd.Flags().Int64Var(&fpLength, "length", 0, "range length in bytes (0 = to end of file)")
	fpCmd.Flags().Int32Var(&fpSeverity, "severity", 1, "severity of the generated rule")
	fpCmd.Flags().StringVar(&fpAppend, "append", "", "add the rule to this YAML rule file instead of printing it (created if missing)")
	rulesCmd.AddCommand(fpCmd)
}

func loadRuleSet(ctx context.Context) (*rules.Set, error) {
	lf, err := loadConfigs("")
	if err != nil {
		return nil, err
	}
	store, err := rules.Open(ruleSource(flagRules, lf.local.Rules, lf.global.Rules))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rules.Close(store) }()
	return rules.Load(ctx, store)
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	size := int64(len(b))
	if fpOffset < 0 || fpOffset >= size {
		return fmt.Errorf("offset %d outside file of %d bytes", fpOffset, size)
	}
	// Compare against the remaining bytes; fpOffset+fpLength can overflow.
	if fpLength < 0 || fpLength > size-fpOffset {
		return fmt.Errorf("length %d at offset %d outside file of %d bytes", fpLength, fpOffset, size)
	}
	end := size
	if fpLength > 0 {
		end = fpOffset + fpLength
	}
	chunk := b[fpOffset:end]
	rule := rules.FingerprintRule{Digest: match.Digest(chunk), Length: uint32(len(chunk)), Severity: fpSeverity}

	if fpAppend != "" {
		return appendFingerprint(cmd, fpAppend, rule)
	}
	out, err := yaml.Marshal(rules.File{Fingerprints: []rules.FingerprintRule{rule}})
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// appendFingerprint merges rule into the rule file at path, keeping one
// fingerprints list. A rule with the same digest and length is not added twice.
func appendFingerprint(cmd *cobra.Command, path string, rule rules.FingerprintRule) error {
	f, err := rules.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	for _, fp := range f.Fingerprints {
		if fp.Digest == rule.Digest && fp.Length == rule.Length {
			fmt.Fprintf(cmd.OutOrStdout(), "%s already has %s\n", path, rule.Digest)
			return nil
		}
	}
	f.Fingerprints = append(f.Fingerprints, rule)
	if err := rules.WriteFile(path, f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s\n", rule.Digest, path)
	return nil
}
