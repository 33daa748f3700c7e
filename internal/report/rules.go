package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/shellhound/shellhound/internal/rules"
)

// PrintRules lists a rule set as two tables, fingerprints then patterns.
// Patterns that do not compile are marked invalid.
func PrintRules(w io.Writer, set *rules.Set, opts PrintOptions) error {
	fps, pats := set.Fingerprints(), set.Patterns()
	fmt.Fprintf(w, "Rules from %s: %d fingerprints, %d patterns\n", set.Source(), len(fps), len(pats))
	if len(fps) > 0 {
		fmt.Fprintln(w)
		table := tablewriter.NewWriter(w)
		table.Header("#", "Digest", "Length", "Severity")
		for i, fp := range fps {
			if err := table.Append([]string{
				strconv.Itoa(i + 1), fp.Digest,
				strconv.FormatUint(uint64(fp.Length), 10),
				strconv.Itoa(int(fp.Severity)),
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	if len(pats) > 0 {
		fmt.Fprintln(w)
		table := tablewriter.NewWriter(w)
		table.Header("#", "Pattern", "Severity", "State")
		for i, p := range pats {
			state := "ok"
			if p.Err != nil {
				state = "invalid"
				if !opts.NoColor {
					state = errorStyle.Render(state)
				}
			}
			if err := table.Append([]string{
				strconv.Itoa(i + 1), p.Pattern, strconv.Itoa(int(p.Severity)), state,
			}); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	return nil
}
