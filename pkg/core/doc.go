// Package core provides a small, stable facade over shellhound's internal
// packages for programs that embed the detector. It re-exports a narrow API
// surface so callers depend on a stable import path.
//
// Example:
//
//	t, err := core.Run(ctx, core.Options{Root: "/var/www", RulesSource: "rules.yml"})
//	if err != nil { /* handle */ }
//	for _, e := range t.Dangers() { fmt.Println(e.Path, e.WarningLevel) }
package core
