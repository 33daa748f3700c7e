// Package shellhound provides the command-line interface for the shellhound
// web shell detector. It configures subcommands (scan, rules, config, ...),
// parses flags, and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/shellhound/shellhound/cmd/shellhound"
//	func main() { shellhound.Execute() }
package shellhound
