// Package engine contains the core scanning logic for shellhound. It
// enumerates candidate files, applies a scan mode to each of them and
// finalizes their entries. This package is internal; external consumers
// should use the stable facade in pkg/core.
package engine
