// Package config loads shellhound configuration from local and global YAML
// files. CLI code merges flags over the local file over the global file.
package config
