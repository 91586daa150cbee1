// Package gitcli implements the repository capabilities by invoking the git
// command-line client through the shell executor.
package gitcli
