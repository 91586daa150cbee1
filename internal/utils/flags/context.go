package flags

import (
	"strings"

	"github.com/spf13/cobra"
)

// Shared flag names and usage strings for the sync command.
const (
	DryRunFlagName          = "dry-run"
	DryRunFlagShorthand     = "d"
	DryRunFlagUsage         = "Preview branch and submodule changes without committing or pushing"
	ReuseWorkspaceFlagName  = "reuse-workspace"
	ReuseWorkspaceFlagUsage = "Pull an existing clone in the workspace folder instead of cloning again"
	RemoteFlagName          = "remote"
	RemoteFlagUsage         = "Remote name to target"
	fallbackRemoteConstant  = "origin"
)

// EnsureRemoteFlag registers the persistent --remote flag once and exposes it on the command's own flag set.
// A blank default falls back to origin.
func EnsureRemoteFlag(command *cobra.Command, defaultValue string, usage string) {
	if command == nil {
		return
	}

	remoteDefault := strings.TrimSpace(defaultValue)
	if len(remoteDefault) == 0 {
		remoteDefault = fallbackRemoteConstant
	}

	persistentFlags := command.PersistentFlags()
	remoteFlag := persistentFlags.Lookup(RemoteFlagName)
	if remoteFlag == nil {
		persistentFlags.String(RemoteFlagName, remoteDefault, usage)
		remoteFlag = persistentFlags.Lookup(RemoteFlagName)
	}
	if command.Flags().Lookup(RemoteFlagName) == nil {
		command.Flags().AddFlag(remoteFlag)
	}
}
