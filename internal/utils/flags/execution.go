// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	DryRun         bool
	ReuseWorkspace bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	DryRun         ExecutionFlagDefinition
	ReuseWorkspace ExecutionFlagDefinition
}

// ExecutionFlagValues stores the parsed execution toggles.
type ExecutionFlagValues struct {
	DryRun         bool
	ReuseWorkspace bool
}

// DefaultExecutionFlagDefinitions enables the dry-run and workspace reuse toggles with their standard names.
func DefaultExecutionFlagDefinitions() ExecutionFlagDefinitions {
	return ExecutionFlagDefinitions{
		DryRun:         ExecutionFlagDefinition{Name: DryRunFlagName, Shorthand: DryRunFlagShorthand, Usage: DryRunFlagUsage, Enabled: true},
		ReuseWorkspace: ExecutionFlagDefinition{Name: ReuseWorkspaceFlagName, Usage: ReuseWorkspaceFlagUsage, Enabled: true},
	}
}

// BindExecutionFlags attaches standardized execution toggles to the provided command.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) *ExecutionFlagValues {
	values := &ExecutionFlagValues{DryRun: defaults.DryRun, ReuseWorkspace: defaults.ReuseWorkspace}
	if command == nil {
		return values
	}

	flagSet := command.Flags()
	bindToggleFlag(flagSet, &values.DryRun, definitions.DryRun, defaults.DryRun)
	bindToggleFlag(flagSet, &values.ReuseWorkspace, definitions.ReuseWorkspace, defaults.ReuseWorkspace)
	return values
}

func bindToggleFlag(flagSet *pflag.FlagSet, target *bool, definition ExecutionFlagDefinition, defaultValue bool) {
	if flagSet == nil {
		return
	}
	if !definition.Enabled {
		return
	}
	if len(definition.Name) == 0 {
		return
	}
	if flagSet.Lookup(definition.Name) != nil {
		return
	}

	AddToggleFlag(flagSet, target, definition.Name, definition.Shorthand, defaultValue, definition.Usage)
}
