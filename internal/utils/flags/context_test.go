package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	testOriginRemoteConstant   = "origin"
	testUpstreamRemoteConstant = "upstream"
	testMirrorRemoteConstant   = "mirror"
)

func TestEnsureRemoteFlagRegistersOnce(testInstance *testing.T) {
	command := &cobra.Command{}

	EnsureRemoteFlag(command, testOriginRemoteConstant, RemoteFlagUsage)
	EnsureRemoteFlag(command, testUpstreamRemoteConstant, RemoteFlagUsage)

	remoteFlag := command.Flags().Lookup(RemoteFlagName)
	require.NotNil(testInstance, remoteFlag)
	require.Equal(testInstance, testOriginRemoteConstant, remoteFlag.DefValue)

	require.NoError(testInstance, command.ParseFlags([]string{"--" + RemoteFlagName, testMirrorRemoteConstant}))
	remoteValue, lookupError := command.Flags().GetString(RemoteFlagName)
	require.NoError(testInstance, lookupError)
	require.Equal(testInstance, testMirrorRemoteConstant, remoteValue)
}

func TestEnsureRemoteFlagFallsBackToOrigin(testInstance *testing.T) {
	command := &cobra.Command{}
	EnsureRemoteFlag(command, "  ", RemoteFlagUsage)
	require.Equal(testInstance, testOriginRemoteConstant, command.Flags().Lookup(RemoteFlagName).DefValue)

	EnsureRemoteFlag(nil, testOriginRemoteConstant, RemoteFlagUsage)
}

func TestBindExecutionFlagsParsesToggles(testInstance *testing.T) {
	testCases := []struct {
		name                   string
		arguments              []string
		expectedDryRun         bool
		expectedReuseWorkspace bool
	}{
		{name: "defaults", arguments: []string{}},
		{name: "shorthand_dry_run", arguments: []string{"-d"}, expectedDryRun: true},
		{name: "explicit_values", arguments: []string{"--dry-run", "yes", "--reuse-workspace", "on"}, expectedDryRun: true, expectedReuseWorkspace: true},
		{name: "explicit_no", arguments: []string{"--dry-run=no"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			command := &cobra.Command{}
			values := BindExecutionFlags(command, ExecutionDefaults{}, DefaultExecutionFlagDefinitions())

			require.NoError(testInstance, command.ParseFlags(NormalizeToggleArguments(testCase.arguments)))
			require.Equal(testInstance, testCase.expectedDryRun, values.DryRun)
			require.Equal(testInstance, testCase.expectedReuseWorkspace, values.ReuseWorkspace)
		})
	}
}

func TestBindExecutionFlagsSkipsDisabledDefinitions(testInstance *testing.T) {
	command := &cobra.Command{}
	values := BindExecutionFlags(command, ExecutionDefaults{ReuseWorkspace: true}, ExecutionFlagDefinitions{
		DryRun: ExecutionFlagDefinition{Name: DryRunFlagName, Enabled: true},
	})

	require.Nil(testInstance, command.Flags().Lookup(ReuseWorkspaceFlagName))
	require.NotNil(testInstance, command.Flags().Lookup(DryRunFlagName))
	require.True(testInstance, values.ReuseWorkspace)
}
