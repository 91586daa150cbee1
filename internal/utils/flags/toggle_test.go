package flags

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const (
	testToggleNameConstant      = "dry-run"
	testToggleShorthandConstant = "d"
	testToggleUsageConstant     = "Preview changes"
	testValueFlagConstant       = "--report"
	testValueConstant           = "sync.md"
)

func newToggleCommand(testInstance *testing.T, shorthand string) (*cobra.Command, *bool) {
	testInstance.Helper()
	command := &cobra.Command{}
	toggleTarget := new(bool)
	command.Flags().String("report", "", "")
	AddToggleFlag(command.Flags(), toggleTarget, testToggleNameConstant, shorthand, false, testToggleUsageConstant)
	return command, toggleTarget
}

func TestAddToggleFlagParsesValues(testInstance *testing.T) {
	testCases := []struct {
		name            string
		arguments       []string
		expectedValue   bool
		expectedChanged bool
	}{
		{name: "default_false", arguments: []string{}},
		{name: "implicit_true", arguments: []string{"--dry-run"}, expectedValue: true, expectedChanged: true},
		{name: "explicit_yes", arguments: []string{"--dry-run", "yes"}, expectedValue: true, expectedChanged: true},
		{name: "explicit_on_uppercase", arguments: []string{"--dry-run", "ON"}, expectedValue: true, expectedChanged: true},
		{name: "explicit_no", arguments: []string{"--dry-run", "no"}, expectedValue: false, expectedChanged: true},
		{name: "inline_zero", arguments: []string{"--dry-run=0"}, expectedValue: false, expectedChanged: true},
		{name: "shorthand_no", arguments: []string{"-d", "no"}, expectedValue: false, expectedChanged: true},
		{name: "followed_by_flag", arguments: []string{"--dry-run", testValueFlagConstant, testValueConstant}, expectedValue: true, expectedChanged: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			command, toggleTarget := newToggleCommand(testInstance, testToggleShorthandConstant)

			require.NoError(testInstance, command.ParseFlags(NormalizeToggleArguments(testCase.arguments)))
			require.Equal(testInstance, testCase.expectedValue, *toggleTarget)
			require.Equal(testInstance, testCase.expectedChanged, command.Flags().Lookup(testToggleNameConstant).Changed)
		})
	}
}

func TestAddToggleFlagRejectsInvalidValues(testInstance *testing.T) {
	command, toggleTarget := newToggleCommand(testInstance, "")

	require.Error(testInstance, command.ParseFlags(NormalizeToggleArguments([]string{"--dry-run", "maybe"})))
	require.False(testInstance, *toggleTarget)
	require.False(testInstance, command.Flags().Lookup(testToggleNameConstant).Changed)
}

func TestNormalizeToggleArguments(testInstance *testing.T) {
	_, _ = newToggleCommand(testInstance, testToggleShorthandConstant)

	testCases := []struct {
		name      string
		arguments []string
		expected  []string
	}{
		{name: "empty", arguments: nil, expected: nil},
		{name: "joins_long_value", arguments: []string{"sync", "--dry-run", "no"}, expected: []string{"sync", "--dry-run=no"}},
		{name: "joins_short_value", arguments: []string{"-d", "yes"}, expected: []string{"-d=yes"}},
		{name: "leaves_other_flags", arguments: []string{testValueFlagConstant, testValueConstant}, expected: []string{testValueFlagConstant, testValueConstant}},
		{name: "stops_at_terminator", arguments: []string{"--", "--dry-run", "no"}, expected: []string{"--", "--dry-run", "no"}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, NormalizeToggleArguments(testCase.arguments))
		})
	}
}

func TestToggleUsageShowsDefaultPlaceholder(testInstance *testing.T) {
	require.Equal(testInstance, "`<YES|no>` Reuse", toggleUsage(" Reuse ", true))
	require.Equal(testInstance, "`<yes|NO>`", toggleUsage("", false))
}
