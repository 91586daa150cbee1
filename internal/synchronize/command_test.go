package synchronize_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/subsync/internal/report"
	"github.com/temirov/subsync/internal/repository"
	"github.com/temirov/subsync/internal/repository/repositorytest"
	"github.com/temirov/subsync/internal/synchronize"
)

const (
	testReportPathConstant     = "/reports/sync.md"
	testYAMLReportPathConstant = "/reports/sync.yaml"
	testRunIdentifierConstant  = "run-1"
	testReportWrittenConstant  = "Report written to "
	testRunWorkspaceConstant   = "/tmp/subsync-run-1-1"
)

type commandHarness struct {
	fixture    *synchronizationFixture
	opener     *repositorytest.Opener
	fileSystem *memoryFileSystem
	output     *bytes.Buffer
	builder    synchronize.CommandBuilder
}

func newCommandHarness(configuration synchronize.CommandConfiguration) *commandHarness {
	fixture := newSynchronizationFixture()
	opener := repositorytest.NewOpener()
	opener.Register(fixture.parent)
	fileSystem := newMemoryFileSystem()

	return &commandHarness{
		fixture:    fixture,
		opener:     opener,
		fileSystem: fileSystem,
		output:     &bytes.Buffer{},
		builder: synchronize.CommandBuilder{
			LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
			ConfigurationProvider: func() synchronize.CommandConfiguration { return configuration },
			Opener:                opener,
			FileSystem:            fileSystem,
			Clock:                 fixedClock{now: testNow},
			RunIdentifierProvider: func() string { return testRunIdentifierConstant },
		},
	}
}

func (harness *commandHarness) execute(testInstance *testing.T, arguments ...string) error {
	testInstance.Helper()
	command, buildError := harness.builder.Build()
	require.NoError(testInstance, buildError)
	command.SetOut(harness.output)
	command.SetErr(harness.output)
	command.SetArgs(arguments)
	return command.Execute()
}

func configuredIdentity() synchronize.CommandConfiguration {
	configuration := synchronize.DefaultCommandConfiguration()
	configuration.CommitterName = testDefaultIdentity.Name
	configuration.CommitterEmail = testDefaultIdentity.Email
	return configuration
}

func TestCommandBuilderRegistersFlags(testInstance *testing.T) {
	builder := synchronize.CommandBuilder{}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.Equal(testInstance, "sync", command.Use)

	testCases := []struct {
		name      string
		shorthand string
	}{
		{name: "url", shorthand: "g"},
		{name: "folder", shorthand: "f"},
		{name: "user", shorthand: "u"},
		{name: "password", shorthand: "p"},
		{name: "committer-name", shorthand: "c"},
		{name: "committer-email", shorthand: "e"},
		{name: "report", shorthand: "r"},
		{name: "report-format"},
		{name: "inactivity-threshold", shorthand: "i"},
		{name: "default-branch"},
		{name: "dry-run", shorthand: "d"},
		{name: "reuse-workspace"},
		{name: "remote"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			flag := command.Flags().Lookup(testCase.name)
			require.NotNil(testInstance, flag)
			require.Equal(testInstance, testCase.shorthand, flag.Shorthand)
		})
	}

	require.Equal(testInstance, "90", command.Flags().Lookup("inactivity-threshold").DefValue)
	require.Equal(testInstance, "syncReport.md", command.Flags().Lookup("report").DefValue)
}

func TestCommandSynchronizesAndWritesReport(testInstance *testing.T) {
	harness := newCommandHarness(configuredIdentity())

	executionError := harness.execute(testInstance, "--url", testParentURLConstant, "--report", testReportPathConstant)
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, []string{testReportPathConstant}, harness.fileSystem.writtenPaths())
	renderedReport := string(harness.fileSystem.files[testReportPathConstant])
	require.Contains(testInstance, renderedReport, testFeatureXBranchConstant)
	require.Contains(testInstance, renderedReport, testStaleBranchConstant)

	require.Equal(testInstance, []string{testFeatureXBranchConstant, testFeatureYBranchConstant, testDefaultBranchConstant}, harness.fixture.parent.RemoteBranchNames())
	require.Equal(testInstance, []string{testRunWorkspaceConstant}, harness.opener.Clones)
	require.Equal(testInstance, []string{testRunWorkspaceConstant}, harness.fileSystem.removed)
	require.Contains(testInstance, harness.output.String(), testReportWrittenConstant+testReportPathConstant)
}

func TestCommandFlagsOverrideConfiguration(testInstance *testing.T) {
	configuration := synchronize.DefaultCommandConfiguration()
	configuration.URL = testUnregisteredURLConstant
	configuration.Report = testReportPathConstant
	harness := newCommandHarness(configuration)

	executionError := harness.execute(
		testInstance,
		"--url", testParentURLConstant,
		"--report", testYAMLReportPathConstant,
		"--report-format", "yaml",
		"--dry-run",
	)
	require.NoError(testInstance, executionError)

	require.Equal(testInstance, []string{testYAMLReportPathConstant}, harness.fileSystem.writtenPaths())
	document, parseError := report.ParseYAML(harness.fileSystem.files[testYAMLReportPathConstant])
	require.NoError(testInstance, parseError)
	require.True(testInstance, document.DryRun)
	require.Equal(testInstance, []string{testStaleBranchConstant}, document.Reconciliation.Deletions)
	require.Len(testInstance, document.Branches, 3)

	require.Empty(testInstance, harness.fixture.parent.Pushes)
	require.Empty(testInstance, harness.fixture.parent.CreatedCommit)
}

func TestCommandFailures(testInstance *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		prepare       func(harness *commandHarness)
		expectedError error
		expectedKind  repository.ErrorKind
	}{
		{
			name:          "missing_url",
			arguments:     []string{},
			prepare:       func(*commandHarness) {},
			expectedError: synchronize.ErrURLRequired,
		},
		{
			name:      "partial_identity",
			arguments: []string{"--url", testParentURLConstant, "--committer-name", "Sync Bot"},
			prepare: func(harness *commandHarness) {
				harness.builder.ConfigurationProvider = synchronize.DefaultCommandConfiguration
			},
			expectedError: synchronize.ErrPartialIdentity,
		},
		{
			name:      "report_write",
			arguments: []string{"--url", testParentURLConstant},
			prepare: func(harness *commandHarness) {
				harness.fileSystem.writeError = errInjectedFailure
			},
			expectedError: errInjectedFailure,
			expectedKind:  repository.ErrorKindIOFailure,
		},
		{
			name:      "rejected_push",
			arguments: []string{"--url", testParentURLConstant},
			prepare: func(harness *commandHarness) {
				harness.fixture.parent.FailOperation(repositorytest.OperationPush, repository.NewOperationError(repository.ErrorKindPushRejected, "push", repository.ErrPushRejected))
			},
			expectedError: repository.ErrPushRejected,
			expectedKind:  repository.ErrorKindPushRejected,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			harness := newCommandHarness(configuredIdentity())
			testCase.prepare(harness)

			executionError := harness.execute(testInstance, testCase.arguments...)
			require.ErrorIs(testInstance, executionError, testCase.expectedError)
			if len(testCase.expectedKind) > 0 {
				kind, classified := repository.KindOf(executionError)
				require.True(testInstance, classified)
				require.Equal(testInstance, testCase.expectedKind, kind)
			}
			require.False(testInstance, strings.Contains(harness.output.String(), testReportWrittenConstant))
		})
	}
}
