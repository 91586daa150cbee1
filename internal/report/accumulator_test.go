package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/temirov/subsync/internal/report"
)

const (
	testParentBranchMainConstant    = "main"
	testParentBranchFeatureConstant = "feature-x"
	testSubmoduleCoreConstant       = "core"
	testSubmoduleDocsConstant       = "docs"
	testStaleBranchConstant         = "old"
)

func sampleAccumulator(dryRun bool) *report.Accumulator {
	accumulator := report.NewAccumulator(dryRun)
	accumulator.RecordReconciliation(report.Reconciliation{
		Deletions: []string{testStaleBranchConstant},
		Creations: []string{testParentBranchFeatureConstant},
	})
	accumulator.RecordBranch(report.BranchReport{
		Branch: testParentBranchFeatureConstant,
		Rows: []report.ModuleRow{
			{Submodule: testSubmoduleCoreConstant, TrackedBranch: testParentBranchFeatureConstant, Updated: true},
			{Submodule: testSubmoduleDocsConstant, TrackedBranch: testParentBranchMainConstant, Updated: false},
		},
		Pushed: !dryRun,
	})
	accumulator.RecordBranch(report.BranchReport{
		Branch: testParentBranchMainConstant,
		Rows: []report.ModuleRow{
			{Submodule: testSubmoduleCoreConstant, TrackedBranch: testParentBranchMainConstant},
			{Submodule: testSubmoduleDocsConstant, TrackedBranch: testParentBranchMainConstant},
		},
		Pushed: !dryRun,
	})
	return accumulator
}

func TestParseFormat(testInstance *testing.T) {
	testCases := []struct {
		name           string
		input          string
		expectedFormat report.Format
		expectError    bool
	}{
		{name: "Markdown", input: "markdown", expectedFormat: report.FormatMarkdown},
		{name: "UppercaseYAML", input: " YAML ", expectedFormat: report.FormatYAML},
		{name: "Empty", input: "", expectError: true},
		{name: "Unsupported", input: "html", expectError: true},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			format, parseError := report.ParseFormat(testCase.input)
			if testCase.expectError {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedFormat, format)
		})
	}
}

func TestRenderMarkdownListsBranchTables(testInstance *testing.T) {
	rendered, renderError := sampleAccumulator(false).Render(report.FormatMarkdown)
	require.NoError(testInstance, renderError)

	content := string(rendered)
	require.Contains(testInstance, content, "**Branch feature-x**")
	require.Contains(testInstance, content, "**Branch main**")
	require.Contains(testInstance, content, "| Module | Branch |")
	require.Contains(testInstance, content, "| core | 🔄 feature-x |")
	require.Contains(testInstance, content, "| docs | main |")
	require.Contains(testInstance, content, "| delete | old |")
	require.Contains(testInstance, content, "| create | feature-x |")
	require.NotContains(testInstance, content, "Dry run")
	require.NotContains(testInstance, content, "would update")
	require.Less(testInstance, strings.Index(content, "**Branch feature-x**"), strings.Index(content, "**Branch main**"))
}

func TestRenderMarkdownMarksDryRun(testInstance *testing.T) {
	rendered, renderError := sampleAccumulator(true).Render(report.FormatMarkdown)
	require.NoError(testInstance, renderError)
	content := string(rendered)
	require.True(testInstance, strings.HasPrefix(content, "_Dry run"))
	require.Contains(testInstance, content, "| core | 🔄 feature-x (would update) |")
	require.Contains(testInstance, content, "| docs | main |")
	require.NotContains(testInstance, content, "| core | 🔄 feature-x |")
}

func TestRenderMarkdownEmptyAccumulator(testInstance *testing.T) {
	rendered, renderError := report.NewAccumulator(false).Render(report.FormatMarkdown)
	require.NoError(testInstance, renderError)
	require.Empty(testInstance, rendered)
}

func TestRenderYAMLPreservesStructure(testInstance *testing.T) {
	accumulator := sampleAccumulator(false)
	rendered, renderError := accumulator.Render(report.FormatYAML)
	require.NoError(testInstance, renderError)
	require.Contains(testInstance, string(rendered), "tracked_branch: feature-x")

	parsed, parseError := report.ParseYAML(rendered)
	require.NoError(testInstance, parseError)
	if difference := cmp.Diff(accumulator.Snapshot(), parsed); len(difference) > 0 {
		testInstance.Fatalf("unexpected YAML document (-want +got):\n%s", difference)
	}
}

func TestRenderRejectsUnknownFormat(testInstance *testing.T) {
	_, renderError := sampleAccumulator(false).Render(report.Format("html"))
	require.Error(testInstance, renderError)
}

func TestSnapshotIsIsolatedFromLaterChanges(testInstance *testing.T) {
	accumulator := report.NewAccumulator(false)
	rows := []report.ModuleRow{{Submodule: testSubmoduleCoreConstant, TrackedBranch: testParentBranchMainConstant}}
	accumulator.RecordBranch(report.BranchReport{Branch: testParentBranchMainConstant, Rows: rows})
	rows[0].TrackedBranch = testParentBranchFeatureConstant

	snapshot := accumulator.Snapshot()
	require.Equal(testInstance, testParentBranchMainConstant, snapshot.Branches[0].Rows[0].TrackedBranch)
}

func TestWriteSummaryRendersTree(testInstance *testing.T) {
	var output bytes.Buffer
	require.NoError(testInstance, sampleAccumulator(true).WriteSummary(&output, false))

	summary := output.String()
	require.Contains(testInstance, summary, "subsync (dry run): 2 branches")
	require.Contains(testInstance, summary, "reconciliation")
	require.Contains(testInstance, summary, "deleted old")
	require.Contains(testInstance, summary, "created feature-x")
	require.Contains(testInstance, summary, "feature-x (1 updated)")
	require.Contains(testInstance, summary, "🔄 core -> feature-x (would update)")
	require.Contains(testInstance, summary, "docs -> main")
	require.NotContains(testInstance, summary, "\x1b[")
}

func TestWriteSummaryColorizes(testInstance *testing.T) {
	var output bytes.Buffer
	require.NoError(testInstance, sampleAccumulator(false).WriteSummary(&output, true))
	require.Contains(testInstance, output.String(), "\x1b[")
}
