package report

import (
	"fmt"
	"io"

	"github.com/TwiN/go-color"
	"github.com/xlab/treeprint"
)

const (
	summaryRootTemplateConstant        = "subsync: %d branches"
	summaryDryRunRootTemplateConstant  = "subsync (dry run): %d branches"
	summaryBranchTemplateConstant      = "%s (%d updated)"
	summaryRowTemplateConstant         = "%s -> %s"
	summaryDeletedNodeTemplateConstant = "deleted %s"
	summaryCreatedNodeTemplateConstant = "created %s"
	summaryReconciliationNodeConstant  = "reconciliation"
)

// WriteSummary prints a tree of branches and submodule rows; colorize enables ANSI highlighting.
func (accumulator *Accumulator) WriteSummary(writer io.Writer, colorize bool) error {
	document := accumulator.Snapshot()

	rootTemplate := summaryRootTemplateConstant
	if document.DryRun {
		rootTemplate = summaryDryRunRootTemplateConstant
	}
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf(rootTemplate, len(document.Branches)))

	if !document.Reconciliation.IsEmpty() {
		reconciliationNode := tree.AddBranch(summaryReconciliationNodeConstant)
		for _, branchName := range document.Reconciliation.Deletions {
			reconciliationNode.AddNode(paint(colorize, color.Red, fmt.Sprintf(summaryDeletedNodeTemplateConstant, branchName)))
		}
		for _, branchName := range document.Reconciliation.Creations {
			reconciliationNode.AddNode(paint(colorize, color.Green, fmt.Sprintf(summaryCreatedNodeTemplateConstant, branchName)))
		}
	}

	for _, branchReport := range document.Branches {
		branchNode := tree.AddBranch(paint(colorize, color.Cyan, fmt.Sprintf(summaryBranchTemplateConstant, branchReport.Branch, branchReport.UpdatedCount())))
		for _, row := range branchReport.Rows {
			rowValue := fmt.Sprintf(summaryRowTemplateConstant, row.Submodule, row.TrackedBranch)
			if row.Updated {
				rowValue = paint(colorize, color.Yellow, markUpdated(rowValue, document.DryRun))
			}
			branchNode.AddNode(rowValue)
		}
	}

	_, writeError := io.WriteString(writer, tree.String())
	return writeError
}

func paint(colorize bool, colorCode string, value string) string {
	if !colorize {
		return value
	}
	return color.Ize(colorCode, value)
}
