package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	branchHeadingTemplateConstant      = "**Branch %s**"
	reconciliationHeadingConstant      = "**Reconciliation**"
	dryRunNoticeConstant               = "_Dry run: no commits or pushes were made._"
	moduleColumnTitleConstant          = "Module"
	branchColumnTitleConstant          = "Branch"
	actionColumnTitleConstant          = "Action"
	updatedMarkerConstant              = "🔄"
	updatedCellTemplateConstant        = "%s %s"
	pendingUpdateSuffixConstant        = " (would update)"
	deleteActionConstant               = "delete"
	createActionConstant               = "create"
	markdownParagraphSeparatorConstant = "\n\n"
)

func renderMarkdown(document Document) string {
	sections := []string{}
	if document.DryRun {
		sections = append(sections, dryRunNoticeConstant)
	}
	if !document.Reconciliation.IsEmpty() {
		sections = append(sections, reconciliationHeadingConstant, renderReconciliationTable(document.Reconciliation))
	}
	for _, branchReport := range document.Branches {
		sections = append(sections, fmt.Sprintf(branchHeadingTemplateConstant, branchReport.Branch), renderModuleTable(branchReport, document.DryRun))
	}
	if len(sections) == 0 {
		return ""
	}
	return strings.Join(sections, markdownParagraphSeparatorConstant) + "\n"
}

// renderModuleTable marks updated rows; in a dry run the marker reads as a pending update.
func renderModuleTable(branchReport BranchReport, dryRun bool) string {
	tableWriter := table.NewWriter()
	tableWriter.AppendHeader(table.Row{moduleColumnTitleConstant, branchColumnTitleConstant})
	for _, row := range branchReport.Rows {
		trackedCell := row.TrackedBranch
		if row.Updated {
			trackedCell = markUpdated(row.TrackedBranch, dryRun)
		}
		tableWriter.AppendRow(table.Row{row.Submodule, trackedCell})
	}
	return tableWriter.RenderMarkdown()
}

func markUpdated(value string, dryRun bool) string {
	marked := fmt.Sprintf(updatedCellTemplateConstant, updatedMarkerConstant, value)
	if dryRun {
		return marked + pendingUpdateSuffixConstant
	}
	return marked
}

func renderReconciliationTable(reconciliation Reconciliation) string {
	tableWriter := table.NewWriter()
	tableWriter.AppendHeader(table.Row{actionColumnTitleConstant, branchColumnTitleConstant})
	for _, branchName := range reconciliation.Deletions {
		tableWriter.AppendRow(table.Row{deleteActionConstant, branchName})
	}
	for _, branchName := range reconciliation.Creations {
		tableWriter.AppendRow(table.Row{createActionConstant, branchName})
	}
	return tableWriter.RenderMarkdown()
}
