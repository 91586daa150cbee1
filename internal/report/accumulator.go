package report

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Format selects the rendered report encoding.
type Format string

// Supported report formats.
const (
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

const (
	unsupportedFormatTemplateConstant = "unsupported report format: %s"
	emptyFormatMessageConstant        = "report format not provided"
)

// ErrFormatNotProvided indicates that an empty format was requested.
var ErrFormatNotProvided = errors.New(emptyFormatMessageConstant)

// SupportedFormats lists the accepted format names in display order.
func SupportedFormats() []string {
	return []string{string(FormatMarkdown), string(FormatYAML)}
}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(rawFormat string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawFormat))
	switch Format(normalized) {
	case FormatMarkdown, FormatYAML:
		return Format(normalized), nil
	case "":
		return "", ErrFormatNotProvided
	default:
		return "", fmt.Errorf(unsupportedFormatTemplateConstant, rawFormat)
	}
}

// ModuleRow records the branch a submodule was set to track on one parent branch.
type ModuleRow struct {
	Submodule     string `yaml:"submodule"`
	TrackedBranch string `yaml:"tracked_branch"`
	Updated       bool   `yaml:"updated"`
	CommitID      string `yaml:"commit,omitempty"`
}

// BranchReport lists the submodule rows of one parent branch.
type BranchReport struct {
	Branch string      `yaml:"branch"`
	Rows   []ModuleRow `yaml:"modules"`
	Pushed bool        `yaml:"pushed"`
}

// UpdatedCount returns how many rows changed.
func (branchReport BranchReport) UpdatedCount() int {
	updated := 0
	for _, row := range branchReport.Rows {
		if row.Updated {
			updated++
		}
	}
	return updated
}

// Reconciliation lists the parent branches deleted and created during a run.
type Reconciliation struct {
	Deletions []string `yaml:"deleted"`
	Creations []string `yaml:"created"`
}

// IsEmpty reports whether no branch was deleted or created.
func (reconciliation Reconciliation) IsEmpty() bool {
	return len(reconciliation.Deletions) == 0 && len(reconciliation.Creations) == 0
}

// Accumulator collects results in the order they are recorded.
type Accumulator struct {
	mutex          sync.Mutex
	dryRun         bool
	reconciliation Reconciliation
	branches       []BranchReport
}

// NewAccumulator constructs an empty Accumulator.
func NewAccumulator(dryRun bool) *Accumulator {
	return &Accumulator{dryRun: dryRun}
}

// RecordReconciliation stores the reconciliation plan.
func (accumulator *Accumulator) RecordReconciliation(reconciliation Reconciliation) {
	accumulator.mutex.Lock()
	defer accumulator.mutex.Unlock()
	accumulator.reconciliation = Reconciliation{
		Deletions: append([]string(nil), reconciliation.Deletions...),
		Creations: append([]string(nil), reconciliation.Creations...),
	}
}

// RecordBranch appends the report of one parent branch.
func (accumulator *Accumulator) RecordBranch(branchReport BranchReport) {
	accumulator.mutex.Lock()
	defer accumulator.mutex.Unlock()
	branchReport.Rows = append([]ModuleRow(nil), branchReport.Rows...)
	accumulator.branches = append(accumulator.branches, branchReport)
}

// Snapshot returns a copy of the accumulated data.
func (accumulator *Accumulator) Snapshot() Document {
	accumulator.mutex.Lock()
	defer accumulator.mutex.Unlock()
	branches := make([]BranchReport, 0, len(accumulator.branches))
	for _, branchReport := range accumulator.branches {
		branchReport.Rows = append([]ModuleRow(nil), branchReport.Rows...)
		branches = append(branches, branchReport)
	}
	return Document{
		DryRun:         accumulator.dryRun,
		Reconciliation: accumulator.reconciliation,
		Branches:       branches,
	}
}

// Render encodes the accumulated data in the requested format.
func (accumulator *Accumulator) Render(format Format) ([]byte, error) {
	document := accumulator.Snapshot()
	switch format {
	case FormatMarkdown:
		return []byte(renderMarkdown(document)), nil
	case FormatYAML:
		return renderYAML(document)
	default:
		return nil, fmt.Errorf(unsupportedFormatTemplateConstant, format)
	}
}

// Document is the complete report of one run.
type Document struct {
	DryRun         bool           `yaml:"dry_run"`
	Reconciliation Reconciliation `yaml:"reconciliation"`
	Branches       []BranchReport `yaml:"branches"`
}
