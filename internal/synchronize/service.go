package synchronize

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/temirov/subsync/internal/report"
	"github.com/temirov/subsync/internal/repository"
)

const (
	checkoutDefaultBranchOperationConstant = "checkout default branch"
	synchronizationStartedMessageConstant  = "synchronization started"
	relevantBranchesMessageConstant        = "updating parent branches"
	synchronizationDoneMessageConstant     = "synchronization completed"
	logFieldDryRunConstant                 = "dry_run"
	logFieldRemoteConstant                 = "remote"
	logFieldUpdatedRowsConstant            = "updated_rows"
)

// Result summarizes one synchronization run.
type Result struct {
	ActiveBranches   []string
	Activities       []BranchActivity
	Plan             ReconciliationPlan
	RelevantBranches []string
	Branches         []report.BranchReport
}

// UpdatedRowCount returns the number of submodule rows that changed across all branches.
func (result Result) UpdatedRowCount() int {
	total := 0
	for _, branchReport := range result.Branches {
		total += branchReport.UpdatedCount()
	}
	return total
}

// Service runs the collector, reconciler, and tracking updater against a prepared parent repository.
type Service struct {
	logger     *zap.Logger
	collector  *ActiveBranchCollector
	reconciler *BranchSetReconciler
	updater    *SubmoduleTrackingUpdater
}

// NewService wires the pipeline stages with a shared logger.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:     logger,
		collector:  NewActiveBranchCollector(logger),
		reconciler: NewBranchSetReconciler(logger),
		updater:    NewSubmoduleTrackingUpdater(logger),
	}
}

// Synchronize aligns the parent branch set with the active submodule branches and updates submodule tracking
// on every remaining branch. The first failure aborts the run. Results are also recorded in the accumulator
// when one is provided.
func (service *Service) Synchronize(executionContext context.Context, syncContext SyncContext, parent repository.Repository, accumulator *report.Accumulator) (Result, error) {
	if parent == nil {
		return Result{}, ErrParentRepositoryMissing
	}

	service.logger.Info(
		synchronizationStartedMessageConstant,
		zap.String(logFieldDefaultBranchConstant, syncContext.DefaultBranch),
		zap.String(logFieldRemoteConstant, syncContext.remoteName()),
		zap.Bool(logFieldDryRunConstant, syncContext.DryRun),
	)

	if checkoutError := parent.Checkout(executionContext, syncContext.DefaultBranch, true); checkoutError != nil {
		return Result{}, repository.Annotate(checkoutError, checkoutDefaultBranchOperationConstant, syncContext.DefaultBranch, "")
	}

	activeBranches, activities, collectError := service.collector.Collect(executionContext, syncContext, parent)
	if collectError != nil {
		return Result{}, collectError
	}

	plan, _, planError := service.reconciler.Plan(executionContext, syncContext, parent, activeBranches)
	if planError != nil {
		return Result{}, planError
	}
	if accumulator != nil {
		accumulator.RecordReconciliation(report.Reconciliation{Deletions: plan.Deletions, Creations: plan.Creations})
	}

	if deletionError := service.reconciler.ApplyDeletions(executionContext, syncContext, parent, plan.Deletions); deletionError != nil {
		return Result{}, deletionError
	}
	if creationError := service.reconciler.ApplyCreations(executionContext, syncContext, parent, plan.Creations); creationError != nil {
		return Result{}, creationError
	}

	remoteAfterReconciliation, listError := service.reconciler.ParentRemoteBranches(executionContext, parent)
	if listError != nil {
		return Result{}, listError
	}
	relevantBranches := RelevantBranches(remoteAfterReconciliation, plan)
	service.logger.Info(relevantBranchesMessageConstant, zap.Strings(logFieldBranchesConstant, relevantBranches))

	result := Result{
		ActiveBranches:   activeBranches.Sorted(),
		Activities:       activities,
		Plan:             plan,
		RelevantBranches: relevantBranches,
		Branches:         make([]report.BranchReport, 0, len(relevantBranches)),
	}
	for _, branchName := range relevantBranches {
		branchReport, updateError := service.updater.UpdateBranch(executionContext, syncContext, parent, branchName)
		if updateError != nil {
			return Result{}, updateError
		}
		result.Branches = append(result.Branches, branchReport)
		if accumulator != nil {
			accumulator.RecordBranch(branchReport)
		}
	}

	service.logger.Info(
		synchronizationDoneMessageConstant,
		zap.Int(logFieldBranchCountConstant, len(result.Branches)),
		zap.Int(logFieldUpdatedRowsConstant, result.UpdatedRowCount()),
	)
	return result, nil
}

// RelevantBranches returns the sorted parent branches to update: remote branches plus creations, minus deletions.
func RelevantBranches(remoteBranches []string, plan ReconciliationPlan) []string {
	deletions := NewBranchSet(plan.Deletions...)
	candidates := NewBranchSet(remoteBranches...)
	for _, branchName := range plan.Creations {
		candidates.Add(branchName)
	}
	return lo.Filter(candidates.Sorted(), func(branchName string, _ int) bool {
		return !deletions.Contains(branchName)
	})
}
