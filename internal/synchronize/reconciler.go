package synchronize

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/temirov/subsync/internal/repository"
)

const (
	listParentBranchesOperationConstant  = "list parent branches"
	deleteLocalBranchOperationConstant   = "delete local branch"
	deleteRemoteBranchOperationConstant  = "delete remote branch"
	createLocalBranchOperationConstant   = "create local branch"
	publishBranchOperationConstant       = "publish branch"
	plannedReconciliationMessageConstant = "planned parent branch reconciliation"
	deletingBranchMessageConstant        = "deleting stale parent branch"
	creatingBranchMessageConstant        = "creating parent branch"
	dryRunDeletionMessageConstant        = "dry run: stale parent branch kept"
	dryRunCreationMessageConstant        = "dry run: parent branch created locally without push"
	logFieldDeletionsConstant            = "deletions"
	logFieldCreationsConstant            = "creations"
	logFieldDefaultBranchConstant        = "default_branch"
)

// ReconciliationPlan lists the parent branches to delete and create, each sorted.
type ReconciliationPlan struct {
	Deletions []string
	Creations []string
}

// PlanDeletions returns parent remote branches missing from the active set, never including the default branch.
func PlanDeletions(active BranchSet, parentRemote []string, defaultBranch string) []string {
	deletions := lo.Filter(lo.Uniq(parentRemote), func(branchName string, _ int) bool {
		return !active.Contains(branchName) && branchName != defaultBranch
	})
	sort.Strings(deletions)
	return deletions
}

// PlanCreations returns active branches the parent remote does not have yet.
func PlanCreations(active BranchSet, parentRemote []string) []string {
	existing := NewBranchSet(parentRemote...)
	return lo.Filter(active.Sorted(), func(branchName string, _ int) bool {
		return !existing.Contains(branchName)
	})
}

// BranchSetReconciler deletes stale parent branches and creates missing ones.
type BranchSetReconciler struct {
	logger *zap.Logger
}

// NewBranchSetReconciler constructs a reconciler logging through the provided logger.
func NewBranchSetReconciler(logger *zap.Logger) *BranchSetReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BranchSetReconciler{logger: logger}
}

// ParentRemoteBranches lists the parent's remote branch names, skipping symbolic refs.
func (reconciler *BranchSetReconciler) ParentRemoteBranches(executionContext context.Context, parent repository.Repository) ([]string, error) {
	references, listError := parent.ListBranches(executionContext, repository.BranchScopeRemote)
	if listError != nil {
		return nil, repository.Annotate(listError, listParentBranchesOperationConstant, "", "")
	}

	branchNames := make([]string, 0, len(references))
	for _, reference := range references {
		if reference.Symbolic {
			continue
		}
		branchName, isRemoteBranch := repository.RemoteBranchName(reference.Name, parent.RemoteName())
		if !isRemoteBranch || branchName == remoteHeadBranchNameConstant {
			continue
		}
		branchNames = append(branchNames, branchName)
	}
	sort.Strings(branchNames)
	return branchNames, nil
}

// Plan computes the deletions and creations that align the parent with the active branch set.
func (reconciler *BranchSetReconciler) Plan(executionContext context.Context, syncContext SyncContext, parent repository.Repository, active BranchSet) (ReconciliationPlan, []string, error) {
	parentRemote, listError := reconciler.ParentRemoteBranches(executionContext, parent)
	if listError != nil {
		return ReconciliationPlan{}, nil, listError
	}

	plan := ReconciliationPlan{
		Deletions: PlanDeletions(active, parentRemote, syncContext.DefaultBranch),
		Creations: PlanCreations(active, parentRemote),
	}

	reconciler.logger.Info(
		plannedReconciliationMessageConstant,
		zap.Strings(logFieldDeletionsConstant, plan.Deletions),
		zap.Strings(logFieldCreationsConstant, plan.Creations),
		zap.String(logFieldDefaultBranchConstant, syncContext.DefaultBranch),
	)
	return plan, parentRemote, nil
}

// ApplyDeletions removes each branch locally and on the remote before moving to the next branch.
// Dry runs only log the branches that would be removed.
func (reconciler *BranchSetReconciler) ApplyDeletions(executionContext context.Context, syncContext SyncContext, parent repository.Repository, branchNames []string) error {
	for _, branchName := range branchNames {
		if syncContext.DryRun {
			reconciler.logger.Info(dryRunDeletionMessageConstant, zap.String(logFieldBranchConstant, branchName))
			continue
		}

		reconciler.logger.Info(deletingBranchMessageConstant, zap.String(logFieldBranchConstant, branchName))
		if deleteError := parent.DeleteBranch(executionContext, branchName, true); deleteError != nil {
			return repository.Annotate(deleteError, deleteLocalBranchOperationConstant, branchName, "")
		}

		updates, pushError := parent.Push(executionContext, []repository.RefSpec{repository.NewDeletionRefSpec(branchName)}, syncContext.Credentials)
		if pushError != nil {
			return repository.Annotate(pushError, deleteRemoteBranchOperationConstant, branchName, "")
		}
		if validationError := repository.ValidateRemoteRefUpdates(deleteRemoteBranchOperationConstant, updates); validationError != nil {
			return repository.Annotate(validationError, deleteRemoteBranchOperationConstant, branchName, "")
		}
	}
	return nil
}

// ApplyCreations creates each branch from HEAD, replacing a stale local branch, and publishes it.
// Dry runs create the local branch without publishing so the tracking update can preview it.
func (reconciler *BranchSetReconciler) ApplyCreations(executionContext context.Context, syncContext SyncContext, parent repository.Repository, branchNames []string) error {
	for _, branchName := range branchNames {
		reconciler.logger.Info(creatingBranchMessageConstant, zap.String(logFieldBranchConstant, branchName))

		if deleteError := parent.DeleteBranch(executionContext, branchName, true); deleteError != nil {
			return repository.Annotate(deleteError, deleteLocalBranchOperationConstant, branchName, "")
		}
		if createError := parent.CreateBranch(executionContext, branchName); createError != nil {
			return repository.Annotate(createError, createLocalBranchOperationConstant, branchName, "")
		}

		if syncContext.DryRun {
			reconciler.logger.Info(dryRunCreationMessageConstant, zap.String(logFieldBranchConstant, branchName))
			continue
		}

		updates, pushError := parent.Push(executionContext, []repository.RefSpec{repository.NewBranchRefSpec(branchName)}, syncContext.Credentials)
		if pushError != nil {
			return repository.Annotate(pushError, publishBranchOperationConstant, branchName, "")
		}
		if validationError := repository.ValidateRemoteRefUpdates(publishBranchOperationConstant, updates); validationError != nil {
			return repository.Annotate(validationError, publishBranchOperationConstant, branchName, "")
		}
	}
	return nil
}
