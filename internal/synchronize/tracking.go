package synchronize

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/temirov/subsync/internal/report"
	"github.com/temirov/subsync/internal/repos/shared"
	"github.com/temirov/subsync/internal/repository"
)

const (
	checkoutParentBranchOperationConstant  = "checkout parent branch"
	readTrackedBranchOperationConstant     = "read submodule tracked branch"
	setTrackedBranchOperationConstant      = "set submodule tracked branch"
	checkoutTrackedBranchOperationConstant = "checkout submodule branch"
	stagePathOperationConstant             = "stage submodule update"
	readStatusOperationConstant            = "read parent status"
	readTrackedTipOperationConstant        = "read tracked branch tip"
	commitTrackingOperationConstant        = "commit submodule update"
	restorePathsOperationConstant          = "restore staged paths"
	pushParentBranchOperationConstant      = "push parent branch"
	trackingCommitBodyTemplateConstant     = "Updating submodule %s to track head of branch %s"
	trackingCommitTemplateConstant         = "[%s#%s] %s\n\n%s"
	updatingBranchMessageConstant          = "updating submodule tracking"
	submoduleTrackedMessageConstant        = "submodule tracking resolved"
	committedTrackingMessageConstant       = "committed submodule tracking update"
	dryRunCommitMessageConstant            = "dry run: submodule tracking update not committed"
	pushedBranchMessageConstant            = "pushed parent branch"
	logFieldTrackedBranchConstant          = "tracked_branch"
	logFieldPreviousBranchConstant         = "previous_branch"
	logFieldUpdatedConstant                = "updated"
	logFieldCommitConstant                 = "commit"
	logFieldMessageConstant                = "message"
)

// SubmoduleTrackingUpdater points every submodule of a parent branch at its matching branch.
type SubmoduleTrackingUpdater struct {
	logger *zap.Logger
}

// NewSubmoduleTrackingUpdater constructs an updater logging through the provided logger.
func NewSubmoduleTrackingUpdater(logger *zap.Logger) *SubmoduleTrackingUpdater {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmoduleTrackingUpdater{logger: logger}
}

// UpdateBranch checks out the parent branch, updates each submodule's tracked branch in .gitmodules order,
// commits every change, and pushes the branch.
func (updater *SubmoduleTrackingUpdater) UpdateBranch(executionContext context.Context, syncContext SyncContext, parent repository.Repository, branchName string) (report.BranchReport, error) {
	if parent == nil {
		return report.BranchReport{}, ErrParentRepositoryMissing
	}

	updater.logger.Info(updatingBranchMessageConstant, zap.String(logFieldBranchConstant, branchName))

	if checkoutError := parent.Checkout(executionContext, branchName, true); checkoutError != nil {
		return report.BranchReport{}, repository.Annotate(checkoutError, checkoutParentBranchOperationConstant, branchName, "")
	}

	submodules, submodulesError := parent.Submodules(executionContext)
	if submodulesError != nil {
		return report.BranchReport{}, repository.Annotate(submodulesError, listSubmodulesOperationConstant, branchName, "")
	}

	branchReport := report.BranchReport{Branch: branchName, Rows: make([]report.ModuleRow, 0, len(submodules))}
	for _, submodule := range submodules {
		row, updateError := updater.updateSubmodule(executionContext, syncContext, parent, branchName, submodule)
		if updateError != nil {
			return report.BranchReport{}, updateError
		}
		branchReport.Rows = append(branchReport.Rows, row)
	}

	if syncContext.DryRun {
		return branchReport, nil
	}

	updates, pushError := parent.Push(executionContext, []repository.RefSpec{repository.NewBranchRefSpec(branchName)}, syncContext.Credentials)
	if pushError != nil {
		return report.BranchReport{}, repository.Annotate(pushError, pushParentBranchOperationConstant, branchName, "")
	}
	if validationError := repository.ValidateRemoteRefUpdates(pushParentBranchOperationConstant, updates); validationError != nil {
		return report.BranchReport{}, repository.Annotate(validationError, pushParentBranchOperationConstant, branchName, "")
	}
	branchReport.Pushed = true
	updater.logger.Info(pushedBranchMessageConstant, zap.String(logFieldBranchConstant, branchName))

	return branchReport, nil
}

func (updater *SubmoduleTrackingUpdater) updateSubmodule(executionContext context.Context, syncContext SyncContext, parent repository.Repository, branchName string, submodule repository.SubmoduleReference) (report.ModuleRow, error) {
	submoduleRepository, openError := parent.OpenSubmodule(executionContext, submodule)
	if openError != nil {
		return report.ModuleRow{}, repository.Annotate(openError, openSubmoduleOperationConstant, branchName, submodule.Name)
	}

	references, listError := submoduleRepository.ListBranches(executionContext, repository.BranchScopeRemote)
	if listError != nil {
		return report.ModuleRow{}, repository.Annotate(listError, listSubmoduleBranchesOperationConstant, branchName, submodule.Name)
	}
	submoduleBranches := NewBranchSet()
	for _, reference := range references {
		if reference.Symbolic {
			continue
		}
		if remoteBranch, isRemoteBranch := repository.RemoteBranchName(reference.Name, submoduleRepository.RemoteName()); isRemoteBranch {
			submoduleBranches.Add(remoteBranch)
		}
	}

	trackedBranch := syncContext.DefaultBranch
	if submoduleBranches.Contains(branchName) {
		trackedBranch = branchName
	}
	tipKnown := submoduleBranches.Contains(trackedBranch)

	previousBranch, _, readError := parent.SubmoduleBranch(executionContext, submodule.Path)
	if readError != nil {
		return report.ModuleRow{}, configurationFailure(readError, readTrackedBranchOperationConstant, branchName, submodule.Name)
	}

	updater.logger.Debug(
		submoduleTrackedMessageConstant,
		zap.String(logFieldBranchConstant, branchName),
		zap.String(logFieldSubmoduleConstant, submodule.Name),
		zap.String(logFieldPreviousBranchConstant, previousBranch),
		zap.String(logFieldTrackedBranchConstant, trackedBranch),
	)

	if setError := parent.SetSubmoduleBranch(executionContext, submodule.Path, trackedBranch); setError != nil {
		return report.ModuleRow{}, configurationFailure(setError, setTrackedBranchOperationConstant, branchName, submodule.Name)
	}
	if checkoutError := submoduleRepository.Checkout(executionContext, trackedBranch, true); checkoutError != nil {
		return report.ModuleRow{}, repository.Annotate(checkoutError, checkoutTrackedBranchOperationConstant, branchName, submodule.Name)
	}
	for _, stagedPath := range []string{submodule.Path, shared.GitModulesFileNameConstant} {
		if stageError := parent.Stage(executionContext, stagedPath); stageError != nil {
			return report.ModuleRow{}, repository.Annotate(stageError, stagePathOperationConstant, branchName, submodule.Name)
		}
	}

	status, statusError := parent.Status(executionContext)
	if statusError != nil {
		return report.ModuleRow{}, repository.Annotate(statusError, readStatusOperationConstant, branchName, submodule.Name)
	}

	row := report.ModuleRow{Submodule: submodule.Name, TrackedBranch: trackedBranch, Updated: status.HasStagedChanges()}
	if !row.Updated {
		return row, nil
	}

	message, identity, attributionError := updater.commitAttribution(executionContext, syncContext, submoduleRepository, submodule, trackedBranch, tipKnown)
	if attributionError != nil {
		return report.ModuleRow{}, repository.Annotate(attributionError, readTrackedTipOperationConstant, branchName, submodule.Name)
	}

	if syncContext.DryRun {
		updater.logger.Info(
			dryRunCommitMessageConstant,
			zap.String(logFieldBranchConstant, branchName),
			zap.String(logFieldSubmoduleConstant, submodule.Name),
			zap.String(logFieldMessageConstant, message),
		)
		if restoreError := parent.RestorePaths(executionContext, []string{submodule.Path, shared.GitModulesFileNameConstant}); restoreError != nil {
			return report.ModuleRow{}, repository.Annotate(restoreError, restorePathsOperationConstant, branchName, submodule.Name)
		}
		return row, nil
	}

	if identity == nil || !identity.IsComplete() {
		return report.ModuleRow{}, repository.NewOperationError(repository.ErrorKindMissingIdentity, commitTrackingOperationConstant, repository.ErrMissingIdentity).
			WithBranch(branchName).
			WithSubmodule(submodule.Name)
	}

	commitID, commitError := parent.Commit(executionContext, message, *identity)
	if commitError != nil {
		return report.ModuleRow{}, repository.Annotate(commitError, commitTrackingOperationConstant, branchName, submodule.Name)
	}
	row.CommitID = commitID

	updater.logger.Info(
		committedTrackingMessageConstant,
		zap.String(logFieldBranchConstant, branchName),
		zap.String(logFieldSubmoduleConstant, submodule.Name),
		zap.String(logFieldTrackedBranchConstant, trackedBranch),
		zap.String(logFieldCommitConstant, commitID),
	)
	return row, nil
}

// commitAttribution credits the tracked tip's author and quotes its subject; without a known tip it falls back
// to the default identity and a generic message. A tip author lacking a name or email also falls back.
func (updater *SubmoduleTrackingUpdater) commitAttribution(executionContext context.Context, syncContext SyncContext, submoduleRepository repository.Repository, submodule repository.SubmoduleReference, trackedBranch string, tipKnown bool) (string, *repository.Identity, error) {
	body := fmt.Sprintf(trackingCommitBodyTemplateConstant, submodule.Name, trackedBranch)
	if !tipKnown {
		return body, syncContext.DefaultIdentity, nil
	}

	tipReference := plumbing.NewRemoteReferenceName(submoduleRepository.RemoteName(), trackedBranch)
	tipDetails, detailsError := submoduleRepository.CommitDetails(executionContext, tipReference.String())
	if detailsError != nil {
		return "", nil, detailsError
	}

	message := fmt.Sprintf(trackingCommitTemplateConstant, submodule.Name, trackedBranch, tipDetails.Subject, body)
	author := tipDetails.Author()
	if !author.IsComplete() {
		return message, syncContext.DefaultIdentity, nil
	}
	return message, &author, nil
}

func configurationFailure(cause error, operation string, branchName string, submoduleName string) error {
	if _, classified := repository.KindOf(cause); classified {
		return repository.Annotate(cause, operation, branchName, submoduleName)
	}
	return repository.NewOperationError(repository.ErrorKindConfigurationFailure, operation, cause).
		WithBranch(branchName).
		WithSubmodule(submoduleName)
}
