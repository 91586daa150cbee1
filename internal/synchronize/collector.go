package synchronize

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/temirov/subsync/internal/repository"
)

const (
	listSubmodulesOperationConstant        = "list submodules"
	openSubmoduleOperationConstant         = "open submodule"
	listSubmoduleBranchesOperationConstant = "list submodule branches"
	readBranchTipOperationConstant         = "read branch tip"
	remoteHeadBranchNameConstant           = "HEAD"
	collectorStartedMessageConstant        = "collecting active submodule branches"
	collectorBranchMessageConstant         = "submodule branch activity"
	collectorCompletedMessageConstant      = "collected active submodule branches"
	logFieldSubmoduleConstant              = "submodule"
	logFieldBranchConstant                 = "branch"
	logFieldTipTimeConstant                = "tip_time"
	logFieldActiveConstant                 = "active"
	logFieldThresholdDaysConstant          = "inactivity_threshold_days"
	logFieldBranchCountConstant            = "branch_count"
	logFieldBranchesConstant               = "branches"
	parentRepositoryMissingMessageConstant = "parent repository not provided"
)

// ErrParentRepositoryMissing indicates that a nil parent repository was supplied.
var ErrParentRepositoryMissing = errors.New(parentRepositoryMissingMessageConstant)

// BranchSet is an unordered collection of branch names.
type BranchSet struct {
	names map[string]struct{}
}

// NewBranchSet constructs a set holding the provided names.
func NewBranchSet(names ...string) BranchSet {
	set := BranchSet{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		set.Add(name)
	}
	return set
}

// Add inserts a name into the set.
func (set *BranchSet) Add(name string) {
	if set.names == nil {
		set.names = map[string]struct{}{}
	}
	set.names[name] = struct{}{}
}

// Contains reports whether the name is a member.
func (set BranchSet) Contains(name string) bool {
	_, exists := set.names[name]
	return exists
}

// Len returns the number of members.
func (set BranchSet) Len() int {
	return len(set.names)
}

// Sorted returns the members in lexical order.
func (set BranchSet) Sorted() []string {
	names := lo.Keys(set.names)
	sort.Strings(names)
	return names
}

// BranchActivity records whether one submodule branch passed the inactivity threshold.
type BranchActivity struct {
	Submodule string
	Branch    string
	TipTime   time.Time
	Active    bool
}

// ActiveBranchCollector gathers recently updated remote branches across all submodules.
type ActiveBranchCollector struct {
	logger *zap.Logger
}

// NewActiveBranchCollector constructs a collector logging through the provided logger.
func NewActiveBranchCollector(logger *zap.Logger) *ActiveBranchCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActiveBranchCollector{logger: logger}
}

// Collect returns the union of active submodule branch names together with the activity of every inspected branch.
// A negative inactivity threshold treats every branch as active.
func (collector *ActiveBranchCollector) Collect(executionContext context.Context, syncContext SyncContext, parent repository.Repository) (BranchSet, []BranchActivity, error) {
	if parent == nil {
		return BranchSet{}, nil, ErrParentRepositoryMissing
	}

	collector.logger.Info(collectorStartedMessageConstant, zap.Int(logFieldThresholdDaysConstant, syncContext.InactivityThresholdDays))

	submodules, submodulesError := parent.Submodules(executionContext)
	if submodulesError != nil {
		return BranchSet{}, nil, repository.Annotate(submodulesError, listSubmodulesOperationConstant, "", "")
	}

	isActive := activityPredicate(syncContext)
	activeBranches := NewBranchSet()
	activities := []BranchActivity{}

	for _, submodule := range submodules {
		submoduleRepository, openError := parent.OpenSubmodule(executionContext, submodule)
		if openError != nil {
			return BranchSet{}, nil, repository.Annotate(openError, openSubmoduleOperationConstant, "", submodule.Name)
		}

		references, listError := submoduleRepository.ListBranches(executionContext, repository.BranchScopeRemote)
		if listError != nil {
			return BranchSet{}, nil, repository.Annotate(listError, listSubmoduleBranchesOperationConstant, "", submodule.Name)
		}

		for _, reference := range references {
			if reference.Symbolic {
				continue
			}
			branchName, isRemoteBranch := repository.RemoteBranchName(reference.Name, submoduleRepository.RemoteName())
			if !isRemoteBranch || branchName == remoteHeadBranchNameConstant {
				continue
			}

			revision := reference.Tip
			if len(revision) == 0 {
				revision = reference.Name.String()
			}
			tipDetails, detailsError := submoduleRepository.CommitDetails(executionContext, revision)
			if detailsError != nil {
				return BranchSet{}, nil, repository.Annotate(detailsError, readBranchTipOperationConstant, branchName, submodule.Name)
			}

			activity := BranchActivity{
				Submodule: submodule.Name,
				Branch:    branchName,
				TipTime:   tipDetails.AuthorTime,
				Active:    isActive(tipDetails.AuthorTime),
			}
			activities = append(activities, activity)

			collector.logger.Debug(
				collectorBranchMessageConstant,
				zap.String(logFieldSubmoduleConstant, activity.Submodule),
				zap.String(logFieldBranchConstant, activity.Branch),
				zap.Time(logFieldTipTimeConstant, activity.TipTime),
				zap.Bool(logFieldActiveConstant, activity.Active),
			)

			if activity.Active {
				activeBranches.Add(branchName)
			}
		}
	}

	collector.logger.Info(
		collectorCompletedMessageConstant,
		zap.Int(logFieldBranchCountConstant, activeBranches.Len()),
		zap.Strings(logFieldBranchesConstant, activeBranches.Sorted()),
	)

	return activeBranches, activities, nil
}

// activityPredicate builds the inclusive cutoff check; the cutoff is measured in calendar days.
func activityPredicate(syncContext SyncContext) func(time.Time) bool {
	if syncContext.InactivityThresholdDays < 0 {
		return func(time.Time) bool { return true }
	}
	cutoff := syncContext.clock().Now().AddDate(0, 0, -syncContext.InactivityThresholdDays)
	return func(tipTime time.Time) bool {
		return !tipTime.Before(cutoff)
	}
}
