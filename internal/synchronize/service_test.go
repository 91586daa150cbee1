package synchronize_test

import (
	"context"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/subsync/internal/report"
	"github.com/temirov/subsync/internal/repository"
	"github.com/temirov/subsync/internal/synchronize"
)

func TestSynchronizeReconcilesAndUpdatesTracking(testInstance *testing.T) {
	fixture := newSynchronizationFixture()
	accumulator := report.NewAccumulator(false)

	result, synchronizeError := synchronize.NewService(zap.NewNop()).Synchronize(context.Background(), fixture.syncContext(false), fixture.parent, accumulator)
	require.NoError(testInstance, synchronizeError)

	require.Equal(testInstance, []string{testFeatureXBranchConstant, testFeatureYBranchConstant, testDefaultBranchConstant}, result.ActiveBranches)
	require.Equal(testInstance, synchronize.ReconciliationPlan{
		Deletions: []string{testStaleBranchConstant},
		Creations: []string{testFeatureXBranchConstant, testFeatureYBranchConstant},
	}, result.Plan)
	require.Equal(testInstance, []string{testFeatureXBranchConstant, testFeatureYBranchConstant, testDefaultBranchConstant}, result.RelevantBranches)
	require.Equal(testInstance, []string{testFeatureXBranchConstant, testFeatureYBranchConstant, testDefaultBranchConstant}, fixture.parent.RemoteBranchNames())

	expectedBranches := []report.BranchReport{
		{
			Branch: testFeatureXBranchConstant,
			Rows: []report.ModuleRow{
				{Submodule: testLibraryAConstant, TrackedBranch: testFeatureXBranchConstant, Updated: true},
				{Submodule: testLibraryBConstant, TrackedBranch: testDefaultBranchConstant, Updated: true},
			},
			Pushed: true,
		},
		{
			Branch: testFeatureYBranchConstant,
			Rows: []report.ModuleRow{
				{Submodule: testLibraryAConstant, TrackedBranch: testDefaultBranchConstant, Updated: true},
				{Submodule: testLibraryBConstant, TrackedBranch: testFeatureYBranchConstant, Updated: true},
			},
			Pushed: true,
		},
		{
			Branch: testDefaultBranchConstant,
			Rows: []report.ModuleRow{
				{Submodule: testLibraryAConstant, TrackedBranch: testDefaultBranchConstant, Updated: true},
				{Submodule: testLibraryBConstant, TrackedBranch: testDefaultBranchConstant, Updated: true},
			},
			Pushed: true,
		},
	}
	if difference := cmp.Diff(expectedBranches, result.Branches, cmpopts.IgnoreFields(report.ModuleRow{}, "CommitID")); len(difference) > 0 {
		testInstance.Fatalf("unexpected branch reports (-want +got):\n%s", difference)
	}
	require.Equal(testInstance, 6, result.UpdatedRowCount())
	require.Len(testInstance, fixture.parent.CreatedCommit, 6)

	snapshot := accumulator.Snapshot()
	require.Equal(testInstance, result.Branches, snapshot.Branches)
	require.Equal(testInstance, report.Reconciliation{Deletions: result.Plan.Deletions, Creations: result.Plan.Creations}, snapshot.Reconciliation)

	featureTree, featureExists := fixture.parent.RemoteTree(testFeatureXBranchConstant)
	require.True(testInstance, featureExists)
	require.Equal(testInstance, testFeatureXBranchConstant, featureTree.Modules[0].Branch)
	require.Equal(testInstance, testDefaultBranchConstant, featureTree.Modules[1].Branch)
	require.Equal(testInstance, fixture.libraryAFeature, featureTree.Gitlinks[testLibraryAConstant])
	require.Equal(testInstance, fixture.libraryBMaster, featureTree.Gitlinks[testLibraryBConstant])

	featureYTree, featureYExists := fixture.parent.RemoteTree(testFeatureYBranchConstant)
	require.True(testInstance, featureYExists)
	require.Equal(testInstance, fixture.libraryAMaster, featureYTree.Gitlinks[testLibraryAConstant])
	require.Equal(testInstance, fixture.libraryBFeature, featureYTree.Gitlinks[testLibraryBConstant])
}

func TestSynchronizeCommitMessagesCreditTipAuthors(testInstance *testing.T) {
	fixture := newSynchronizationFixture()

	_, synchronizeError := synchronize.NewService(zap.NewNop()).Synchronize(context.Background(), fixture.syncContext(false), fixture.parent, nil)
	require.NoError(testInstance, synchronizeError)

	firstCommit := fixture.parent.CreatedCommit[0]
	require.Equal(testInstance, "[libA#feature-x] Add x\n\nUpdating submodule libA to track head of branch feature-x", firstCommit.Message)
	require.Equal(testInstance, testAliceIdentity, firstCommit.Author)

	secondCommit := fixture.parent.CreatedCommit[1]
	require.Equal(testInstance, "[libB#master] Fix B\n\nUpdating submodule libB to track head of branch master", secondCommit.Message)
	require.Equal(testInstance, testBobIdentity, secondCommit.Author)
}

func TestSynchronizeIsIdempotent(testInstance *testing.T) {
	fixture := newSynchronizationFixture()
	service := synchronize.NewService(zap.NewNop())

	_, firstError := service.Synchronize(context.Background(), fixture.syncContext(false), fixture.parent, nil)
	require.NoError(testInstance, firstError)
	commitsAfterFirstRun := len(fixture.parent.CreatedCommit)
	remoteTipBefore, _ := fixture.parent.RemoteBranchTip(testFeatureXBranchConstant)

	secondResult, secondError := service.Synchronize(context.Background(), fixture.syncContext(false), fixture.parent, nil)
	require.NoError(testInstance, secondError)

	require.Empty(testInstance, secondResult.Plan.Deletions)
	require.Empty(testInstance, secondResult.Plan.Creations)
	require.Zero(testInstance, secondResult.UpdatedRowCount())
	require.Len(testInstance, fixture.parent.CreatedCommit, commitsAfterFirstRun)
	remoteTipAfter, _ := fixture.parent.RemoteBranchTip(testFeatureXBranchConstant)
	require.Equal(testInstance, remoteTipBefore, remoteTipAfter)
}

func TestSynchronizeDryRunLeavesRemoteUntouched(testInstance *testing.T) {
	fixture := newSynchronizationFixture()
	syncContext := fixture.syncContext(true)
	syncContext.DefaultIdentity = nil
	accumulator := report.NewAccumulator(true)

	result, synchronizeError := synchronize.NewService(zap.NewNop()).Synchronize(context.Background(), syncContext, fixture.parent, accumulator)
	require.NoError(testInstance, synchronizeError)

	require.Empty(testInstance, fixture.parent.Pushes)
	require.Empty(testInstance, fixture.parent.CreatedCommit)
	require.Equal(testInstance, []string{testDefaultBranchConstant, testStaleBranchConstant}, fixture.parent.RemoteBranchNames())
	require.Contains(testInstance, fixture.parent.LocalBranchNames(), testFeatureXBranchConstant)
	require.Equal(testInstance, []string{testFeatureXBranchConstant, testFeatureYBranchConstant, testDefaultBranchConstant}, result.RelevantBranches)
	require.Equal(testInstance, 6, result.UpdatedRowCount())
	require.Len(testInstance, fixture.parent.RestoredPaths, 6)
	require.Equal(testInstance, []string{testLibraryAConstant, testGitModulesPathConstant}, fixture.parent.RestoredPaths[0])
	for _, branchReport := range result.Branches {
		require.False(testInstance, branchReport.Pushed)
	}
	require.True(testInstance, accumulator.Snapshot().DryRun)
}

func TestSynchronizeAfterDryRunAppliesPendingChangesOnce(testInstance *testing.T) {
	fixture := newSynchronizationFixture()
	service := synchronize.NewService(zap.NewNop())

	dryResult, dryError := service.Synchronize(context.Background(), fixture.syncContext(true), fixture.parent, nil)
	require.NoError(testInstance, dryError)
	require.Equal(testInstance, 6, dryResult.UpdatedRowCount())
	require.Empty(testInstance, fixture.parent.CreatedCommit)
	require.Empty(testInstance, fixture.parent.Pushes)

	firstResult, firstError := service.Synchronize(context.Background(), fixture.syncContext(false), fixture.parent, nil)
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, dryResult.Plan, firstResult.Plan)
	require.Equal(testInstance, 6, firstResult.UpdatedRowCount())
	require.Len(testInstance, fixture.parent.CreatedCommit, 6)
	require.Equal(testInstance, []string{testFeatureXBranchConstant, testFeatureYBranchConstant, testDefaultBranchConstant}, fixture.parent.RemoteBranchNames())

	remoteTipsAfterFirstRun := map[string]string{}
	for _, branchName := range fixture.parent.RemoteBranchNames() {
		remoteTipsAfterFirstRun[branchName], _ = fixture.parent.RemoteBranchTip(branchName)
	}

	secondResult, secondError := service.Synchronize(context.Background(), fixture.syncContext(false), fixture.parent, nil)
	require.NoError(testInstance, secondError)
	require.Empty(testInstance, secondResult.Plan.Deletions)
	require.Empty(testInstance, secondResult.Plan.Creations)
	require.Zero(testInstance, secondResult.UpdatedRowCount())
	require.Len(testInstance, fixture.parent.CreatedCommit, 6)
	for branchName, expectedTip := range remoteTipsAfterFirstRun {
		remoteTip, _ := fixture.parent.RemoteBranchTip(branchName)
		require.Equal(testInstance, expectedTip, remoteTip)
	}
}

func TestSynchronizeAbortsOnRejectedPush(testInstance *testing.T) {
	fixture := newSynchronizationFixture()
	fixture.parent.OverridePushStatus(plumbing.NewBranchReferenceName(testDefaultBranchConstant), repository.RefUpdateStatusRejectedNonFastForward)
	accumulator := report.NewAccumulator(false)

	_, synchronizeError := synchronize.NewService(zap.NewNop()).Synchronize(context.Background(), fixture.syncContext(false), fixture.parent, accumulator)
	require.Error(testInstance, synchronizeError)

	kind, classified := repository.KindOf(synchronizeError)
	require.True(testInstance, classified)
	require.Equal(testInstance, repository.ErrorKindPushRejected, kind)
	require.ErrorIs(testInstance, synchronizeError, repository.ErrPushRejected)

	var operationError *repository.OperationError
	require.ErrorAs(testInstance, synchronizeError, &operationError)
	require.Equal(testInstance, testDefaultBranchConstant, operationError.Branch)
	require.Len(testInstance, accumulator.Snapshot().Branches, 2)
}

func TestSynchronizeRequiresIdentityWhenTipAuthorIsIncomplete(testInstance *testing.T) {
	testCases := []struct {
		name            string
		defaultIdentity *repository.Identity
		expectedKind    repository.ErrorKind
	}{
		{name: "missing_default_identity", defaultIdentity: nil, expectedKind: repository.ErrorKindMissingIdentity},
		{name: "default_identity_fallback", defaultIdentity: &testDefaultIdentity},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newSynchronizationFixture()
			fixture.libraryB.SeedRemoteBranch(testDefaultBranchConstant, anonymousCommitSpec())
			syncContext := fixture.syncContext(false)
			syncContext.DefaultIdentity = testCase.defaultIdentity

			_, synchronizeError := synchronize.NewService(zap.NewNop()).Synchronize(context.Background(), syncContext, fixture.parent, nil)
			if len(testCase.expectedKind) > 0 {
				require.Error(testInstance, synchronizeError)
				kind, classified := repository.KindOf(synchronizeError)
				require.True(testInstance, classified)
				require.Equal(testInstance, testCase.expectedKind, kind)
				return
			}

			require.NoError(testInstance, synchronizeError)
			require.Equal(testInstance, testDefaultIdentity, fixture.parent.CreatedCommit[1].Author)
		})
	}
}

func TestSynchronizeRequiresParent(testInstance *testing.T) {
	_, synchronizeError := synchronize.NewService(nil).Synchronize(context.Background(), synchronize.SyncContext{}, nil, nil)
	require.ErrorIs(testInstance, synchronizeError, synchronize.ErrParentRepositoryMissing)
}

func TestRelevantBranches(testInstance *testing.T) {
	testCases := []struct {
		name     string
		remote   []string
		plan     synchronize.ReconciliationPlan
		expected []string
	}{
		{
			name:     "dry_run_keeps_deleted_remote_out",
			remote:   []string{"master", "stale"},
			plan:     synchronize.ReconciliationPlan{Deletions: []string{"stale"}, Creations: []string{"feature"}},
			expected: []string{"feature", "master"},
		},
		{
			name:     "reconciled_remote",
			remote:   []string{"feature", "master"},
			plan:     synchronize.ReconciliationPlan{Creations: []string{"feature"}},
			expected: []string{"feature", "master"},
		},
		{
			name:     "empty",
			remote:   nil,
			plan:     synchronize.ReconciliationPlan{},
			expected: nil,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			relevantBranches := synchronize.RelevantBranches(testCase.remote, testCase.plan)
			if len(testCase.expected) == 0 {
				require.Empty(testInstance, relevantBranches)
				return
			}
			require.Equal(testInstance, testCase.expected, relevantBranches)
		})
	}
}
