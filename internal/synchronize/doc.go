// Package synchronize aligns a parent repository's branches with the active
// branches of its submodules and rewrites each parent branch so its submodules
// track equally named branches.
//
// The Service drives the pipeline: ActiveBranchCollector gathers recently
// updated submodule branches, BranchSetReconciler deletes and creates parent
// branches, and SubmoduleTrackingUpdater commits the tracking changes. The
// WorkspaceManager prepares the clone the pipeline runs against and the
// CommandBuilder exposes everything as the sync Cobra command.
package synchronize
