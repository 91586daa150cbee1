package synchronize

import (
	"github.com/temirov/subsync/internal/repos/shared"
	"github.com/temirov/subsync/internal/repository"
)

// SyncContext carries the values shared by every stage of one synchronization run.
type SyncContext struct {
	RemoteName              string
	DefaultBranch           string
	Credentials             repository.Credentials
	DefaultIdentity         *repository.Identity
	InactivityThresholdDays int
	DryRun                  bool
	Clock                   shared.Clock
}

func (syncContext SyncContext) remoteName() string {
	if len(syncContext.RemoteName) == 0 {
		return shared.OriginRemoteNameConstant
	}
	return syncContext.RemoteName
}

func (syncContext SyncContext) clock() shared.Clock {
	if syncContext.Clock == nil {
		return shared.SystemClock{}
	}
	return syncContext.Clock
}
