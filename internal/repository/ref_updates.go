package repository

import (
	"fmt"
	"strings"
)

// RefUpdateStatus reports the outcome of a single remote ref update.
type RefUpdateStatus string

// Remote ref update statuses.
const (
	RefUpdateStatusOK                     RefUpdateStatus = "OK"
	RefUpdateStatusUpToDate               RefUpdateStatus = "UP_TO_DATE"
	RefUpdateStatusRejectedNoDelete       RefUpdateStatus = "REJECTED_NODELETE"
	RefUpdateStatusNonExisting            RefUpdateStatus = "NON_EXISTING"
	RefUpdateStatusNotAttempted           RefUpdateStatus = "NOT_ATTEMPTED"
	RefUpdateStatusRejectedNonFastForward RefUpdateStatus = "REJECTED_NONFASTFORWARD"
	RefUpdateStatusRejectedOtherReason    RefUpdateStatus = "REJECTED_OTHER_REASON"
	RefUpdateStatusRejectedRemoteChanged  RefUpdateStatus = "REJECTED_REMOTE_CHANGED"
)

const (
	rejectedRefUpdateTemplateConstant        = "remote ref %s reported %s"
	rejectedRefUpdateMessageTemplateConstant = "remote ref %s reported %s: %s"
)

var disallowedRefUpdateStatuses = map[RefUpdateStatus]struct{}{
	RefUpdateStatusRejectedNoDelete:       {},
	RefUpdateStatusNonExisting:            {},
	RefUpdateStatusNotAttempted:           {},
	RefUpdateStatusRejectedNonFastForward: {},
	RefUpdateStatusRejectedOtherReason:    {},
	RefUpdateStatusRejectedRemoteChanged:  {},
}

// IsDisallowed reports whether the status must abort the run.
func (status RefUpdateStatus) IsDisallowed() bool {
	_, disallowed := disallowedRefUpdateStatuses[status]
	return disallowed
}

// RemoteRefUpdate is the per-ref result of a push.
type RemoteRefUpdate struct {
	RemoteName string
	Status     RefUpdateStatus
	Message    string
}

// ValidateRemoteRefUpdates returns a PushRejected OperationError for the first update with a disallowed status.
func ValidateRemoteRefUpdates(operation string, updates []RemoteRefUpdate) error {
	for _, update := range updates {
		if !update.Status.IsDisallowed() {
			continue
		}
		var cause error
		trimmedMessage := strings.TrimSpace(update.Message)
		if len(trimmedMessage) > 0 {
			cause = fmt.Errorf(rejectedRefUpdateMessageTemplateConstant, update.RemoteName, update.Status, trimmedMessage)
		} else {
			cause = fmt.Errorf(rejectedRefUpdateTemplateConstant, update.RemoteName, update.Status)
		}
		return NewOperationError(ErrorKindPushRejected, operation, cause).WithReference(update.RemoteName)
	}
	return nil
}
