package repository_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/subsync/internal/repository"
)

const (
	testPushOperationConstant = "push branch"
	testRemoteRefConstant     = "refs/heads/feature"
)

func TestValidateRemoteRefUpdates(testInstance *testing.T) {
	testCases := []struct {
		name        string
		status      repository.RefUpdateStatus
		expectError bool
	}{
		{name: "ok", status: repository.RefUpdateStatusOK},
		{name: "up_to_date", status: repository.RefUpdateStatusUpToDate},
		{name: "rejected_nodelete", status: repository.RefUpdateStatusRejectedNoDelete, expectError: true},
		{name: "non_existing", status: repository.RefUpdateStatusNonExisting, expectError: true},
		{name: "not_attempted", status: repository.RefUpdateStatusNotAttempted, expectError: true},
		{name: "rejected_nonfastforward", status: repository.RefUpdateStatusRejectedNonFastForward, expectError: true},
		{name: "rejected_other_reason", status: repository.RefUpdateStatusRejectedOtherReason, expectError: true},
		{name: "rejected_remote_changed", status: repository.RefUpdateStatusRejectedRemoteChanged, expectError: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			updates := []repository.RemoteRefUpdate{{RemoteName: testRemoteRefConstant, Status: testCase.status}}
			validationError := repository.ValidateRemoteRefUpdates(testPushOperationConstant, updates)
			if !testCase.expectError {
				require.NoError(testInstance, validationError)
				return
			}

			require.Error(testInstance, validationError)
			require.ErrorIs(testInstance, validationError, repository.ErrPushRejected)
			require.Contains(testInstance, validationError.Error(), testRemoteRefConstant)
			require.Contains(testInstance, validationError.Error(), string(testCase.status))

			var operationError *repository.OperationError
			require.True(testInstance, errors.As(validationError, &operationError))
			require.Equal(testInstance, testRemoteRefConstant, operationError.Reference)
		})
	}
}

func TestValidateRemoteRefUpdatesReportsFirstRejection(testInstance *testing.T) {
	updates := []repository.RemoteRefUpdate{
		{RemoteName: "refs/heads/main", Status: repository.RefUpdateStatusUpToDate},
		{RemoteName: "refs/heads/stale", Status: repository.RefUpdateStatusRejectedNoDelete, Message: "deletion prohibited"},
		{RemoteName: "refs/heads/other", Status: repository.RefUpdateStatusRejectedOtherReason},
	}

	validationError := repository.ValidateRemoteRefUpdates(testPushOperationConstant, updates)

	require.ErrorIs(testInstance, validationError, repository.ErrPushRejected)
	require.Contains(testInstance, validationError.Error(), "refs/heads/stale")
	require.Contains(testInstance, validationError.Error(), "deletion prohibited")
	require.NotContains(testInstance, validationError.Error(), "refs/heads/other")
}

func TestValidateRemoteRefUpdatesAcceptsEmptyResults(testInstance *testing.T) {
	require.NoError(testInstance, repository.ValidateRemoteRefUpdates(testPushOperationConstant, nil))
}
