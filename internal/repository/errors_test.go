package repository_test

import (
	"errors"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"github.com/temirov/subsync/internal/repository"
)

func TestOperationErrorMatchesKindSentinel(testInstance *testing.T) {
	testCases := []struct {
		name     string
		kind     repository.ErrorKind
		sentinel error
	}{
		{name: "io", kind: repository.ErrorKindIOFailure, sentinel: repository.ErrIOFailure},
		{name: "network", kind: repository.ErrorKindNetworkFailure, sentinel: repository.ErrNetworkFailure},
		{name: "checkout", kind: repository.ErrorKindCheckoutFailure, sentinel: repository.ErrCheckoutFailure},
		{name: "push", kind: repository.ErrorKindPushRejected, sentinel: repository.ErrPushRejected},
		{name: "configuration", kind: repository.ErrorKindConfigurationFailure, sentinel: repository.ErrConfigurationFailure},
		{name: "identity", kind: repository.ErrorKindMissingIdentity, sentinel: repository.ErrMissingIdentity},
	}

	cause := errors.New("underlying")
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			operationError := repository.NewOperationError(testCase.kind, "operation", cause)
			require.ErrorIs(testInstance, operationError, testCase.sentinel)
			require.ErrorIs(testInstance, operationError, cause)

			kind, found := repository.KindOf(operationError)
			require.True(testInstance, found)
			require.Equal(testInstance, testCase.kind, kind)
		})
	}
}

func TestOperationErrorMessageIncludesContext(testInstance *testing.T) {
	operationError := repository.NewOperationError(repository.ErrorKindCheckoutFailure, "checkout", errors.New("missing")).
		WithBranch("feature").
		WithSubmodule("lib")

	require.Equal(testInstance, "checkout failed (checkout_failure) [branch=feature, submodule=lib]: missing", operationError.Error())
}

func TestAnnotateWrapsForeignErrorsAsIOFailure(testInstance *testing.T) {
	annotated := repository.Annotate(errors.New("disk"), "read submodule", "main", "lib")

	require.ErrorIs(testInstance, annotated, repository.ErrIOFailure)
	var operationError *repository.OperationError
	require.ErrorAs(testInstance, annotated, &operationError)
	require.Equal(testInstance, "main", operationError.Branch)
	require.Equal(testInstance, "lib", operationError.Submodule)
}

func TestAnnotatePreservesExistingContext(testInstance *testing.T) {
	original := repository.NewOperationError(repository.ErrorKindPushRejected, "push", nil).WithBranch("feature")

	annotated := repository.Annotate(original, "update branch", "main", "lib")

	var operationError *repository.OperationError
	require.ErrorAs(testInstance, annotated, &operationError)
	require.Equal(testInstance, "feature", operationError.Branch)
	require.Equal(testInstance, "lib", operationError.Submodule)
	require.Nil(testInstance, repository.Annotate(nil, "noop", "", ""))
}

func TestRemoteBranchName(testInstance *testing.T) {
	testCases := []struct {
		name          string
		reference     string
		expectedName  string
		expectedFound bool
	}{
		{name: "remote_branch", reference: "refs/remotes/origin/feature", expectedName: "feature", expectedFound: true},
		{name: "nested_branch", reference: "refs/remotes/origin/release/1.0", expectedName: "release/1.0", expectedFound: true},
		{name: "other_remote", reference: "refs/remotes/upstream/feature"},
		{name: "local_branch", reference: "refs/heads/feature"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			name, found := repository.RemoteBranchName(plumbingReference(testCase.reference), "origin")
			require.Equal(testInstance, testCase.expectedFound, found)
			require.Equal(testInstance, testCase.expectedName, name)
		})
	}
}

func plumbingReference(name string) plumbing.ReferenceName {
	return plumbing.ReferenceName(name)
}
