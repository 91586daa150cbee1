package gitcli

import (
	"errors"
	"regexp"
	"strings"

	"github.com/temirov/subsync/internal/execshell"
	"github.com/temirov/subsync/internal/repository"
)

var repositoryNotFoundPattern = regexp.MustCompile(`(?i)(fatal: )?repository '.*' not found`)

var transportFailureMarkers = []string{
	"could not resolve host",
	"could not read username",
	"could not read password",
	"authentication failed",
	"connection refused",
	"connection timed out",
	"could not read from remote repository",
	"unable to access",
	"the remote end hung up unexpectedly",
}

// isTransportFailure reports whether git's standard error describes a network or authentication problem.
func isTransportFailure(standardError string) bool {
	if repositoryNotFoundPattern.MatchString(standardError) {
		return true
	}
	normalized := strings.ToLower(standardError)
	for _, marker := range transportFailureMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

// classifyFailure converts an executor error into an OperationError.
// Transport failures become NetworkFailure; everything else uses the fallback kind.
func classifyFailure(operation string, executionError error, fallbackKind repository.ErrorKind) *repository.OperationError {
	var commandFailure execshell.CommandFailedError
	if errors.As(executionError, &commandFailure) && isTransportFailure(commandFailure.Result.StandardError) {
		return repository.NewOperationError(repository.ErrorKindNetworkFailure, operation, executionError)
	}
	return repository.NewOperationError(fallbackKind, operation, executionError)
}

func standardErrorOf(executionError error) string {
	var commandFailure execshell.CommandFailedError
	if errors.As(executionError, &commandFailure) {
		return commandFailure.Result.StandardError
	}
	return ""
}
