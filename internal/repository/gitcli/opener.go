package gitcli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/temirov/subsync/internal/repos/shared"
	"github.com/temirov/subsync/internal/repository"
)

const (
	gitCloneSubcommandConstant              = "clone"
	gitRecurseSubmodulesFlagConstant        = "--recurse-submodules"
	gitNoSingleBranchFlagConstant           = "--no-single-branch"
	gitOriginFlagConstant                   = "--origin"
	gitRevParseSubcommandConstant           = "rev-parse"
	gitIsInsideWorkTreeFlagConstant         = "--is-inside-work-tree"
	cloneOperationNameConstant              = "clone repository"
	openOperationNameConstant               = "open repository"
	executorMissingMessageConstant          = "git executor not configured"
	fileSystemMissingMessageConstant        = "file system not configured"
	notARepositoryTemplateConstant          = "%s is not a git working tree"
	destinationPathRequiredMessage          = "destination path required"
	remoteURLRequiredMessageConstant        = "remote url required"
	trueOutputConstant                      = "true"
	cloneDestinationResolveTemplateConstant = "resolve destination %s: %w"
)

var (
	// ErrExecutorNotConfigured indicates that a nil git executor was supplied.
	ErrExecutorNotConfigured = errors.New(executorMissingMessageConstant)
	// ErrFileSystemNotConfigured indicates that a nil file system was supplied.
	ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)
)

// OpenerConfiguration tunes how repositories are cloned and opened.
type OpenerConfiguration struct {
	RemoteName  string
	Credentials repository.Credentials
}

// Opener clones and opens repositories through the git CLI.
type Opener struct {
	executor      shared.GitExecutor
	fileSystem    shared.FileSystem
	configuration OpenerConfiguration
}

// NewOpener validates dependencies and constructs an Opener.
func NewOpener(executor shared.GitExecutor, fileSystem shared.FileSystem, configuration OpenerConfiguration) (*Opener, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if len(strings.TrimSpace(configuration.RemoteName)) == 0 {
		configuration.RemoteName = shared.OriginRemoteNameConstant
	}
	return &Opener{executor: executor, fileSystem: fileSystem, configuration: configuration}, nil
}

// Clone clones every branch of the remote together with its submodules into the destination path.
func (opener *Opener) Clone(executionContext context.Context, remoteURL string, destinationPath string, credentials repository.Credentials) (repository.Repository, error) {
	if len(strings.TrimSpace(remoteURL)) == 0 {
		return nil, repository.NewOperationError(repository.ErrorKindIOFailure, cloneOperationNameConstant, errors.New(remoteURLRequiredMessageConstant))
	}
	if len(strings.TrimSpace(destinationPath)) == 0 {
		return nil, repository.NewOperationError(repository.ErrorKindIOFailure, cloneOperationNameConstant, errors.New(destinationPathRequiredMessage))
	}

	absoluteDestination, resolveError := opener.fileSystem.Abs(destinationPath)
	if resolveError != nil {
		return nil, repository.NewOperationError(repository.ErrorKindIOFailure, cloneOperationNameConstant, fmt.Errorf(cloneDestinationResolveTemplateConstant, destinationPath, resolveError))
	}

	arguments := []string{
		gitCloneSubcommandConstant,
		gitRecurseSubmodulesFlagConstant,
		gitNoSingleBranchFlagConstant,
		gitOriginFlagConstant, opener.configuration.RemoteName,
		remoteURL,
		absoluteDestination,
	}
	runner := commandRunner{executor: opener.executor, workingDirectory: filepath.Dir(absoluteDestination), credentials: credentials}
	if _, cloneError := runner.run(executionContext, arguments...); cloneError != nil {
		return nil, classifyFailure(cloneOperationNameConstant, cloneError, repository.ErrorKindIOFailure)
	}

	return opener.newRepository(absoluteDestination, credentials), nil
}

// Open attaches to an existing working tree using the opener's configured credentials.
func (opener *Opener) Open(executionContext context.Context, repositoryPath string) (repository.Repository, error) {
	absolutePath, resolveError := opener.fileSystem.Abs(repositoryPath)
	if resolveError != nil {
		return nil, repository.NewOperationError(repository.ErrorKindIOFailure, openOperationNameConstant, resolveError)
	}

	runner := commandRunner{executor: opener.executor, workingDirectory: absolutePath}
	output, probeError := runner.run(executionContext, gitRevParseSubcommandConstant, gitIsInsideWorkTreeFlagConstant)
	if probeError != nil || strings.TrimSpace(output) != trueOutputConstant {
		cause := probeError
		if cause == nil {
			cause = fmt.Errorf(notARepositoryTemplateConstant, absolutePath)
		}
		return nil, repository.NewOperationError(repository.ErrorKindIOFailure, openOperationNameConstant, cause)
	}

	return opener.newRepository(absolutePath, opener.configuration.Credentials), nil
}

func (opener *Opener) newRepository(repositoryPath string, credentials repository.Credentials) *Repository {
	return &Repository{
		path:        repositoryPath,
		remoteName:  opener.configuration.RemoteName,
		executor:    opener.executor,
		fileSystem:  opener.fileSystem,
		credentials: credentials,
	}
}
