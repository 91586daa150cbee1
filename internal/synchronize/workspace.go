package synchronize

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/subsync/internal/gitrepo"
	"github.com/temirov/subsync/internal/repos/shared"
	"github.com/temirov/subsync/internal/repository"
	"github.com/temirov/subsync/internal/utils"
)

const (
	fallbackDefaultBranchConstant         = "master"
	detachedHeadNameConstant              = "HEAD"
	temporaryWorkspacePatternConstant     = "subsync-"
	workspaceDirectoryPermissionsConstant = fs.FileMode(0o755)
	prepareWorkspaceOperationConstant     = "prepare workspace"
	cloneWorkspaceOperationConstant       = "clone parent repository"
	reuseWorkspaceOperationConstant       = "reuse parent repository"
	pullWorkspaceOperationConstant        = "pull parent repository"
	remoteURLRequiredMessageConstant      = "remote url required"
	fileSystemMissingMessageConstant      = "file system not configured"
	openerMissingMessageConstant          = "repository opener not configured"
	remoteMismatchTemplateConstant        = "workspace %s tracks %s instead of %s"
	pullUnsuccessfulTemplateConstant      = "pull did not complete: %s"
	temporaryWorkspaceTemplateConstant    = "create temporary workspace: %w"
	removeWorkspaceTemplateConstant       = "remove workspace %s: %w"
	createWorkspaceParentTemplateConstant = "create workspace parent %s: %w"
	resolveWorkspaceTemplateConstant      = "resolve workspace %s: %w"
	workspaceClonedMessageConstant        = "cloned parent repository"
	workspaceReusedMessageConstant        = "reusing parent repository"
	workspaceReplacedMessageConstant      = "replacing existing workspace"
	workspaceNotRepositoryMessageConstant = "existing workspace is not a repository; cloning again"
	workspaceRemovedMessageConstant       = "removed temporary workspace"
	logFieldWorkspaceConstant             = "workspace"
	logFieldURLConstant                   = "url"
	logFieldTemporaryConstant             = "temporary"
	defaultBranchFallbackMessageConstant  = "remote default branch unavailable; using fallback"
)

var (
	// ErrRemoteURLRequired indicates that no parent repository URL was configured.
	ErrRemoteURLRequired = errors.New(remoteURLRequiredMessageConstant)
	// ErrFileSystemNotConfigured indicates that a nil file system was supplied.
	ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)
	// ErrOpenerNotConfigured indicates that a nil repository opener was supplied.
	ErrOpenerNotConfigured = errors.New(openerMissingMessageConstant)
)

// WorkspaceOptions describes where and how the parent repository is prepared.
type WorkspaceOptions struct {
	RemoteURL      string
	Folder         string
	ReuseWorkspace bool
	DefaultBranch  string
	Credentials    repository.Credentials
}

// Workspace is a prepared parent repository.
type Workspace struct {
	Repository    repository.Repository
	Path          string
	DefaultBranch string
	Temporary     bool
	cleanup       func() error
}

// Cleanup removes temporary workspaces; persistent folders are left in place.
func (workspace Workspace) Cleanup() error {
	if workspace.cleanup == nil {
		return nil
	}
	return workspace.cleanup()
}

// WorkspaceManager clones or reuses the parent repository.
type WorkspaceManager struct {
	logger     *zap.Logger
	fileSystem shared.FileSystem
	opener     repository.Opener
}

// NewWorkspaceManager validates dependencies and constructs a WorkspaceManager.
func NewWorkspaceManager(logger *zap.Logger, fileSystem shared.FileSystem, opener repository.Opener) (*WorkspaceManager, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if opener == nil {
		return nil, ErrOpenerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceManager{logger: logger, fileSystem: fileSystem, opener: opener}, nil
}

// Prepare returns a parent repository checked out on its default branch.
// An empty folder clones into a temporary directory removed by Cleanup. An existing folder is replaced unless
// reuse is enabled, in which case the clone is verified against the URL and pulled.
func (manager *WorkspaceManager) Prepare(executionContext context.Context, options WorkspaceOptions) (Workspace, error) {
	remoteURL := strings.TrimSpace(options.RemoteURL)
	if len(remoteURL) == 0 {
		return Workspace{}, repository.NewOperationError(repository.ErrorKindIOFailure, prepareWorkspaceOperationConstant, ErrRemoteURLRequired)
	}

	folder := strings.TrimSpace(options.Folder)
	if len(folder) == 0 {
		return manager.prepareTemporary(executionContext, remoteURL, options)
	}

	workspacePath, resolveError := manager.fileSystem.Abs(folder)
	if resolveError != nil {
		return Workspace{}, repository.NewOperationError(repository.ErrorKindIOFailure, prepareWorkspaceOperationConstant, fmt.Errorf(resolveWorkspaceTemplateConstant, folder, resolveError))
	}

	if _, statError := manager.fileSystem.Stat(workspacePath); statError == nil {
		if options.ReuseWorkspace {
			workspace, reused, reuseError := manager.reuse(executionContext, remoteURL, workspacePath, options)
			if reuseError != nil || reused {
				return workspace, reuseError
			}
		} else {
			manager.logger.Info(workspaceReplacedMessageConstant, zap.String(logFieldWorkspaceConstant, workspacePath))
		}
		if removeError := manager.fileSystem.RemoveAll(workspacePath); removeError != nil {
			return Workspace{}, repository.NewOperationError(repository.ErrorKindIOFailure, prepareWorkspaceOperationConstant, fmt.Errorf(removeWorkspaceTemplateConstant, workspacePath, removeError))
		}
	}

	parentDirectory := filepath.Dir(workspacePath)
	if mkdirError := manager.fileSystem.MkdirAll(parentDirectory, workspaceDirectoryPermissionsConstant); mkdirError != nil {
		return Workspace{}, repository.NewOperationError(repository.ErrorKindIOFailure, prepareWorkspaceOperationConstant, fmt.Errorf(createWorkspaceParentTemplateConstant, parentDirectory, mkdirError))
	}

	return manager.clone(executionContext, remoteURL, workspacePath, options, false)
}

func (manager *WorkspaceManager) prepareTemporary(executionContext context.Context, remoteURL string, options WorkspaceOptions) (Workspace, error) {
	temporaryPath, temporaryError := manager.fileSystem.MkdirTemp("", temporaryWorkspacePattern(executionContext))
	if temporaryError != nil {
		return Workspace{}, repository.NewOperationError(repository.ErrorKindIOFailure, prepareWorkspaceOperationConstant, fmt.Errorf(temporaryWorkspaceTemplateConstant, temporaryError))
	}

	workspace, cloneError := manager.clone(executionContext, remoteURL, temporaryPath, options, true)
	if cloneError != nil {
		_ = manager.fileSystem.RemoveAll(temporaryPath)
		return Workspace{}, cloneError
	}
	return workspace, nil
}

func (manager *WorkspaceManager) clone(executionContext context.Context, remoteURL string, workspacePath string, options WorkspaceOptions, temporary bool) (Workspace, error) {
	parent, cloneError := manager.opener.Clone(executionContext, remoteURL, workspacePath, options.Credentials)
	if cloneError != nil {
		return Workspace{}, repository.Annotate(cloneError, cloneWorkspaceOperationConstant, "", "")
	}

	defaultBranch := strings.TrimSpace(options.DefaultBranch)
	if len(defaultBranch) == 0 {
		if currentBranch, branchError := parent.CurrentBranch(executionContext); branchError == nil && isNamedBranch(currentBranch) {
			defaultBranch = currentBranch
		}
	}
	if len(defaultBranch) == 0 {
		defaultBranch = manager.remoteDefaultBranch(executionContext, parent)
	}

	manager.logger.Info(
		workspaceClonedMessageConstant,
		zap.String(logFieldWorkspaceConstant, workspacePath),
		zap.String(logFieldURLConstant, remoteURL),
		zap.String(logFieldDefaultBranchConstant, defaultBranch),
		zap.Bool(logFieldTemporaryConstant, temporary),
	)

	workspace := Workspace{Repository: parent, Path: workspacePath, DefaultBranch: defaultBranch, Temporary: temporary}
	if temporary {
		workspace.cleanup = func() error {
			if removeError := manager.fileSystem.RemoveAll(workspacePath); removeError != nil {
				return fmt.Errorf(removeWorkspaceTemplateConstant, workspacePath, removeError)
			}
			manager.logger.Debug(workspaceRemovedMessageConstant, zap.String(logFieldWorkspaceConstant, workspacePath))
			return nil
		}
	}
	return workspace, nil
}

// reuse reports false without an error when the folder is not a repository so the caller clones afresh.
func (manager *WorkspaceManager) reuse(executionContext context.Context, remoteURL string, workspacePath string, options WorkspaceOptions) (Workspace, bool, error) {
	parent, openError := manager.opener.Open(executionContext, workspacePath)
	if openError != nil {
		manager.logger.Info(workspaceNotRepositoryMessageConstant, zap.String(logFieldWorkspaceConstant, workspacePath), zap.Error(openError))
		return Workspace{}, false, nil
	}

	configuredURL, urlError := parent.RemoteURL(executionContext)
	if urlError != nil {
		return Workspace{}, false, repository.Annotate(urlError, reuseWorkspaceOperationConstant, "", "")
	}
	if !gitrepo.SameRepository(configuredURL, remoteURL) {
		return Workspace{}, false, repository.NewOperationError(repository.ErrorKindIOFailure, reuseWorkspaceOperationConstant, fmt.Errorf(remoteMismatchTemplateConstant, workspacePath, configuredURL, remoteURL))
	}

	defaultBranch := strings.TrimSpace(options.DefaultBranch)
	if len(defaultBranch) == 0 {
		defaultBranch = manager.remoteDefaultBranch(executionContext, parent)
	}

	if checkoutError := parent.Checkout(executionContext, defaultBranch, true); checkoutError != nil {
		return Workspace{}, false, repository.Annotate(checkoutError, reuseWorkspaceOperationConstant, defaultBranch, "")
	}

	outcome, pullError := parent.Pull(executionContext, true, options.Credentials)
	if pullError != nil {
		return Workspace{}, false, repository.Annotate(pullError, pullWorkspaceOperationConstant, defaultBranch, "")
	}
	if !outcome.Successful {
		return Workspace{}, false, repository.NewOperationError(repository.ErrorKindIOFailure, pullWorkspaceOperationConstant, fmt.Errorf(pullUnsuccessfulTemplateConstant, outcome.Message)).WithBranch(defaultBranch)
	}

	manager.logger.Info(
		workspaceReusedMessageConstant,
		zap.String(logFieldWorkspaceConstant, workspacePath),
		zap.String(logFieldDefaultBranchConstant, defaultBranch),
	)
	return Workspace{Repository: parent, Path: workspacePath, DefaultBranch: defaultBranch}, true, nil
}

func (manager *WorkspaceManager) remoteDefaultBranch(executionContext context.Context, parent repository.Repository) string {
	remoteDefault, remoteError := parent.RemoteDefaultBranch(executionContext)
	if remoteError != nil || !isNamedBranch(remoteDefault) {
		manager.logger.Debug(defaultBranchFallbackMessageConstant, zap.String(logFieldDefaultBranchConstant, fallbackDefaultBranchConstant), zap.Error(remoteError))
		return fallbackDefaultBranchConstant
	}
	return remoteDefault
}

func isNamedBranch(branchName string) bool {
	trimmed := strings.TrimSpace(branchName)
	return len(trimmed) > 0 && trimmed != detachedHeadNameConstant
}

// temporaryWorkspacePattern embeds the run identifier so concurrent runs leave distinguishable directories.
func temporaryWorkspacePattern(executionContext context.Context) string {
	if runIdentifier, available := utils.NewCommandContextAccessor().RunIdentifier(executionContext); available && len(runIdentifier) > 0 {
		return temporaryWorkspacePatternConstant + runIdentifier + "-"
	}
	return temporaryWorkspacePatternConstant
}
