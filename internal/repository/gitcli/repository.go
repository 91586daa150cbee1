package gitcli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/temirov/subsync/internal/execshell"
	"github.com/temirov/subsync/internal/gitrepo"
	"github.com/temirov/subsync/internal/repos/shared"
	"github.com/temirov/subsync/internal/repository"
)

const (
	gitAbbrevRefFlagConstant            = "--abbrev-ref"
	gitHeadReferenceConstant            = "HEAD"
	gitRemoteSubcommandConstant         = "remote"
	gitGetURLSubcommandConstant         = "get-url"
	gitSymbolicRefSubcommandConstant    = "symbolic-ref"
	gitQuietFlagConstant                = "--quiet"
	gitShortFlagConstant                = "--short"
	gitPullSubcommandConstant           = "pull"
	gitFastForwardOnlyFlagConstant      = "--ff-only"
	gitRecurseSubmodulesYesFlagConstant = "--recurse-submodules=yes"
	gitForEachRefSubcommandConstant     = "for-each-ref"
	gitBranchFormatFlagConstant         = "--format=%(refname)%09%(objectname)%09%(symref)"
	gitLocalBranchNamespaceConstant     = "refs/heads"
	gitCheckoutSubcommandConstant       = "checkout"
	gitCreateBranchFlagConstant         = "-b"
	gitTrackFlagConstant                = "--track"
	gitBranchSubcommandConstant         = "branch"
	gitDeleteFlagConstant               = "--delete"
	gitForceFlagConstant                = "--force"
	gitPushSubcommandConstant           = "push"
	gitPorcelainFlagConstant            = "--porcelain"
	gitLsFilesSubcommandConstant        = "ls-files"
	gitStageFlagConstant                = "--stage"
	gitSubmoduleSubcommandConstant      = "submodule"
	gitUpdateSubcommandConstant         = "update"
	gitInitFlagConstant                 = "--init"
	gitPathSeparatorArgumentConstant    = "--"
	gitAddSubcommandConstant            = "add"
	gitStatusSubcommandConstant         = "status"
	gitCommitSubcommandConstant         = "commit"
	gitMessageFlagConstant              = "-m"
	gitShowSubcommandConstant           = "show"
	gitNoPatchFlagConstant              = "-s"
	gitCommitDetailsFormatFlagConstant  = "--format=%H%x00%an%x00%ae%x00%at%x00%ct%x00%s"
	gitlinkModeConstant                 = "160000"
	gitDirectoryNameConstant            = ".git"
	remoteBranchSeparatorConstant       = "/"
	commitDetailsFieldCountConstant     = 6
	gitModulesFilePermissions           = fs.FileMode(0o644)

	currentBranchOperationConstant       = "read current branch"
	remoteURLOperationConstant           = "read remote url"
	remoteDefaultBranchOperationConstant = "read remote default branch"
	pullOperationConstant                = "pull"
	listBranchesOperationConstant        = "list branches"
	checkoutOperationConstant            = "checkout branch"
	createBranchOperationConstant        = "create branch"
	deleteBranchOperationConstant        = "delete branch"
	pushOperationConstant                = "push"
	submodulesOperationConstant          = "list submodules"
	openSubmoduleOperationConstant       = "open submodule"
	readSubmoduleBranchOperationConstant = "read submodule branch"
	setSubmoduleBranchOperationConstant  = "set submodule branch"
	stageOperationConstant               = "stage path"
	statusOperationConstant              = "read status"
	commitOperationConstant              = "commit"
	commitDetailsOperationConstant       = "read commit details"
	restorePathsOperationConstant        = "restore paths"

	malformedCommitDetailsTemplateConstant = "unexpected commit details output for %s"
	malformedTimestampTemplateConstant     = "parse timestamp %q: %w"
	missingRemoteHeadTemplateConstant      = "remote %s has no default branch"
	missingIdentityTemplateConstant        = "identity %q <%s> is incomplete"
	missingLocalBranchTemplateConstant     = "branch %s does not exist locally"
)

// Repository is a working tree driven through the git CLI.
type Repository struct {
	path        string
	remoteName  string
	executor    shared.GitExecutor
	fileSystem  shared.FileSystem
	credentials repository.Credentials
}

type commandRunner struct {
	executor         shared.GitExecutor
	workingDirectory string
	credentials      repository.Credentials
}

func (runner commandRunner) run(executionContext context.Context, arguments ...string) (string, error) {
	return runner.runWithEnvironment(executionContext, buildEnvironment(runner.credentials), arguments...)
}

func (runner commandRunner) runWithEnvironment(executionContext context.Context, environment map[string]string, arguments ...string) (string, error) {
	result, executionError := runner.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     runner.workingDirectory,
		EnvironmentVariables: environment,
	})
	if executionError != nil {
		return "", executionError
	}
	return result.StandardOutput, nil
}

func (gitRepository *Repository) runner() commandRunner {
	return commandRunner{executor: gitRepository.executor, workingDirectory: gitRepository.path}
}

func (gitRepository *Repository) authenticatedRunner(credentials repository.Credentials) commandRunner {
	if credentials.IsEmpty() {
		credentials = gitRepository.credentials
	}
	return commandRunner{executor: gitRepository.executor, workingDirectory: gitRepository.path, credentials: credentials}
}

// Path returns the absolute working tree path.
func (gitRepository *Repository) Path() string {
	return gitRepository.path
}

// RemoteName returns the remote used for branch listing and pushes.
func (gitRepository *Repository) RemoteName() string {
	return gitRepository.remoteName
}

// CurrentBranch returns the checked out branch name.
func (gitRepository *Repository) CurrentBranch(executionContext context.Context) (string, error) {
	output, executionError := gitRepository.runner().run(executionContext, gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant)
	if executionError != nil {
		return "", repository.NewOperationError(repository.ErrorKindIOFailure, currentBranchOperationConstant, executionError)
	}
	return strings.TrimSpace(output), nil
}

// RemoteURL returns the fetch URL of the configured remote.
func (gitRepository *Repository) RemoteURL(executionContext context.Context) (string, error) {
	output, executionError := gitRepository.runner().run(executionContext, gitRemoteSubcommandConstant, gitGetURLSubcommandConstant, gitRepository.remoteName)
	if executionError != nil {
		return "", repository.NewOperationError(repository.ErrorKindIOFailure, remoteURLOperationConstant, executionError)
	}
	return strings.TrimSpace(output), nil
}

// RemoteDefaultBranch resolves the branch that refs/remotes/<remote>/HEAD points to.
func (gitRepository *Repository) RemoteDefaultBranch(executionContext context.Context) (string, error) {
	remoteHead := plumbing.NewRemoteHEADReferenceName(gitRepository.remoteName)
	output, executionError := gitRepository.runner().run(executionContext, gitSymbolicRefSubcommandConstant, gitQuietFlagConstant, gitShortFlagConstant, remoteHead.String())
	if executionError != nil {
		return "", repository.NewOperationError(repository.ErrorKindIOFailure, remoteDefaultBranchOperationConstant, executionError)
	}
	branchName := strings.TrimPrefix(strings.TrimSpace(output), gitRepository.remoteName+remoteBranchSeparatorConstant)
	if len(branchName) == 0 {
		return "", repository.NewOperationError(repository.ErrorKindIOFailure, remoteDefaultBranchOperationConstant, fmt.Errorf(missingRemoteHeadTemplateConstant, gitRepository.remoteName))
	}
	return branchName, nil
}

// Pull fast-forwards the current branch. Non-transport failures are reported through the outcome.
func (gitRepository *Repository) Pull(executionContext context.Context, recurseSubmodules bool, credentials repository.Credentials) (repository.PullOutcome, error) {
	arguments := []string{gitPullSubcommandConstant, gitFastForwardOnlyFlagConstant}
	if recurseSubmodules {
		arguments = append(arguments, gitRecurseSubmodulesYesFlagConstant)
	}
	output, executionError := gitRepository.authenticatedRunner(credentials).run(executionContext, arguments...)
	if executionError != nil {
		standardError := standardErrorOf(executionError)
		if len(standardError) == 0 || isTransportFailure(standardError) {
			return repository.PullOutcome{}, classifyFailure(pullOperationConstant, executionError, repository.ErrorKindIOFailure)
		}
		return repository.PullOutcome{Successful: false, Message: strings.TrimSpace(standardError)}, nil
	}
	return repository.PullOutcome{Successful: true, Message: strings.TrimSpace(output)}, nil
}

// ListBranches lists branch refs in the requested scope sorted by ref name.
// Remote scope only includes refs of the configured remote.
func (gitRepository *Repository) ListBranches(executionContext context.Context, scope repository.BranchScope) ([]repository.BranchReference, error) {
	namespaces := make([]string, 0, 2)
	if scope == repository.BranchScopeLocal || scope == repository.BranchScopeAll {
		namespaces = append(namespaces, gitLocalBranchNamespaceConstant)
	}
	if scope == repository.BranchScopeRemote || scope == repository.BranchScopeAll {
		namespaces = append(namespaces, strings.TrimSuffix(plumbing.NewRemoteReferenceName(gitRepository.remoteName, "").String(), remoteBranchSeparatorConstant))
	}

	arguments := append([]string{gitForEachRefSubcommandConstant, gitBranchFormatFlagConstant}, namespaces...)
	output, executionError := gitRepository.runner().run(executionContext, arguments...)
	if executionError != nil {
		return nil, repository.NewOperationError(repository.ErrorKindIOFailure, listBranchesOperationConstant, executionError)
	}

	references := make([]repository.BranchReference, 0)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) < 2 || len(fields[0]) == 0 {
			continue
		}
		symbolic := len(fields) > 2 && len(strings.TrimSpace(fields[2])) > 0
		references = append(references, repository.BranchReference{
			Name:     plumbing.ReferenceName(fields[0]),
			Tip:      fields[1],
			Symbolic: symbolic,
		})
	}
	sort.Slice(references, func(leftIndex int, rightIndex int) bool {
		return references[leftIndex].Name < references[rightIndex].Name
	})
	return references, nil
}

// Checkout switches to a local branch, or creates a tracking branch from the remote when allowed.
func (gitRepository *Repository) Checkout(executionContext context.Context, branchName string, createFromRemote bool) error {
	localBranches, listError := gitRepository.ListBranches(executionContext, repository.BranchScopeLocal)
	if listError != nil {
		return listError
	}
	localReference := plumbing.NewBranchReferenceName(branchName)
	for _, localBranch := range localBranches {
		if localBranch.Name == localReference {
			if _, checkoutError := gitRepository.runner().run(executionContext, gitCheckoutSubcommandConstant, branchName); checkoutError != nil {
				return repository.NewOperationError(repository.ErrorKindCheckoutFailure, checkoutOperationConstant, checkoutError).WithReference(localReference.String())
			}
			return nil
		}
	}

	remoteReference := plumbing.NewRemoteReferenceName(gitRepository.remoteName, branchName)
	if !createFromRemote {
		return repository.NewOperationError(repository.ErrorKindCheckoutFailure, checkoutOperationConstant, fmt.Errorf(missingLocalBranchTemplateConstant, branchName)).WithReference(localReference.String())
	}
	if _, checkoutError := gitRepository.runner().run(executionContext, gitCheckoutSubcommandConstant, gitCreateBranchFlagConstant, branchName, gitTrackFlagConstant, remoteReference.Short()); checkoutError != nil {
		return repository.NewOperationError(repository.ErrorKindCheckoutFailure, checkoutOperationConstant, checkoutError).WithReference(remoteReference.String())
	}
	return nil
}

// CreateBranch creates a local branch at HEAD.
func (gitRepository *Repository) CreateBranch(executionContext context.Context, branchName string) error {
	if _, executionError := gitRepository.runner().run(executionContext, gitBranchSubcommandConstant, branchName); executionError != nil {
		return repository.NewOperationError(repository.ErrorKindIOFailure, createBranchOperationConstant, executionError).WithReference(plumbing.NewBranchReferenceName(branchName).String())
	}
	return nil
}

// DeleteBranch removes a local branch. Missing branches are ignored.
func (gitRepository *Repository) DeleteBranch(executionContext context.Context, branchName string, force bool) error {
	localBranches, listError := gitRepository.ListBranches(executionContext, repository.BranchScopeLocal)
	if listError != nil {
		return listError
	}
	localReference := plumbing.NewBranchReferenceName(branchName)
	exists := false
	for _, localBranch := range localBranches {
		if localBranch.Name == localReference {
			exists = true
			break
		}
	}
	if !exists {
		return nil
	}

	arguments := []string{gitBranchSubcommandConstant, gitDeleteFlagConstant}
	if force {
		arguments = append(arguments, gitForceFlagConstant)
	}
	arguments = append(arguments, branchName)
	if _, executionError := gitRepository.runner().run(executionContext, arguments...); executionError != nil {
		return repository.NewOperationError(repository.ErrorKindIOFailure, deleteBranchOperationConstant, executionError).WithReference(localReference.String())
	}
	return nil
}

// Push sends the refspecs to the remote and reports one update per refspec.
func (gitRepository *Repository) Push(executionContext context.Context, refSpecs []repository.RefSpec, credentials repository.Credentials) ([]repository.RemoteRefUpdate, error) {
	if len(refSpecs) == 0 {
		return nil, nil
	}
	arguments := []string{gitPushSubcommandConstant, gitPorcelainFlagConstant, gitRepository.remoteName}
	for _, refSpec := range refSpecs {
		arguments = append(arguments, refSpec.String())
	}

	runner := gitRepository.authenticatedRunner(credentials)
	result, executionError := runner.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     runner.workingDirectory,
		EnvironmentVariables: buildEnvironment(runner.credentials),
	})
	if executionError == nil {
		return parsePushPorcelain(result.StandardOutput, result.StandardError, refSpecs), nil
	}

	var commandFailure execshell.CommandFailedError
	if !errors.As(executionError, &commandFailure) {
		return nil, repository.NewOperationError(repository.ErrorKindIOFailure, pushOperationConstant, executionError)
	}
	if isTransportFailure(commandFailure.Result.StandardError) {
		return nil, repository.NewOperationError(repository.ErrorKindNetworkFailure, pushOperationConstant, executionError)
	}
	return parsePushPorcelain(commandFailure.Result.StandardOutput, commandFailure.Result.StandardError, refSpecs), nil
}

// Submodules lists gitlink entries declared in .gitmodules, in declaration order.
func (gitRepository *Repository) Submodules(executionContext context.Context) ([]repository.SubmoduleReference, error) {
	configuration, loadError := gitRepository.loadSubmoduleConfiguration()
	if loadError != nil {
		return nil, repository.NewOperationError(repository.ErrorKindIOFailure, submodulesOperationConstant, loadError)
	}
	entries := configuration.Entries()
	if len(entries) == 0 {
		return nil, nil
	}

	output, executionError := gitRepository.runner().run(executionContext, gitLsFilesSubcommandConstant, gitStageFlagConstant)
	if executionError != nil {
		return nil, repository.NewOperationError(repository.ErrorKindIOFailure, submodulesOperationConstant, executionError)
	}
	gitlinks := make(map[string]struct{})
	for _, line := range strings.Split(output, "\n") {
		metadata, entryPath, found := strings.Cut(line, "\t")
		if !found || !strings.HasPrefix(metadata, gitlinkModeConstant) {
			continue
		}
		gitlinks[entryPath] = struct{}{}
	}

	submodules := make([]repository.SubmoduleReference, 0, len(entries))
	for _, entry := range entries {
		if _, tracked := gitlinks[entry.Path]; !tracked {
			continue
		}
		submodules = append(submodules, repository.SubmoduleReference{Name: entry.Name, Path: entry.Path, URL: entry.URL})
	}
	return submodules, nil
}

// OpenSubmodule opens the submodule working tree, initializing it first when it has not been checked out.
func (gitRepository *Repository) OpenSubmodule(executionContext context.Context, submodule repository.SubmoduleReference) (repository.Repository, error) {
	submodulePath := filepath.Join(gitRepository.path, filepath.FromSlash(submodule.Path))
	if _, statError := gitRepository.fileSystem.Stat(filepath.Join(submodulePath, gitDirectoryNameConstant)); statError != nil {
		if !errors.Is(statError, fs.ErrNotExist) {
			return nil, repository.NewOperationError(repository.ErrorKindIOFailure, openSubmoduleOperationConstant, statError).WithSubmodule(submodule.Name)
		}
		initializeArguments := []string{gitSubmoduleSubcommandConstant, gitUpdateSubcommandConstant, gitInitFlagConstant, gitPathSeparatorArgumentConstant, submodule.Path}
		if _, initializeError := gitRepository.authenticatedRunner(repository.Credentials{}).run(executionContext, initializeArguments...); initializeError != nil {
			return nil, classifyFailure(openSubmoduleOperationConstant, initializeError, repository.ErrorKindIOFailure).WithSubmodule(submodule.Name)
		}
	}

	return &Repository{
		path:        submodulePath,
		remoteName:  shared.OriginRemoteNameConstant,
		executor:    gitRepository.executor,
		fileSystem:  gitRepository.fileSystem,
		credentials: gitRepository.credentials,
	}, nil
}

// SubmoduleBranch reads submodule.<path>.branch from .gitmodules.
func (gitRepository *Repository) SubmoduleBranch(executionContext context.Context, submodulePath string) (string, bool, error) {
	configuration, loadError := gitRepository.loadSubmoduleConfiguration()
	if loadError != nil {
		return "", false, repository.NewOperationError(repository.ErrorKindConfigurationFailure, readSubmoduleBranchOperationConstant, loadError).WithSubmodule(submodulePath)
	}
	branchName, found := configuration.Branch(submodulePath)
	return branchName, found, nil
}

// SetSubmoduleBranch writes submodule.<path>.branch into .gitmodules, keeping other entries intact.
func (gitRepository *Repository) SetSubmoduleBranch(executionContext context.Context, submodulePath string, branchName string) error {
	configuration, loadError := gitRepository.loadSubmoduleConfiguration()
	if loadError != nil {
		return repository.NewOperationError(repository.ErrorKindConfigurationFailure, setSubmoduleBranchOperationConstant, loadError).WithSubmodule(submodulePath)
	}
	if setError := configuration.SetBranch(submodulePath, branchName); setError != nil {
		return repository.NewOperationError(repository.ErrorKindConfigurationFailure, setSubmoduleBranchOperationConstant, setError).WithSubmodule(submodulePath)
	}
	encoded, encodeError := configuration.Encode()
	if encodeError != nil {
		return repository.NewOperationError(repository.ErrorKindConfigurationFailure, setSubmoduleBranchOperationConstant, encodeError).WithSubmodule(submodulePath)
	}
	if writeError := gitRepository.fileSystem.WriteFile(gitRepository.gitModulesPath(), encoded, gitModulesFilePermissions); writeError != nil {
		return repository.NewOperationError(repository.ErrorKindConfigurationFailure, setSubmoduleBranchOperationConstant, writeError).WithSubmodule(submodulePath)
	}
	return nil
}

// Stage adds the path to the index.
func (gitRepository *Repository) Stage(executionContext context.Context, path string) error {
	if _, executionError := gitRepository.runner().run(executionContext, gitAddSubcommandConstant, gitPathSeparatorArgumentConstant, path); executionError != nil {
		return repository.NewOperationError(repository.ErrorKindIOFailure, stageOperationConstant, executionError)
	}
	return nil
}

// Status summarizes the working tree and index.
func (gitRepository *Repository) Status(executionContext context.Context) (repository.StatusSummary, error) {
	output, executionError := gitRepository.runner().run(executionContext, gitStatusSubcommandConstant, gitPorcelainFlagConstant)
	if executionError != nil {
		return repository.StatusSummary{}, repository.NewOperationError(repository.ErrorKindIOFailure, statusOperationConstant, executionError)
	}
	return parseStatusPorcelain(output), nil
}

// Commit records the index with the identity as both author and committer and returns the new commit id.
func (gitRepository *Repository) Commit(executionContext context.Context, message string, identity repository.Identity) (string, error) {
	if !identity.IsComplete() {
		return "", repository.NewOperationError(repository.ErrorKindMissingIdentity, commitOperationConstant, fmt.Errorf(missingIdentityTemplateConstant, identity.Name, identity.Email))
	}
	environment := withIdentity(buildEnvironment(repository.Credentials{}), identity)
	runner := gitRepository.runner()
	if _, executionError := runner.runWithEnvironment(executionContext, environment, gitCommitSubcommandConstant, gitQuietFlagConstant, gitMessageFlagConstant, message); executionError != nil {
		return "", repository.NewOperationError(repository.ErrorKindIOFailure, commitOperationConstant, executionError)
	}
	output, revParseError := runner.run(executionContext, gitRevParseSubcommandConstant, gitHeadReferenceConstant)
	if revParseError != nil {
		return "", repository.NewOperationError(repository.ErrorKindIOFailure, commitOperationConstant, revParseError)
	}
	return strings.TrimSpace(output), nil
}

// CommitDetails reads author and subject metadata for a revision.
func (gitRepository *Repository) CommitDetails(executionContext context.Context, revision string) (repository.CommitDetails, error) {
	output, executionError := gitRepository.runner().run(executionContext, gitShowSubcommandConstant, gitNoPatchFlagConstant, gitCommitDetailsFormatFlagConstant, revision)
	if executionError != nil {
		return repository.CommitDetails{}, repository.NewOperationError(repository.ErrorKindIOFailure, commitDetailsOperationConstant, executionError).WithReference(revision)
	}
	details, parseError := parseCommitDetails(output, revision)
	if parseError != nil {
		return repository.CommitDetails{}, repository.NewOperationError(repository.ErrorKindIOFailure, commitDetailsOperationConstant, parseError).WithReference(revision)
	}
	return details, nil
}

// RestorePaths resets the index and working tree entries for the paths to HEAD.
func (gitRepository *Repository) RestorePaths(executionContext context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	arguments := append([]string{gitCheckoutSubcommandConstant, gitHeadReferenceConstant, gitPathSeparatorArgumentConstant}, paths...)
	if _, executionError := gitRepository.runner().run(executionContext, arguments...); executionError != nil {
		return repository.NewOperationError(repository.ErrorKindIOFailure, restorePathsOperationConstant, executionError)
	}
	return nil
}

func (gitRepository *Repository) gitModulesPath() string {
	return filepath.Join(gitRepository.path, shared.GitModulesFileNameConstant)
}

func (gitRepository *Repository) loadSubmoduleConfiguration() (*gitrepo.SubmoduleConfiguration, error) {
	contents, readError := gitRepository.fileSystem.ReadFile(gitRepository.gitModulesPath())
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return gitrepo.ParseSubmoduleConfiguration(nil)
		}
		return nil, readError
	}
	return gitrepo.ParseSubmoduleConfiguration(contents)
}

func parseCommitDetails(output string, revision string) (repository.CommitDetails, error) {
	fields := strings.SplitN(strings.TrimRight(output, "\r\n"), "\x00", commitDetailsFieldCountConstant)
	if len(fields) != commitDetailsFieldCountConstant {
		return repository.CommitDetails{}, fmt.Errorf(malformedCommitDetailsTemplateConstant, revision)
	}
	authorTime, authorTimeError := parseUnixTimestamp(fields[3])
	if authorTimeError != nil {
		return repository.CommitDetails{}, authorTimeError
	}
	commitTime, commitTimeError := parseUnixTimestamp(fields[4])
	if commitTimeError != nil {
		return repository.CommitDetails{}, commitTimeError
	}
	return repository.CommitDetails{
		ID:          strings.TrimSpace(fields[0]),
		AuthorName:  fields[1],
		AuthorEmail: fields[2],
		AuthorTime:  authorTime,
		CommitTime:  commitTime,
		Subject:     fields[5],
	}, nil
}

func parseUnixTimestamp(value string) (time.Time, error) {
	seconds, parseError := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if parseError != nil {
		return time.Time{}, fmt.Errorf(malformedTimestampTemplateConstant, value, parseError)
	}
	return time.Unix(seconds, 0).UTC(), nil
}
