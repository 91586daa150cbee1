// Package repositorytest provides an in-memory implementation of the repository
// capabilities for exercising synchronization logic without a git binary.
package repositorytest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/temirov/subsync/internal/repos/shared"
	"github.com/temirov/subsync/internal/repository"
)

// Operation names a capability whose failure can be injected.
type Operation string

// Operations supporting failure injection.
const (
	OperationListBranches       Operation = "list_branches"
	OperationCheckout           Operation = "checkout"
	OperationCreateBranch       Operation = "create_branch"
	OperationDeleteBranch       Operation = "delete_branch"
	OperationPush               Operation = "push"
	OperationSubmodules         Operation = "submodules"
	OperationOpenSubmodule      Operation = "open_submodule"
	OperationSubmoduleBranch    Operation = "submodule_branch"
	OperationSetSubmoduleBranch Operation = "set_submodule_branch"
	OperationStage              Operation = "stage"
	OperationStatus             Operation = "status"
	OperationCommit             Operation = "commit"
	OperationCommitDetails      Operation = "commit_details"
	OperationPull               Operation = "pull"
)

const (
	gitModulesPathConstant      = shared.GitModulesFileNameConstant
	commitIDTemplateConstant    = "%s-%04d"
	unknownRevisionTemplate     = "unknown revision %s"
	missingBranchTemplate       = "branch %s not found"
	missingSubmoduleTemplate    = "submodule %s not registered"
	undeclaredSubmoduleTemplate = "submodule %s not declared"
	currentBranchDeleteTemplate = "cannot delete checked out branch %s"
	missingRemoteHeadTemplate   = "remote %s has no default branch"
)

// ModuleEntry declares a submodule inside a commit tree.
type ModuleEntry struct {
	Name   string
	Path   string
	URL    string
	Branch string
}

// Tree is the part of a commit snapshot relevant to submodule tracking.
type Tree struct {
	Modules  []ModuleEntry
	Gitlinks map[string]string
}

func (tree Tree) clone() Tree {
	modules := append([]ModuleEntry(nil), tree.Modules...)
	gitlinks := make(map[string]string, len(tree.Gitlinks))
	for path, commitID := range tree.Gitlinks {
		gitlinks[path] = commitID
	}
	return Tree{Modules: modules, Gitlinks: gitlinks}
}

func (tree Tree) modulesEqual(other Tree) bool {
	if len(tree.Modules) != len(other.Modules) {
		return false
	}
	for index := range tree.Modules {
		if tree.Modules[index] != other.Modules[index] {
			return false
		}
	}
	return true
}

// CommitSpec describes a commit seeded by a test.
// Time is the author time; a zero CommitTime means the commit was recorded at Time.
type CommitSpec struct {
	Author     repository.Identity
	Time       time.Time
	CommitTime time.Time
	Subject    string
	Tree       Tree
}

// CommitRecord is a commit stored in the fake repository.
type CommitRecord struct {
	ID         string
	Author     repository.Identity
	Time       time.Time
	CommitTime time.Time
	Subject    string
	Message    string
	Tree       Tree
}

// Repository is an in-memory working copy with a single remote.
type Repository struct {
	path          string
	remoteName    string
	URL           string
	DefaultBranch string
	Now           func() time.Time
	PullOutcome   repository.PullOutcome

	commits        map[string]*CommitRecord
	commitSequence int
	localBranches  map[string]string
	remoteBranches map[string]string
	head           string
	index          Tree
	workingModules []ModuleEntry
	submodules     map[string]*Repository

	pushStatusOverrides map[plumbing.ReferenceName]repository.RefUpdateStatus
	failures            map[Operation]error

	Pushes        [][]repository.RefSpec
	CreatedCommit []CommitRecord
	RestoredPaths [][]string
	Checkouts     []string
}

// NewRepository constructs an empty fake repository rooted at the path.
func NewRepository(path string) *Repository {
	return &Repository{
		path:                path,
		remoteName:          shared.OriginRemoteNameConstant,
		Now:                 func() time.Time { return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC) },
		PullOutcome:         repository.PullOutcome{Successful: true},
		commits:             map[string]*CommitRecord{},
		localBranches:       map[string]string{},
		remoteBranches:      map[string]string{},
		index:               Tree{Gitlinks: map[string]string{}},
		submodules:          map[string]*Repository{},
		pushStatusOverrides: map[plumbing.ReferenceName]repository.RefUpdateStatus{},
		failures:            map[Operation]error{},
	}
}

// SeedCommit stores a commit and returns its identifier.
func (fake *Repository) SeedCommit(spec CommitSpec) string {
	return fake.storeCommit(CommitRecord{
		Author:     spec.Author,
		Time:       spec.Time,
		CommitTime: spec.CommitTime,
		Subject:    spec.Subject,
		Message:    spec.Subject,
		Tree:       spec.Tree.clone(),
	})
}

// SeedRemoteBranch creates a commit and points the remote branch at it.
func (fake *Repository) SeedRemoteBranch(branchName string, spec CommitSpec) string {
	commitID := fake.SeedCommit(spec)
	fake.remoteBranches[branchName] = commitID
	return commitID
}

// SetRemoteBranch points the remote branch at an existing commit.
func (fake *Repository) SetRemoteBranch(branchName string, commitID string) {
	fake.remoteBranches[branchName] = commitID
}

// SetLocalBranch points the local branch at an existing commit.
func (fake *Repository) SetLocalBranch(branchName string, commitID string) {
	fake.localBranches[branchName] = commitID
}

// CheckoutClone mimics a fresh clone: the default branch is created locally and checked out.
func (fake *Repository) CheckoutClone() {
	if len(fake.DefaultBranch) == 0 {
		return
	}
	if commitID, exists := fake.remoteBranches[fake.DefaultBranch]; exists {
		fake.localBranches[fake.DefaultBranch] = commitID
		fake.switchTo(fake.DefaultBranch)
	}
}

// RegisterSubmodule makes a submodule repository reachable at the path.
func (fake *Repository) RegisterSubmodule(submodulePath string, submodule *Repository) {
	fake.submodules[submodulePath] = submodule
}

// OverridePushStatus forces the status reported for a remote ref without applying the update.
func (fake *Repository) OverridePushStatus(remoteReference plumbing.ReferenceName, status repository.RefUpdateStatus) {
	fake.pushStatusOverrides[remoteReference] = status
}

// FailOperation makes subsequent calls of the operation return the error.
func (fake *Repository) FailOperation(operation Operation, failure error) {
	fake.failures[operation] = failure
}

// HeadCommitID returns the commit of the checked out branch.
func (fake *Repository) HeadCommitID() string {
	return fake.localBranches[fake.head]
}

// RemoteBranchNames lists remote branch names in sorted order.
func (fake *Repository) RemoteBranchNames() []string {
	return sortedKeys(fake.remoteBranches)
}

// LocalBranchNames lists local branch names in sorted order.
func (fake *Repository) LocalBranchNames() []string {
	return sortedKeys(fake.localBranches)
}

// RemoteBranchTip returns the commit a remote branch points to.
func (fake *Repository) RemoteBranchTip(branchName string) (string, bool) {
	commitID, exists := fake.remoteBranches[branchName]
	return commitID, exists
}

// CommitRecord returns a stored commit.
func (fake *Repository) CommitRecord(commitID string) (CommitRecord, bool) {
	record, exists := fake.commits[commitID]
	if !exists {
		return CommitRecord{}, false
	}
	return *record, true
}

// RemoteTree returns the tree of a remote branch tip.
func (fake *Repository) RemoteTree(branchName string) (Tree, bool) {
	commitID, exists := fake.remoteBranches[branchName]
	if !exists {
		return Tree{}, false
	}
	return fake.commits[commitID].Tree.clone(), true
}

// Path returns the configured path.
func (fake *Repository) Path() string {
	return fake.path
}

// RemoteName returns the remote name.
func (fake *Repository) RemoteName() string {
	return fake.remoteName
}

// CurrentBranch returns the checked out branch.
func (fake *Repository) CurrentBranch(context.Context) (string, error) {
	return fake.head, nil
}

// RemoteURL returns the configured URL.
func (fake *Repository) RemoteURL(context.Context) (string, error) {
	return fake.URL, nil
}

// RemoteDefaultBranch returns the configured default branch.
func (fake *Repository) RemoteDefaultBranch(context.Context) (string, error) {
	if len(fake.DefaultBranch) == 0 {
		return "", repository.NewOperationError(repository.ErrorKindIOFailure, "read remote default branch", fmt.Errorf(missingRemoteHeadTemplate, fake.remoteName))
	}
	return fake.DefaultBranch, nil
}

// Pull returns the configured outcome.
func (fake *Repository) Pull(context.Context, bool, repository.Credentials) (repository.PullOutcome, error) {
	if failure := fake.failures[OperationPull]; failure != nil {
		return repository.PullOutcome{}, failure
	}
	return fake.PullOutcome, nil
}

// ListBranches lists branches in the scope sorted by ref name, including the symbolic remote HEAD.
func (fake *Repository) ListBranches(_ context.Context, scope repository.BranchScope) ([]repository.BranchReference, error) {
	if failure := fake.failures[OperationListBranches]; failure != nil {
		return nil, failure
	}
	references := []repository.BranchReference{}
	if scope == repository.BranchScopeLocal || scope == repository.BranchScopeAll {
		for branchName, commitID := range fake.localBranches {
			references = append(references, repository.BranchReference{Name: plumbing.NewBranchReferenceName(branchName), Tip: commitID})
		}
	}
	if scope == repository.BranchScopeRemote || scope == repository.BranchScopeAll {
		for branchName, commitID := range fake.remoteBranches {
			references = append(references, repository.BranchReference{Name: plumbing.NewRemoteReferenceName(fake.remoteName, branchName), Tip: commitID})
		}
		if defaultCommit, exists := fake.remoteBranches[fake.DefaultBranch]; exists {
			references = append(references, repository.BranchReference{Name: plumbing.NewRemoteHEADReferenceName(fake.remoteName), Tip: defaultCommit, Symbolic: true})
		}
	}
	sort.Slice(references, func(leftIndex int, rightIndex int) bool {
		return references[leftIndex].Name < references[rightIndex].Name
	})
	return references, nil
}

// Checkout switches branches, creating a tracking branch from the remote when allowed.
func (fake *Repository) Checkout(_ context.Context, branchName string, createFromRemote bool) error {
	if failure := fake.failures[OperationCheckout]; failure != nil {
		return failure
	}
	if _, exists := fake.localBranches[branchName]; exists {
		fake.switchTo(branchName)
		return nil
	}
	if remoteCommit, exists := fake.remoteBranches[branchName]; exists && createFromRemote {
		fake.localBranches[branchName] = remoteCommit
		fake.switchTo(branchName)
		return nil
	}
	return repository.NewOperationError(repository.ErrorKindCheckoutFailure, "checkout branch", fmt.Errorf(missingBranchTemplate, branchName)).
		WithReference(plumbing.NewBranchReferenceName(branchName).String())
}

// CreateBranch creates a local branch at HEAD.
func (fake *Repository) CreateBranch(_ context.Context, branchName string) error {
	if failure := fake.failures[OperationCreateBranch]; failure != nil {
		return failure
	}
	fake.localBranches[branchName] = fake.HeadCommitID()
	return nil
}

// DeleteBranch removes a local branch; absent branches are ignored.
func (fake *Repository) DeleteBranch(_ context.Context, branchName string, _ bool) error {
	if failure := fake.failures[OperationDeleteBranch]; failure != nil {
		return failure
	}
	if _, exists := fake.localBranches[branchName]; !exists {
		return nil
	}
	if branchName == fake.head {
		return repository.NewOperationError(repository.ErrorKindIOFailure, "delete branch", fmt.Errorf(currentBranchDeleteTemplate, branchName))
	}
	delete(fake.localBranches, branchName)
	return nil
}

// Push applies refspecs to the remote and reports one update per refspec.
func (fake *Repository) Push(_ context.Context, refSpecs []repository.RefSpec, _ repository.Credentials) ([]repository.RemoteRefUpdate, error) {
	if failure := fake.failures[OperationPush]; failure != nil {
		return nil, failure
	}
	fake.Pushes = append(fake.Pushes, append([]repository.RefSpec(nil), refSpecs...))

	updates := make([]repository.RemoteRefUpdate, 0, len(refSpecs))
	for _, refSpec := range refSpecs {
		destinationBranch := refSpec.Destination.Short()
		update := repository.RemoteRefUpdate{RemoteName: refSpec.Destination.String()}
		if status, overridden := fake.pushStatusOverrides[refSpec.Destination]; overridden {
			update.Status = status
			updates = append(updates, update)
			continue
		}

		if refSpec.IsDeletion() {
			if _, exists := fake.remoteBranches[destinationBranch]; !exists {
				update.Status = repository.RefUpdateStatusNonExisting
			} else {
				delete(fake.remoteBranches, destinationBranch)
				update.Status = repository.RefUpdateStatusOK
			}
			updates = append(updates, update)
			continue
		}

		localCommit, exists := fake.localBranches[refSpec.Source.Short()]
		switch {
		case !exists:
			update.Status = repository.RefUpdateStatusRejectedOtherReason
		case fake.remoteBranches[destinationBranch] == localCommit:
			update.Status = repository.RefUpdateStatusUpToDate
		default:
			fake.remoteBranches[destinationBranch] = localCommit
			update.Status = repository.RefUpdateStatusOK
		}
		updates = append(updates, update)
	}
	return updates, nil
}

// Submodules lists working tree declarations that have a gitlink in the index.
func (fake *Repository) Submodules(context.Context) ([]repository.SubmoduleReference, error) {
	if failure := fake.failures[OperationSubmodules]; failure != nil {
		return nil, failure
	}
	submodules := []repository.SubmoduleReference{}
	for _, module := range fake.workingModules {
		if _, tracked := fake.index.Gitlinks[module.Path]; !tracked {
			continue
		}
		submodules = append(submodules, repository.SubmoduleReference{Name: module.Name, Path: module.Path, URL: module.URL})
	}
	return submodules, nil
}

// OpenSubmodule returns the registered submodule repository.
func (fake *Repository) OpenSubmodule(_ context.Context, submodule repository.SubmoduleReference) (repository.Repository, error) {
	if failure := fake.failures[OperationOpenSubmodule]; failure != nil {
		return nil, failure
	}
	registered, exists := fake.submodules[submodule.Path]
	if !exists {
		return nil, repository.NewOperationError(repository.ErrorKindIOFailure, "open submodule", fmt.Errorf(missingSubmoduleTemplate, submodule.Path)).WithSubmodule(submodule.Name)
	}
	return registered, nil
}

// SubmoduleBranch reads the working tree declaration branch.
func (fake *Repository) SubmoduleBranch(_ context.Context, submodulePath string) (string, bool, error) {
	if failure := fake.failures[OperationSubmoduleBranch]; failure != nil {
		return "", false, failure
	}
	for _, module := range fake.workingModules {
		if module.Path == submodulePath {
			return module.Branch, len(module.Branch) > 0, nil
		}
	}
	return "", false, nil
}

// SetSubmoduleBranch updates the working tree declaration branch.
func (fake *Repository) SetSubmoduleBranch(_ context.Context, submodulePath string, branchName string) error {
	if failure := fake.failures[OperationSetSubmoduleBranch]; failure != nil {
		return failure
	}
	for index := range fake.workingModules {
		if fake.workingModules[index].Path == submodulePath {
			fake.workingModules[index].Branch = branchName
			return nil
		}
	}
	return repository.NewOperationError(repository.ErrorKindConfigurationFailure, "set submodule branch", fmt.Errorf(undeclaredSubmoduleTemplate, submodulePath)).WithSubmodule(submodulePath)
}

// Stage copies the working state of .gitmodules or a submodule HEAD into the index.
func (fake *Repository) Stage(_ context.Context, path string) error {
	if failure := fake.failures[OperationStage]; failure != nil {
		return failure
	}
	if path == gitModulesPathConstant {
		fake.index.Modules = append([]ModuleEntry(nil), fake.workingModules...)
		return nil
	}
	submodule, exists := fake.submodules[path]
	if !exists {
		return repository.NewOperationError(repository.ErrorKindIOFailure, "stage path", fmt.Errorf(missingSubmoduleTemplate, path))
	}
	fake.index.Gitlinks[path] = submodule.HeadCommitID()
	return nil
}

// Status compares the index to the HEAD commit tree.
func (fake *Repository) Status(context.Context) (repository.StatusSummary, error) {
	if failure := fake.failures[OperationStatus]; failure != nil {
		return repository.StatusSummary{}, failure
	}
	summary := repository.StatusSummary{}
	headTree := fake.headTree()
	if !fake.index.modulesEqual(headTree) {
		if len(headTree.Modules) == 0 {
			summary.Added = append(summary.Added, gitModulesPathConstant)
		} else {
			summary.Changed = append(summary.Changed, gitModulesPathConstant)
		}
	}
	for _, path := range sortedKeys(fake.index.Gitlinks) {
		headCommit, exists := headTree.Gitlinks[path]
		switch {
		case !exists:
			summary.Added = append(summary.Added, path)
		case headCommit != fake.index.Gitlinks[path]:
			summary.Changed = append(summary.Changed, path)
		}
	}
	for _, path := range sortedKeys(headTree.Gitlinks) {
		if _, exists := fake.index.Gitlinks[path]; !exists {
			summary.Removed = append(summary.Removed, path)
		}
	}
	return summary, nil
}

// Commit records the index on the checked out branch.
func (fake *Repository) Commit(_ context.Context, message string, identity repository.Identity) (string, error) {
	if failure := fake.failures[OperationCommit]; failure != nil {
		return "", failure
	}
	if !identity.IsComplete() {
		return "", repository.NewOperationError(repository.ErrorKindMissingIdentity, "commit", repository.ErrMissingIdentity)
	}
	subject, _, _ := strings.Cut(message, "\n")
	commitID := fake.storeCommit(CommitRecord{
		Author:  identity,
		Time:    fake.Now(),
		Subject: subject,
		Message: message,
		Tree:    fake.index.clone(),
	})
	fake.localBranches[fake.head] = commitID
	fake.CreatedCommit = append(fake.CreatedCommit, *fake.commits[commitID])
	return commitID, nil
}

// CommitDetails resolves a commit id, local branch, or remote-tracking ref.
func (fake *Repository) CommitDetails(_ context.Context, revision string) (repository.CommitDetails, error) {
	if failure := fake.failures[OperationCommitDetails]; failure != nil {
		return repository.CommitDetails{}, failure
	}
	commitID := fake.resolveRevision(revision)
	record, exists := fake.commits[commitID]
	if !exists {
		return repository.CommitDetails{}, repository.NewOperationError(repository.ErrorKindIOFailure, "read commit details", fmt.Errorf(unknownRevisionTemplate, revision))
	}
	commitTime := record.CommitTime
	if commitTime.IsZero() {
		commitTime = record.Time
	}
	return repository.CommitDetails{
		ID:          record.ID,
		AuthorName:  record.Author.Name,
		AuthorEmail: record.Author.Email,
		AuthorTime:  record.Time,
		CommitTime:  commitTime,
		Subject:     record.Subject,
	}, nil
}

// RestorePaths resets the index and working declarations of the paths to HEAD.
func (fake *Repository) RestorePaths(_ context.Context, paths []string) error {
	fake.RestoredPaths = append(fake.RestoredPaths, append([]string(nil), paths...))
	headTree := fake.headTree()
	for _, path := range paths {
		if path == gitModulesPathConstant {
			fake.index.Modules = append([]ModuleEntry(nil), headTree.Modules...)
			fake.workingModules = append([]ModuleEntry(nil), headTree.Modules...)
			continue
		}
		if headCommit, exists := headTree.Gitlinks[path]; exists {
			fake.index.Gitlinks[path] = headCommit
		} else {
			delete(fake.index.Gitlinks, path)
		}
	}
	return nil
}

func (fake *Repository) switchTo(branchName string) {
	fake.head = branchName
	fake.Checkouts = append(fake.Checkouts, branchName)
	headTree := fake.headTree()
	fake.index = headTree.clone()
	fake.workingModules = append([]ModuleEntry(nil), headTree.Modules...)
}

func (fake *Repository) headTree() Tree {
	record, exists := fake.commits[fake.HeadCommitID()]
	if !exists {
		return Tree{Gitlinks: map[string]string{}}
	}
	return record.Tree.clone()
}

func (fake *Repository) storeCommit(record CommitRecord) string {
	fake.commitSequence++
	record.ID = fmt.Sprintf(commitIDTemplateConstant, sanitizeIdentifier(fake.path), fake.commitSequence)
	if record.Tree.Gitlinks == nil {
		record.Tree.Gitlinks = map[string]string{}
	}
	fake.commits[record.ID] = &record
	return record.ID
}

func (fake *Repository) resolveRevision(revision string) string {
	if _, exists := fake.commits[revision]; exists {
		return revision
	}
	reference := plumbing.ReferenceName(revision)
	if branchName, isRemote := repository.RemoteBranchName(reference, fake.remoteName); isRemote {
		return fake.remoteBranches[branchName]
	}
	if reference.IsBranch() {
		return fake.localBranches[reference.Short()]
	}
	if branchName, found := strings.CutPrefix(revision, fake.remoteName+"/"); found {
		if commitID, exists := fake.remoteBranches[branchName]; exists {
			return commitID
		}
	}
	return fake.localBranches[revision]
}

func sanitizeIdentifier(path string) string {
	trimmed := strings.Trim(path, "/")
	if len(trimmed) == 0 {
		return "repo"
	}
	return strings.ReplaceAll(trimmed, "/", "-")
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Opener serves fake repositories by URL and path.
type Opener struct {
	byURL  map[string]*Repository
	byPath map[string]*Repository
	Clones []string
}

// NewOpener constructs an empty Opener.
func NewOpener() *Opener {
	return &Opener{byURL: map[string]*Repository{}, byPath: map[string]*Repository{}}
}

// Register exposes a repository for cloning from its URL and opening at its path.
func (opener *Opener) Register(fake *Repository) {
	opener.byURL[fake.URL] = fake
	opener.byPath[fake.Path()] = fake
}

// Clone returns the repository registered for the URL after checking out its default branch.
func (opener *Opener) Clone(_ context.Context, remoteURL string, destinationPath string, _ repository.Credentials) (repository.Repository, error) {
	fake, exists := opener.byURL[remoteURL]
	if !exists {
		return nil, repository.NewOperationError(repository.ErrorKindNetworkFailure, "clone repository", errors.New(remoteURL))
	}
	opener.Clones = append(opener.Clones, destinationPath)
	fake.path = destinationPath
	opener.byPath[destinationPath] = fake
	fake.CheckoutClone()
	return fake, nil
}

// Open returns the repository registered at the path.
func (opener *Opener) Open(_ context.Context, repositoryPath string) (repository.Repository, error) {
	fake, exists := opener.byPath[repositoryPath]
	if !exists {
		return nil, repository.NewOperationError(repository.ErrorKindIOFailure, "open repository", errors.New(repositoryPath))
	}
	return fake, nil
}
