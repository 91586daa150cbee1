package repository

import (
	"context"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// BranchScope selects which branch namespaces are listed.
type BranchScope int

// Supported branch scopes.
const (
	BranchScopeLocal BranchScope = iota
	BranchScopeRemote
	BranchScopeAll
)

// BranchReference describes a branch ref and the commit it points to.
type BranchReference struct {
	Name     plumbing.ReferenceName
	Tip      string
	Symbolic bool
}

// ShortName returns the abbreviated ref name, such as "main" or "origin/main".
func (reference BranchReference) ShortName() string {
	return reference.Name.Short()
}

// Credentials carries HTTP basic authentication values. Empty credentials mean anonymous access.
type Credentials struct {
	Username string
	Password string
}

// IsEmpty reports whether no credentials were configured.
func (credentials Credentials) IsEmpty() bool {
	return len(credentials.Username) == 0 && len(credentials.Password) == 0
}

// Identity names a commit author or committer.
type Identity struct {
	Name  string
	Email string
}

// IsComplete reports whether both name and email are present.
func (identity Identity) IsComplete() bool {
	return len(identity.Name) > 0 && len(identity.Email) > 0
}

// CommitDetails captures the metadata of a single commit.
type CommitDetails struct {
	ID          string
	AuthorName  string
	AuthorEmail string
	AuthorTime  time.Time
	CommitTime  time.Time
	Subject     string
}

// Author returns the commit author as an Identity.
func (details CommitDetails) Author() Identity {
	return Identity{Name: details.AuthorName, Email: details.AuthorEmail}
}

// SubmoduleReference identifies a submodule declared in .gitmodules.
type SubmoduleReference struct {
	Name string
	Path string
	URL  string
}

// StatusSummary groups paths reported by the working tree status.
type StatusSummary struct {
	Added       []string
	Changed     []string
	Removed     []string
	Untracked   []string
	Conflicting []string
}

// HasStagedChanges reports whether the index differs from HEAD.
func (summary StatusSummary) HasStagedChanges() bool {
	return len(summary.Added) > 0 || len(summary.Changed) > 0 || len(summary.Removed) > 0
}

// RefSpec maps a local ref to a remote ref. An empty source deletes the destination.
type RefSpec struct {
	Source      plumbing.ReferenceName
	Destination plumbing.ReferenceName
}

// NewBranchRefSpec pushes a local branch to the equally named remote branch.
func NewBranchRefSpec(branchName string) RefSpec {
	branchReference := plumbing.NewBranchReferenceName(branchName)
	return RefSpec{Source: branchReference, Destination: branchReference}
}

// NewDeletionRefSpec deletes a remote branch.
func NewDeletionRefSpec(branchName string) RefSpec {
	return RefSpec{Destination: plumbing.NewBranchReferenceName(branchName)}
}

// IsDeletion reports whether the refspec deletes its destination.
func (refSpec RefSpec) IsDeletion() bool {
	return len(refSpec.Source) == 0
}

// String renders the refspec in git's source:destination notation.
func (refSpec RefSpec) String() string {
	return refSpec.Source.String() + ":" + refSpec.Destination.String()
}

// PullOutcome reports whether a pull brought the working copy up to date.
type PullOutcome struct {
	Successful bool
	Message    string
}

// Opener clones or opens repositories.
type Opener interface {
	Clone(executionContext context.Context, remoteURL string, destinationPath string, credentials Credentials) (Repository, error)
	Open(executionContext context.Context, repositoryPath string) (Repository, error)
}

// Repository exposes the git operations used during synchronization.
type Repository interface {
	Path() string
	RemoteName() string
	CurrentBranch(executionContext context.Context) (string, error)
	RemoteURL(executionContext context.Context) (string, error)
	RemoteDefaultBranch(executionContext context.Context) (string, error)
	Pull(executionContext context.Context, recurseSubmodules bool, credentials Credentials) (PullOutcome, error)

	ListBranches(executionContext context.Context, scope BranchScope) ([]BranchReference, error)
	Checkout(executionContext context.Context, branchName string, createFromRemote bool) error
	CreateBranch(executionContext context.Context, branchName string) error
	DeleteBranch(executionContext context.Context, branchName string, force bool) error
	Push(executionContext context.Context, refSpecs []RefSpec, credentials Credentials) ([]RemoteRefUpdate, error)

	Submodules(executionContext context.Context) ([]SubmoduleReference, error)
	OpenSubmodule(executionContext context.Context, submodule SubmoduleReference) (Repository, error)
	SubmoduleBranch(executionContext context.Context, submodulePath string) (string, bool, error)
	SetSubmoduleBranch(executionContext context.Context, submodulePath string, branchName string) error

	Stage(executionContext context.Context, path string) error
	Status(executionContext context.Context) (StatusSummary, error)
	Commit(executionContext context.Context, message string, identity Identity) (string, error)
	CommitDetails(executionContext context.Context, revision string) (CommitDetails, error)
	RestorePaths(executionContext context.Context, paths []string) error
}

// RemoteBranchName returns the branch name of a remote-tracking ref under the given remote.
// The boolean result is false for refs outside refs/remotes/<remote>/.
func RemoteBranchName(reference plumbing.ReferenceName, remoteName string) (string, bool) {
	if !reference.IsRemote() {
		return "", false
	}
	prefix := plumbing.NewRemoteReferenceName(remoteName, "").String()
	name := reference.String()
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return "", false
	}
	return name[len(prefix):], true
}
