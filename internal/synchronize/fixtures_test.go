package synchronize_test

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/temirov/subsync/internal/repository"
	"github.com/temirov/subsync/internal/repository/repositorytest"
	"github.com/temirov/subsync/internal/synchronize"
)

const (
	testParentURLConstant               = "https://example.com/org/parent.git"
	testParentPathConstant              = "/workspace/parent"
	testLibraryAURLConstant             = "https://example.com/org/libA.git"
	testLibraryBURLConstant             = "https://example.com/org/libB.git"
	testDefaultBranchConstant           = "master"
	testFeatureXBranchConstant          = "feature-x"
	testFeatureYBranchConstant          = "feature-y"
	testStaleBranchConstant             = "stale"
	testLibraryAConstant                = "libA"
	testLibraryBConstant                = "libB"
	testFeatureXSubjectConstant         = "Add x"
	testFeatureYSubjectConstant         = "Add y"
	testLibraryBMasterSubjectConstant   = "Fix B"
	testLibraryAMasterSubjectConstant   = "Initial A"
	testStaleSubjectConstant            = "Old work"
	testParentSubjectConstant           = "Add submodules"
	testGitModulesPathConstant          = ".gitmodules"
	testInactivityThresholdDaysConstant = 90
	testTemporaryDirectoryConstant      = "/tmp/subsync-1"
	testRemoteNameConstant              = "origin"
	testAnonymousSubjectConstant        = "Anonymous change"
)

var (
	testNow             = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	testAliceIdentity   = repository.Identity{Name: "Alice", Email: "alice@example.com"}
	testBobIdentity     = repository.Identity{Name: "Bob", Email: "bob@example.com"}
	testDefaultIdentity = repository.Identity{Name: "Sync Bot", Email: "sync@example.com"}
)

type fixedClock struct {
	now time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.now
}

func daysAgo(days int) time.Time {
	return testNow.AddDate(0, 0, -days)
}

// synchronizationFixture is a parent with two submodules:
// libA has an active feature-x, an inactive master and an inactive stale branch;
// libB has an active master and an active feature-y.
// The parent remote holds master and stale.
type synchronizationFixture struct {
	parent          *repositorytest.Repository
	libraryA        *repositorytest.Repository
	libraryB        *repositorytest.Repository
	libraryAMaster  string
	libraryAFeature string
	libraryBMaster  string
	libraryBFeature string
}

func newSynchronizationFixture() *synchronizationFixture {
	fixture := &synchronizationFixture{}

	fixture.libraryA = repositorytest.NewRepository(testParentPathConstant + "/" + testLibraryAConstant)
	fixture.libraryA.URL = testLibraryAURLConstant
	fixture.libraryA.DefaultBranch = testDefaultBranchConstant
	fixture.libraryAMaster = fixture.libraryA.SeedRemoteBranch(testDefaultBranchConstant, repositorytest.CommitSpec{Author: testAliceIdentity, Time: daysAgo(200), Subject: testLibraryAMasterSubjectConstant})
	fixture.libraryAFeature = fixture.libraryA.SeedRemoteBranch(testFeatureXBranchConstant, repositorytest.CommitSpec{Author: testAliceIdentity, Time: daysAgo(10), Subject: testFeatureXSubjectConstant})
	fixture.libraryA.SeedRemoteBranch(testStaleBranchConstant, repositorytest.CommitSpec{Author: testAliceIdentity, Time: daysAgo(120), Subject: testStaleSubjectConstant})

	fixture.libraryB = repositorytest.NewRepository(testParentPathConstant + "/" + testLibraryBConstant)
	fixture.libraryB.URL = testLibraryBURLConstant
	fixture.libraryB.DefaultBranch = testDefaultBranchConstant
	fixture.libraryBMaster = fixture.libraryB.SeedRemoteBranch(testDefaultBranchConstant, repositorytest.CommitSpec{Author: testBobIdentity, Time: daysAgo(1), Subject: testLibraryBMasterSubjectConstant})
	fixture.libraryBFeature = fixture.libraryB.SeedRemoteBranch(testFeatureYBranchConstant, repositorytest.CommitSpec{Author: testBobIdentity, Time: daysAgo(5), Subject: testFeatureYSubjectConstant})

	fixture.parent = repositorytest.NewRepository(testParentPathConstant)
	fixture.parent.URL = testParentURLConstant
	fixture.parent.DefaultBranch = testDefaultBranchConstant
	parentTree := repositorytest.Tree{
		Modules: []repositorytest.ModuleEntry{
			{Name: testLibraryAConstant, Path: testLibraryAConstant, URL: testLibraryAURLConstant},
			{Name: testLibraryBConstant, Path: testLibraryBConstant, URL: testLibraryBURLConstant},
		},
		Gitlinks: map[string]string{
			testLibraryAConstant: fixture.libraryAMaster,
			testLibraryBConstant: fixture.libraryBMaster,
		},
	}
	parentMaster := fixture.parent.SeedRemoteBranch(testDefaultBranchConstant, repositorytest.CommitSpec{Author: testDefaultIdentity, Time: daysAgo(30), Subject: testParentSubjectConstant, Tree: parentTree})
	fixture.parent.SetRemoteBranch(testStaleBranchConstant, parentMaster)
	fixture.parent.RegisterSubmodule(testLibraryAConstant, fixture.libraryA)
	fixture.parent.RegisterSubmodule(testLibraryBConstant, fixture.libraryB)
	fixture.parent.CheckoutClone()

	return fixture
}

func anonymousCommitSpec() repositorytest.CommitSpec {
	return repositorytest.CommitSpec{Time: daysAgo(1), Subject: testAnonymousSubjectConstant}
}

func (fixture *synchronizationFixture) syncContext(dryRun bool) synchronize.SyncContext {
	defaultIdentity := testDefaultIdentity
	return synchronize.SyncContext{
		RemoteName:              testRemoteNameConstant,
		DefaultBranch:           testDefaultBranchConstant,
		DefaultIdentity:         &defaultIdentity,
		InactivityThresholdDays: testInactivityThresholdDaysConstant,
		DryRun:                  dryRun,
		Clock:                   fixedClock{now: testNow},
	}
}

type stubFileInfo struct {
	fs.FileInfo
}

// memoryFileSystem records workspace and report operations on an in-memory path set.
type memoryFileSystem struct {
	workingDirectory string
	existing         map[string]struct{}
	files            map[string][]byte
	removed          []string
	created          []string
	temporaryCount   int
	removeError      error
	writeError       error
}

func newMemoryFileSystem(existingPaths ...string) *memoryFileSystem {
	fileSystem := &memoryFileSystem{
		workingDirectory: "/work",
		existing:         map[string]struct{}{},
		files:            map[string][]byte{},
	}
	for _, existingPath := range existingPaths {
		fileSystem.existing[existingPath] = struct{}{}
	}
	return fileSystem
}

func (fileSystem *memoryFileSystem) Stat(path string) (fs.FileInfo, error) {
	if _, exists := fileSystem.existing[path]; exists {
		return stubFileInfo{}, nil
	}
	return nil, fs.ErrNotExist
}

func (fileSystem *memoryFileSystem) Abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Join(fileSystem.workingDirectory, path), nil
}

func (fileSystem *memoryFileSystem) MkdirAll(path string, _ fs.FileMode) error {
	fileSystem.created = append(fileSystem.created, path)
	fileSystem.existing[path] = struct{}{}
	return nil
}

func (fileSystem *memoryFileSystem) MkdirTemp(_ string, pattern string) (string, error) {
	fileSystem.temporaryCount++
	temporaryPath := "/tmp/" + pattern + strconv.Itoa(fileSystem.temporaryCount)
	fileSystem.existing[temporaryPath] = struct{}{}
	return temporaryPath, nil
}

func (fileSystem *memoryFileSystem) RemoveAll(path string) error {
	if fileSystem.removeError != nil {
		return fileSystem.removeError
	}
	fileSystem.removed = append(fileSystem.removed, path)
	delete(fileSystem.existing, path)
	return nil
}

func (fileSystem *memoryFileSystem) ReadFile(path string) ([]byte, error) {
	content, exists := fileSystem.files[path]
	if !exists {
		return nil, fs.ErrNotExist
	}
	return content, nil
}

func (fileSystem *memoryFileSystem) WriteFile(path string, data []byte, _ fs.FileMode) error {
	if fileSystem.writeError != nil {
		return fileSystem.writeError
	}
	fileSystem.files[path] = append([]byte(nil), data...)
	return nil
}

func (fileSystem *memoryFileSystem) writtenPaths() []string {
	paths := make([]string, 0, len(fileSystem.files))
	for path := range fileSystem.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

var errInjectedFailure = errors.New("injected failure")
