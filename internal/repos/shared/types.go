package shared

import (
	"context"
	"io/fs"
	"time"

	"github.com/temirov/subsync/internal/execshell"
)

const (
	// OriginRemoteNameConstant identifies the default upstream remote.
	OriginRemoteNameConstant = "origin"
	// GitModulesFileNameConstant names the submodule declaration file at a repository root.
	GitModulesFileNameConstant = ".gitmodules"
)

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FileSystem exposes filesystem operations required by workspace and report handling.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Abs(path string) (string, error)
	MkdirAll(path string, permissions fs.FileMode) error
	MkdirTemp(directory string, pattern string) (string, error)
	RemoveAll(path string) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// GitExecutor exposes the subset of shell execution used by repository adapters.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}
