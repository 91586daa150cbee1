// Package filesystem provides the operating-system backed shared.FileSystem used outside tests.
package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const replacementPatternSuffixConstant = ".partial-*"

// OSFileSystem implements shared.FileSystem with the os package. WriteFile replaces files atomically so an
// interrupted run never leaves a truncated report behind.
type OSFileSystem struct{}

func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (OSFileSystem) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

func (OSFileSystem) MkdirTemp(directory string, pattern string) (string, error) {
	return os.MkdirTemp(directory, pattern)
}

func (OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile stages data in a sibling file and renames it over path.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) (writeError error) {
	stagingFile, createError := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+replacementPatternSuffixConstant)
	if createError != nil {
		return createError
	}
	stagingPath := stagingFile.Name()
	defer func() {
		if writeError != nil {
			_ = os.Remove(stagingPath)
		}
	}()

	_, copyError := stagingFile.Write(data)
	closeError := stagingFile.Close()
	if joinedError := errors.Join(copyError, closeError); joinedError != nil {
		return joinedError
	}
	if chmodError := os.Chmod(stagingPath, permissions); chmodError != nil {
		return chmodError
	}
	return os.Rename(stagingPath, path)
}
