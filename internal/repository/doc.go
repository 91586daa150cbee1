// Package repository defines the git capabilities required to synchronize a
// parent repository with its submodules, together with the error kinds and
// remote ref update validation shared by every implementation.
package repository
