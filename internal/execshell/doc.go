// Package execshell provides structured helpers for invoking git.
//
// It wraps os/exec with lifecycle logging via ShellExecutor, exposes
// OSCommandRunner for default process execution, and reports failures as
// CommandFailedError values that keep the captured output so callers can
// inspect porcelain results of rejected operations.
package execshell
