// Package ui renders git command lifecycle events for people watching a console.
//
// Messages come from the execshell formatter; URL arguments have their passwords masked before they are printed.
package ui
