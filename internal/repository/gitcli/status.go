package gitcli

import (
	"strings"

	"github.com/temirov/subsync/internal/repository"
)

const (
	statusUntrackedMarkerConstant = "??"
	statusIgnoredMarkerConstant   = "!!"
	statusRenameSeparatorConstant = " -> "
	statusMinimumLineLength       = 4
)

// parseStatusPorcelain groups `git status --porcelain` (v1) lines by their index state.
func parseStatusPorcelain(output string) repository.StatusSummary {
	summary := repository.StatusSummary{}
	for _, line := range strings.Split(output, "\n") {
		trimmedLine := strings.TrimRight(line, "\r")
		if len(trimmedLine) < statusMinimumLineLength {
			continue
		}
		marker := trimmedLine[:2]
		path := trimmedLine[3:]
		if _, renamedPath, renamed := strings.Cut(path, statusRenameSeparatorConstant); renamed {
			path = renamedPath
		}
		path = strings.Trim(path, `"`)

		switch {
		case marker == statusUntrackedMarkerConstant:
			summary.Untracked = append(summary.Untracked, path)
		case marker == statusIgnoredMarkerConstant:
			continue
		case isConflictMarker(marker):
			summary.Conflicting = append(summary.Conflicting, path)
		default:
			switch marker[0] {
			case 'A':
				summary.Added = append(summary.Added, path)
			case 'M', 'T', 'R', 'C':
				summary.Changed = append(summary.Changed, path)
			case 'D':
				summary.Removed = append(summary.Removed, path)
			}
		}
	}
	return summary
}

func isConflictMarker(marker string) bool {
	if marker == "AA" || marker == "DD" {
		return true
	}
	return marker[0] == 'U' || marker[1] == 'U'
}
