package gitcli

import (
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/temirov/subsync/internal/repository"
)

const (
	porcelainFieldSeparatorConstant   = "\t"
	porcelainRefSeparatorConstant     = ":"
	porcelainFieldCountConstant       = 3
	porcelainFlagSuccessConstant      = " "
	porcelainFlagForcedConstant       = "+"
	porcelainFlagDeletedConstant      = "-"
	porcelainFlagNewConstant          = "*"
	porcelainFlagRejectedConstant     = "!"
	porcelainFlagUpToDateConstant     = "="
	nonFastForwardSummaryConstant     = "non-fast-forward"
	fetchFirstSummaryConstant         = "fetch first"
	staleInfoSummaryConstant          = "stale info"
	deletionProhibitedSummaryConstant = "deletion prohibited"
	missingRemoteRefTemplateConstant  = "unable to delete '%s': remote ref does not exist"
)

// parsePushPorcelain maps `git push --porcelain` output onto one RemoteRefUpdate per requested refspec.
// Refspecs without a porcelain line are reported as NON_EXISTING when git states that the
// remote ref is missing and NOT_ATTEMPTED otherwise.
func parsePushPorcelain(standardOutput string, standardError string, refSpecs []repository.RefSpec) []repository.RemoteRefUpdate {
	reported := make(map[plumbing.ReferenceName]repository.RemoteRefUpdate)
	for _, line := range strings.Split(standardOutput, "\n") {
		fields := strings.SplitN(strings.TrimRight(line, "\r"), porcelainFieldSeparatorConstant, porcelainFieldCountConstant)
		if len(fields) != porcelainFieldCountConstant || len(fields[0]) != 1 {
			continue
		}
		_, destination, found := strings.Cut(fields[1], porcelainRefSeparatorConstant)
		if !found {
			continue
		}
		destinationReference := plumbing.ReferenceName(destination)
		reported[destinationReference] = repository.RemoteRefUpdate{
			RemoteName: destination,
			Status:     porcelainStatus(fields[0], fields[2]),
			Message:    strings.TrimSpace(fields[2]),
		}
	}

	updates := make([]repository.RemoteRefUpdate, 0, len(refSpecs))
	for _, refSpec := range refSpecs {
		if update, exists := reported[refSpec.Destination]; exists {
			updates = append(updates, update)
			continue
		}
		status := repository.RefUpdateStatusNotAttempted
		message := ""
		if refSpec.IsDeletion() && remoteRefMissing(standardError, refSpec.Destination) {
			status = repository.RefUpdateStatusNonExisting
			message = fmt.Sprintf(missingRemoteRefTemplateConstant, refSpec.Destination.Short())
		}
		updates = append(updates, repository.RemoteRefUpdate{
			RemoteName: refSpec.Destination.String(),
			Status:     status,
			Message:    message,
		})
	}
	return updates
}

func porcelainStatus(flag string, summary string) repository.RefUpdateStatus {
	switch flag {
	case porcelainFlagSuccessConstant, porcelainFlagForcedConstant, porcelainFlagDeletedConstant, porcelainFlagNewConstant:
		return repository.RefUpdateStatusOK
	case porcelainFlagUpToDateConstant:
		return repository.RefUpdateStatusUpToDate
	case porcelainFlagRejectedConstant:
		normalizedSummary := strings.ToLower(summary)
		switch {
		case strings.Contains(normalizedSummary, nonFastForwardSummaryConstant), strings.Contains(normalizedSummary, fetchFirstSummaryConstant):
			return repository.RefUpdateStatusRejectedNonFastForward
		case strings.Contains(normalizedSummary, staleInfoSummaryConstant):
			return repository.RefUpdateStatusRejectedRemoteChanged
		case strings.Contains(normalizedSummary, deletionProhibitedSummaryConstant):
			return repository.RefUpdateStatusRejectedNoDelete
		default:
			return repository.RefUpdateStatusRejectedOtherReason
		}
	default:
		return repository.RefUpdateStatusRejectedOtherReason
	}
}

func remoteRefMissing(standardError string, destination plumbing.ReferenceName) bool {
	for _, candidate := range []string{destination.String(), destination.Short()} {
		if strings.Contains(standardError, fmt.Sprintf(missingRemoteRefTemplateConstant, candidate)) {
			return true
		}
	}
	return false
}
