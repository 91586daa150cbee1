package gitrepo

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	sshProtocolPrefixConstant           = "ssh://"
	httpsProtocolPrefixConstant         = "https://"
	httpProtocolPrefixConstant          = "http://"
	sshUserDelimiterConstant            = "@"
	sshPathDelimiterConstant            = ":"
	pathSeparatorConstant               = "/"
	gitSuffixConstant                   = ".git"
	remoteURLParseErrorTemplateConstant = "%s: %s"
	invalidRemoteURLMessageConstant     = "invalid remote url"
	requiredValueMessageConstant        = "value required"
)

// RemoteProtocol enumerates supported git remote protocols.
type RemoteProtocol string

// Supported remote protocols.
const (
	RemoteProtocolSSH   RemoteProtocol = RemoteProtocol("ssh")
	RemoteProtocolHTTPS RemoteProtocol = RemoteProtocol("https")
	RemoteProtocolHTTP  RemoteProtocol = RemoteProtocol("http")
)

// RemoteURL represents a structured git remote URL.
type RemoteURL struct {
	Protocol   RemoteProtocol
	Host       string
	Owner      string
	Repository string
}

// RemoteURLParseError indicates a remote string could not be parsed.
type RemoteURLParseError struct {
	Input   string
	Message string
}

// Error describes the parse failure.
func (parseError RemoteURLParseError) Error() string {
	return fmt.Sprintf(remoteURLParseErrorTemplateConstant, parseError.Input, parseError.Message)
}

// ParseRemoteURL converts a textual remote URL into a structured representation.
// Nested group paths keep everything after the owner segment in Repository.
func ParseRemoteURL(remote string) (RemoteURL, error) {
	trimmedRemote := strings.TrimSpace(remote)
	if len(trimmedRemote) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: requiredValueMessageConstant}
	}

	switch {
	case strings.HasPrefix(trimmedRemote, sshProtocolPrefixConstant):
		return parseHierarchicalRemote(RemoteProtocolSSH, strings.TrimPrefix(trimmedRemote, sshProtocolPrefixConstant))
	case strings.HasPrefix(trimmedRemote, httpsProtocolPrefixConstant):
		return parseHierarchicalRemote(RemoteProtocolHTTPS, strings.TrimPrefix(trimmedRemote, httpsProtocolPrefixConstant))
	case strings.HasPrefix(trimmedRemote, httpProtocolPrefixConstant):
		return parseHierarchicalRemote(RemoteProtocolHTTP, strings.TrimPrefix(trimmedRemote, httpProtocolPrefixConstant))
	case strings.Contains(trimmedRemote, sshUserDelimiterConstant) && strings.Contains(trimmedRemote, sshPathDelimiterConstant):
		return parseScpLikeRemote(trimmedRemote)
	default:
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
}

// SameRepository reports whether two remote URLs refer to the same repository,
// ignoring protocol, credentials, ports, letter case, and a trailing .git suffix.
// Values that are not URLs, such as local paths, are compared as cleaned paths.
func SameRepository(firstRemote string, secondRemote string) bool {
	firstParsed, firstError := ParseRemoteURL(firstRemote)
	secondParsed, secondError := ParseRemoteURL(secondRemote)
	if firstError != nil || secondError != nil {
		return normalizeLocalRemote(firstRemote) == normalizeLocalRemote(secondRemote)
	}
	return strings.EqualFold(firstParsed.Host, secondParsed.Host) &&
		strings.EqualFold(firstParsed.Owner, secondParsed.Owner) &&
		strings.EqualFold(firstParsed.Repository, secondParsed.Repository)
}

func parseHierarchicalRemote(protocol RemoteProtocol, remote string) (RemoteURL, error) {
	hostAndPath := remote
	if userSplitIndex := strings.Index(hostAndPath, sshUserDelimiterConstant); userSplitIndex != -1 {
		slashIndex := strings.Index(hostAndPath, pathSeparatorConstant)
		if slashIndex == -1 || userSplitIndex < slashIndex {
			hostAndPath = hostAndPath[userSplitIndex+1:]
		}
	}

	host, path, found := strings.Cut(hostAndPath, pathSeparatorConstant)
	if !found {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	host, _, _ = strings.Cut(host, sshPathDelimiterConstant)
	return buildRemoteURL(protocol, host, path, remote)
}

func parseScpLikeRemote(remote string) (RemoteURL, error) {
	userSplitIndex := strings.Index(remote, sshUserDelimiterConstant)
	hostAndPath := remote[userSplitIndex+1:]
	host, path, found := strings.Cut(hostAndPath, sshPathDelimiterConstant)
	if !found {
		return RemoteURL{}, RemoteURLParseError{Input: remote, Message: invalidRemoteURLMessageConstant}
	}
	return buildRemoteURL(RemoteProtocolSSH, host, path, remote)
}

func buildRemoteURL(protocol RemoteProtocol, host string, path string, input string) (RemoteURL, error) {
	trimmedPath := strings.Trim(path, pathSeparatorConstant)
	owner, repository, found := strings.Cut(trimmedPath, pathSeparatorConstant)
	if len(host) == 0 || !found || len(owner) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}
	normalizedRepository := strings.TrimSuffix(repository, gitSuffixConstant)
	if len(normalizedRepository) == 0 {
		return RemoteURL{}, RemoteURLParseError{Input: input, Message: invalidRemoteURLMessageConstant}
	}
	return RemoteURL{Protocol: protocol, Host: host, Owner: owner, Repository: normalizedRepository}, nil
}

func normalizeLocalRemote(remote string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(remote), "file://")
	if len(trimmed) == 0 {
		return trimmed
	}
	return strings.TrimSuffix(filepath.Clean(trimmed), gitSuffixConstant)
}
