package gitrepo

import (
	"bytes"
	"errors"
	"fmt"

	formatconfig "github.com/go-git/go-git/v5/plumbing/format/config"
)

const (
	submoduleSectionNameConstant          = "submodule"
	submodulePathOptionConstant           = "path"
	submoduleURLOptionConstant            = "url"
	submoduleBranchOptionConstant         = "branch"
	submoduleDecodeErrorTemplateConstant  = "decode submodule configuration: %w"
	submoduleEncodeErrorTemplateConstant  = "encode submodule configuration: %w"
	submoduleMissingErrorTemplateConstant = "%w: %s"
	submoduleNotDeclaredMessageConstant   = "submodule not declared"
)

// ErrSubmoduleNotDeclared indicates that no .gitmodules entry matches a path.
var ErrSubmoduleNotDeclared = errors.New(submoduleNotDeclaredMessageConstant)

// SubmoduleEntry is one [submodule "<name>"] section of .gitmodules.
type SubmoduleEntry struct {
	Name   string
	Path   string
	URL    string
	Branch string
}

// SubmoduleConfiguration is a decoded .gitmodules document that keeps section order on save.
type SubmoduleConfiguration struct {
	document *formatconfig.Config
}

// ParseSubmoduleConfiguration decodes .gitmodules contents. Empty input yields an empty configuration.
func ParseSubmoduleConfiguration(contents []byte) (*SubmoduleConfiguration, error) {
	document := formatconfig.New()
	if len(bytes.TrimSpace(contents)) > 0 {
		if decodeError := formatconfig.NewDecoder(bytes.NewReader(contents)).Decode(document); decodeError != nil {
			return nil, fmt.Errorf(submoduleDecodeErrorTemplateConstant, decodeError)
		}
	}
	return &SubmoduleConfiguration{document: document}, nil
}

// Entries lists declared submodules in file order. Entries without a path fall back to their name.
func (configuration *SubmoduleConfiguration) Entries() []SubmoduleEntry {
	if !configuration.document.HasSection(submoduleSectionNameConstant) {
		return nil
	}
	section := configuration.document.Section(submoduleSectionNameConstant)
	entries := make([]SubmoduleEntry, 0, len(section.Subsections))
	for _, subsection := range section.Subsections {
		entryPath := subsection.Option(submodulePathOptionConstant)
		if len(entryPath) == 0 {
			entryPath = subsection.Name
		}
		entries = append(entries, SubmoduleEntry{
			Name:   subsection.Name,
			Path:   entryPath,
			URL:    subsection.Option(submoduleURLOptionConstant),
			Branch: subsection.Option(submoduleBranchOptionConstant),
		})
	}
	return entries
}

// Branch returns the configured tracking branch for the submodule at the path.
func (configuration *SubmoduleConfiguration) Branch(submodulePath string) (string, bool) {
	subsection := configuration.findSubsection(submodulePath)
	if subsection == nil {
		return "", false
	}
	branch := subsection.Option(submoduleBranchOptionConstant)
	return branch, len(branch) > 0
}

// SetBranch records the tracking branch for the submodule at the path.
func (configuration *SubmoduleConfiguration) SetBranch(submodulePath string, branchName string) error {
	subsection := configuration.findSubsection(submodulePath)
	if subsection == nil {
		return fmt.Errorf(submoduleMissingErrorTemplateConstant, ErrSubmoduleNotDeclared, submodulePath)
	}
	subsection.SetOption(submoduleBranchOptionConstant, branchName)
	return nil
}

// Encode renders the configuration back to .gitmodules syntax.
func (configuration *SubmoduleConfiguration) Encode() ([]byte, error) {
	var buffer bytes.Buffer
	if encodeError := formatconfig.NewEncoder(&buffer).Encode(configuration.document); encodeError != nil {
		return nil, fmt.Errorf(submoduleEncodeErrorTemplateConstant, encodeError)
	}
	return buffer.Bytes(), nil
}

func (configuration *SubmoduleConfiguration) findSubsection(submodulePath string) *formatconfig.Subsection {
	if !configuration.document.HasSection(submoduleSectionNameConstant) {
		return nil
	}
	section := configuration.document.Section(submoduleSectionNameConstant)
	var nameMatch *formatconfig.Subsection
	for _, subsection := range section.Subsections {
		if subsection.Option(submodulePathOptionConstant) == submodulePath {
			return subsection
		}
		if subsection.Name == submodulePath && nameMatch == nil {
			nameMatch = subsection
		}
	}
	return nameMatch
}
