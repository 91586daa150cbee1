package synchronize

import (
	"errors"
	"strings"

	"github.com/temirov/subsync/internal/report"
	"github.com/temirov/subsync/internal/repos/shared"
	"github.com/temirov/subsync/internal/repository"
)

const (
	defaultReportPathConstant              = "syncReport.md"
	defaultInactivityThresholdDaysConstant = 90
	configurationKeySeparatorConstant      = "."
	urlConfigurationKeyConstant            = "url"
	folderConfigurationKeyConstant         = "folder"
	userConfigurationKeyConstant           = "user"
	passwordConfigurationKeyConstant       = "password"
	committerNameConfigurationKeyConstant  = "committer_name"
	committerEmailConfigurationKeyConstant = "committer_email"
	dryRunConfigurationKeyConstant         = "dry_run"
	reportConfigurationKeyConstant         = "report"
	reportFormatConfigurationKeyConstant   = "report_format"
	thresholdConfigurationKeyConstant      = "inactivity_threshold"
	reuseConfigurationKeyConstant          = "reuse_workspace"
	remoteConfigurationKeyConstant         = "remote"
	defaultBranchConfigurationKeyConstant  = "default_branch"
	missingURLMessageConstant              = "parent repository url is required; supply --url"
	partialIdentityMessageConstant         = "committer name and email must be supplied together"
)

var (
	// ErrURLRequired indicates that the parent repository URL was not configured.
	ErrURLRequired = errors.New(missingURLMessageConstant)
	// ErrPartialIdentity indicates that only one of committer name and email was configured.
	ErrPartialIdentity = errors.New(partialIdentityMessageConstant)
)

// CommandConfiguration captures configuration values for the sync command.
type CommandConfiguration struct {
	URL                     string `mapstructure:"url"`
	Folder                  string `mapstructure:"folder"`
	User                    string `mapstructure:"user"`
	Password                string `mapstructure:"password"`
	CommitterName           string `mapstructure:"committer_name"`
	CommitterEmail          string `mapstructure:"committer_email"`
	DryRun                  bool   `mapstructure:"dry_run"`
	Report                  string `mapstructure:"report"`
	ReportFormat            string `mapstructure:"report_format"`
	InactivityThresholdDays int    `mapstructure:"inactivity_threshold"`
	ReuseWorkspace          bool   `mapstructure:"reuse_workspace"`
	RemoteName              string `mapstructure:"remote"`
	DefaultBranch           string `mapstructure:"default_branch"`
}

// DefaultCommandConfiguration provides baseline configuration values for the sync command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Report:                  defaultReportPathConstant,
		ReportFormat:            string(report.FormatMarkdown),
		InactivityThresholdDays: defaultInactivityThresholdDaysConstant,
		RemoteName:              shared.OriginRemoteNameConstant,
	}
}

// DefaultConfigurationValues returns viper defaults for the sync command rooted at the provided key.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	prefix := strings.TrimSpace(rootKey)
	if len(prefix) > 0 {
		prefix += configurationKeySeparatorConstant
	}
	return map[string]any{
		prefix + urlConfigurationKeyConstant:            defaults.URL,
		prefix + folderConfigurationKeyConstant:         defaults.Folder,
		prefix + userConfigurationKeyConstant:           defaults.User,
		prefix + passwordConfigurationKeyConstant:       defaults.Password,
		prefix + committerNameConfigurationKeyConstant:  defaults.CommitterName,
		prefix + committerEmailConfigurationKeyConstant: defaults.CommitterEmail,
		prefix + dryRunConfigurationKeyConstant:         defaults.DryRun,
		prefix + reportConfigurationKeyConstant:         defaults.Report,
		prefix + reportFormatConfigurationKeyConstant:   defaults.ReportFormat,
		prefix + thresholdConfigurationKeyConstant:      defaults.InactivityThresholdDays,
		prefix + reuseConfigurationKeyConstant:          defaults.ReuseWorkspace,
		prefix + remoteConfigurationKeyConstant:         defaults.RemoteName,
		prefix + defaultBranchConfigurationKeyConstant:  defaults.DefaultBranch,
	}
}

// Sanitize trims textual values and restores defaults for blank report, format, and remote settings.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	defaults := DefaultCommandConfiguration()
	sanitized := configuration

	sanitized.URL = strings.TrimSpace(configuration.URL)
	sanitized.Folder = strings.TrimSpace(configuration.Folder)
	sanitized.User = strings.TrimSpace(configuration.User)
	sanitized.CommitterName = strings.TrimSpace(configuration.CommitterName)
	sanitized.CommitterEmail = strings.TrimSpace(configuration.CommitterEmail)
	sanitized.Report = strings.TrimSpace(configuration.Report)
	sanitized.ReportFormat = strings.ToLower(strings.TrimSpace(configuration.ReportFormat))
	sanitized.RemoteName = strings.TrimSpace(configuration.RemoteName)
	sanitized.DefaultBranch = strings.TrimSpace(configuration.DefaultBranch)

	if len(sanitized.Report) == 0 {
		sanitized.Report = defaults.Report
	}
	if len(sanitized.ReportFormat) == 0 {
		sanitized.ReportFormat = defaults.ReportFormat
	}
	if len(sanitized.RemoteName) == 0 {
		sanitized.RemoteName = defaults.RemoteName
	}
	return sanitized
}

// Validate reports missing or inconsistent values.
func (configuration CommandConfiguration) Validate() error {
	if len(configuration.URL) == 0 {
		return ErrURLRequired
	}
	if (len(configuration.CommitterName) == 0) != (len(configuration.CommitterEmail) == 0) {
		return ErrPartialIdentity
	}
	if _, formatError := report.ParseFormat(configuration.ReportFormat); formatError != nil {
		return formatError
	}
	return nil
}

// Credentials returns the configured basic authentication values.
func (configuration CommandConfiguration) Credentials() repository.Credentials {
	return repository.Credentials{Username: configuration.User, Password: configuration.Password}
}

// DefaultIdentity returns the configured committer, or nil when none was supplied.
func (configuration CommandConfiguration) DefaultIdentity() *repository.Identity {
	identity := repository.Identity{Name: configuration.CommitterName, Email: configuration.CommitterEmail}
	if !identity.IsComplete() {
		return nil
	}
	return &identity
}
