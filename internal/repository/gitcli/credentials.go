package gitcli

import (
	"encoding/base64"
	"strconv"

	"github.com/temirov/subsync/internal/repository"
)

const (
	terminalPromptEnvironmentKeyConstant   = "GIT_TERMINAL_PROMPT"
	terminalPromptDisabledValueConstant    = "0"
	configCountEnvironmentKeyConstant      = "GIT_CONFIG_COUNT"
	configKeyEnvironmentPrefixConstant     = "GIT_CONFIG_KEY_"
	configValueEnvironmentPrefixConstant   = "GIT_CONFIG_VALUE_"
	httpExtraHeaderConfigKeyConstant       = "http.extraHeader"
	basicAuthorizationHeaderPrefixConstant = "Authorization: Basic "
	credentialSeparatorConstant            = ":"
	authorNameEnvironmentKeyConstant       = "GIT_AUTHOR_NAME"
	authorEmailEnvironmentKeyConstant      = "GIT_AUTHOR_EMAIL"
	committerNameEnvironmentKeyConstant    = "GIT_COMMITTER_NAME"
	committerEmailEnvironmentKeyConstant   = "GIT_COMMITTER_EMAIL"
)

// buildEnvironment returns the variables applied to every git invocation, adding
// a basic authorization header through transient configuration when credentials are present.
func buildEnvironment(credentials repository.Credentials) map[string]string {
	environment := map[string]string{
		terminalPromptEnvironmentKeyConstant: terminalPromptDisabledValueConstant,
	}
	if credentials.IsEmpty() {
		return environment
	}

	encodedCredentials := base64.StdEncoding.EncodeToString([]byte(credentials.Username + credentialSeparatorConstant + credentials.Password))
	environment[configCountEnvironmentKeyConstant] = strconv.Itoa(1)
	environment[configKeyEnvironmentPrefixConstant+strconv.Itoa(0)] = httpExtraHeaderConfigKeyConstant
	environment[configValueEnvironmentPrefixConstant+strconv.Itoa(0)] = basicAuthorizationHeaderPrefixConstant + encodedCredentials
	return environment
}

func withIdentity(environment map[string]string, identity repository.Identity) map[string]string {
	environment[authorNameEnvironmentKeyConstant] = identity.Name
	environment[authorEmailEnvironmentKeyConstant] = identity.Email
	environment[committerNameEnvironmentKeyConstant] = identity.Name
	environment[committerEmailEnvironmentKeyConstant] = identity.Email
	return environment
}
