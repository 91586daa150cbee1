package flags

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

const (
	toggleTrueValueConstant           = "true"
	toggleFalseValueConstant          = "false"
	toggleTypeNameConstant            = "bool"
	toggleParseErrorTemplateConstant  = "invalid toggle value %q"
	toggleEnabledPlaceholderConstant  = "<YES|no>"
	toggleDisabledPlaceholderConstant = "<yes|NO>"
	longFlagPrefixConstant            = "--"
	shortFlagPrefixConstant           = "-"
	flagValueSeparatorConstant        = "="
)

var toggleLiterals = map[string]bool{
	"true": true, "yes": true, "on": true, "1": true, "t": true, "y": true,
	"false": false, "no": false, "off": false, "0": false, "f": false, "n": false,
}

// toggleRegistry remembers every toggle so NormalizeToggleArguments can tell toggles from other flags.
type toggleRegistry struct {
	mutex      sync.RWMutex
	names      map[string]struct{}
	shorthands map[string]struct{}
}

var registeredToggles = &toggleRegistry{names: map[string]struct{}{}, shorthands: map[string]struct{}{}}

func (registry *toggleRegistry) add(name string, shorthand string) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	registry.names[name] = struct{}{}
	if len(shorthand) > 0 {
		registry.shorthands[shorthand] = struct{}{}
	}
}

func (registry *toggleRegistry) matches(flagName string, shorthand bool) bool {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	if shorthand {
		_, known := registry.shorthands[flagName]
		return known
	}
	_, known := registry.names[flagName]
	return known
}

// AddToggleFlag registers a boolean flag that accepts yes/no style values such as "--dry-run no".
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}

	flagSet.VarP(newToggleValue(defaultValue, target), name, shorthand, usage)
	registeredFlag := flagSet.Lookup(name)
	if registeredFlag == nil {
		return
	}
	registeredFlag.NoOptDefVal = toggleTrueValueConstant
	registeredFlag.Usage = toggleUsage(usage, defaultValue)

	registeredToggles.add(name, shorthand)
}

func toggleUsage(description string, defaultValue bool) string {
	placeholder := toggleDisabledPlaceholderConstant
	if defaultValue {
		placeholder = toggleEnabledPlaceholderConstant
	}
	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf("`%s`", placeholder)
	}
	return fmt.Sprintf("`%s` %s", placeholder, trimmedDescription)
}

// NormalizeToggleArguments joins a toggle flag with its following value ("--dry-run no" becomes
// "--dry-run=no") so pflag does not treat the value as a positional argument. Arguments after "--" are untouched.
func NormalizeToggleArguments(arguments []string) []string {
	if len(arguments) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		current := arguments[index]
		if current == longFlagPrefixConstant {
			return append(normalized, arguments[index:]...)
		}
		if index+1 < len(arguments) && awaitsToggleValue(current) && !strings.HasPrefix(arguments[index+1], shortFlagPrefixConstant) {
			normalized = append(normalized, current+flagValueSeparatorConstant+arguments[index+1])
			index++
			continue
		}
		normalized = append(normalized, current)
	}
	return normalized
}

// awaitsToggleValue reports whether the argument names a registered toggle without an inline value.
func awaitsToggleValue(argument string) bool {
	if strings.Contains(argument, flagValueSeparatorConstant) {
		return false
	}
	if strings.HasPrefix(argument, longFlagPrefixConstant) {
		flagName := strings.TrimPrefix(argument, longFlagPrefixConstant)
		return len(flagName) > 0 && registeredToggles.matches(flagName, false)
	}
	if strings.HasPrefix(argument, shortFlagPrefixConstant) {
		shorthand := strings.TrimPrefix(argument, shortFlagPrefixConstant)
		return len(shorthand) == 1 && registeredToggles.matches(shorthand, true)
	}
	return false
}

type toggleValue struct {
	value  bool
	target *bool
}

func newToggleValue(defaultValue bool, target *bool) *toggleValue {
	if target != nil {
		*target = defaultValue
	}
	return &toggleValue{value: defaultValue, target: target}
}

func (toggle *toggleValue) Set(rawValue string) error {
	parsedValue, parseError := parseToggle(rawValue)
	if parseError != nil {
		return parseError
	}
	toggle.value = parsedValue
	if toggle.target != nil {
		*toggle.target = parsedValue
	}
	return nil
}

func (toggle *toggleValue) String() string {
	if toggle != nil && toggle.value {
		return toggleTrueValueConstant
	}
	return toggleFalseValueConstant
}

func (toggle *toggleValue) Type() string {
	return toggleTypeNameConstant
}

func parseToggle(rawValue string) (bool, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalizedValue) == 0 {
		return true, nil
	}
	parsedValue, known := toggleLiterals[normalizedValue]
	if !known {
		return false, fmt.Errorf(toggleParseErrorTemplateConstant, rawValue)
	}
	return parsedValue, nil
}
