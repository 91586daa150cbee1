package utils_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/subsync/internal/utils"
)

const (
	testContextConfigurationPathConstant = "/etc/subsync/config.yaml"
	testContextRunIdentifierConstant     = "ckv9x0f3c0000qzrmn831i7rn"
)

func TestCommandContextAccessorRoundTrip(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	executionContext := accessor.WithConfigurationFilePath(context.Background(), testContextConfigurationPathConstant)
	executionContext = accessor.WithRunIdentifier(executionContext, testContextRunIdentifierConstant)

	configurationPath, configurationAvailable := accessor.ConfigurationFilePath(executionContext)
	require.True(testInstance, configurationAvailable)
	require.Equal(testInstance, testContextConfigurationPathConstant, configurationPath)

	runIdentifier, runIdentifierAvailable := accessor.RunIdentifier(executionContext)
	require.True(testInstance, runIdentifierAvailable)
	require.Equal(testInstance, testContextRunIdentifierConstant, runIdentifier)
}

func TestCommandContextAccessorMissingValues(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, configurationAvailable := accessor.ConfigurationFilePath(context.Background())
	require.False(testInstance, configurationAvailable)

	_, runIdentifierAvailable := accessor.RunIdentifier(nil)
	require.False(testInstance, runIdentifierAvailable)
}
