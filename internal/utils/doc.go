// Package utils exposes reusable helpers consumed by the subsync commands.
//
// It houses ConfigurationLoader, LoggerFactory, and CommandContextAccessor,
// which integrate Viper, environment variables, and zap logging for the CLI.
package utils
