// Package cli constructs the subsync command-line interface, wiring the
// Cobra command hierarchy, configuration loader, and structured logging
// primitives. The embedded default configuration is merged before any user
// supplied file, and SUBSYNC_ prefixed environment variables override both.
package cli
