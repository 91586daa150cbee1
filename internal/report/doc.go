// Package report accumulates per-branch submodule tracking results and renders
// them as a Markdown or YAML document and as a console tree summary.
package report
