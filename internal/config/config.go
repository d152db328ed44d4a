// Package config loads the optional ".txtpp.hcl" project file (spec.md
// §6's configuration options), decoupled from the root package so it can
// be consumed by both the CLI and library entry points.
//
// Returns a format-agnostic FileConfig the caller layers onto its own
// defaults, simplified: this schema is flat scalars rather than a full
// expression graph, so gohcl's struct tags decode it directly without a
// hand-rolled cty conversion step.
package config

import (
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// FileConfig is the format-agnostic result of loading a ".txtpp.hcl"
// file. Every scalar field is a pointer (and Shell a slice, nil when
// absent) so callers can distinguish "not set in the file" from a
// false/zero value and layer CLI flags on top.
type FileConfig struct {
	Shell           []string `hcl:"shell,optional"`
	Recursive       *bool    `hcl:"recursive,optional"`
	Jobs            *int     `hcl:"jobs,optional"`
	TrailingNewline *bool    `hcl:"trailing_newline,optional"`
	Suffix          *string  `hcl:"suffix,optional"`
	Color           *bool    `hcl:"color,optional"`
}

// Load reads and decodes path. It returns (nil, nil) if path does not
// exist, since the project file is entirely optional.
func Load(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, diags
	}

	var cfg FileConfig
	if diags := gohcl.DecodeBody(f.Body, nil, &cfg); diags.HasErrors() {
		return nil, diags
	}
	return &cfg, nil
}
