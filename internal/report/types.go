package report

import "github.com/stuttgart-things/snyk-cleanup/internal/snyk"

// Format selects how a Report is written
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Report lists the targets a run would delete in one organization
type Report struct {
	Organization snyk.Organization `json:"organization" yaml:"organization"`
	DryRun       bool              `json:"dryRun" yaml:"dryRun"`
	Count        int               `json:"count" yaml:"count"`
	Targets      []snyk.Target     `json:"targets" yaml:"targets"`
}
