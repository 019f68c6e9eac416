package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stuttgart-things/snyk-cleanup/internal/snyk"
	"gopkg.in/yaml.v3"
)

// WouldDeleteMarker prefixes each target line of a text dry-run report
const WouldDeleteMarker = "[WOULD DELETE]"

// New creates a Report. Targets are copied so later changes to the slice do
// not leak into the report.
func New(org snyk.Organization, targets []snyk.Target, dryRun bool) *Report {
	copied := make([]snyk.Target, len(targets))
	copy(copied, targets)
	return &Report{
		Organization: org,
		DryRun:       dryRun,
		Count:        len(copied),
		Targets:      copied,
	}
}

// ParseFormat validates an --output value
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", goerr.New("unsupported output format", goerr.V("format", s))
	}
}

// Render writes r to w in the given format
func Render(w io.Writer, r *Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return goerr.Wrap(err, "marshalling report as JSON")
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return goerr.Wrap(err, "marshalling report as YAML")
		}
		if err := enc.Close(); err != nil {
			return goerr.Wrap(err, "flushing YAML report")
		}
	case FormatText, "":
		return renderText(w, r)
	default:
		return goerr.New("unsupported output format", goerr.V("format", format))
	}
	return nil
}

func renderText(w io.Writer, r *Report) error {
	if _, err := fmt.Fprintf(w, "DRY RUN: Would have deleted %d targets in %s.\n", r.Count, r.Organization.Name); err != nil {
		return goerr.Wrap(err, "writing report")
	}
	for _, t := range r.Targets {
		if _, err := fmt.Fprintf(w, "  %s %s\n", WouldDeleteMarker, t.Name); err != nil {
			return goerr.Wrap(err, "writing report")
		}
	}
	if _, err := fmt.Fprintln(w, "\nDry run complete. No changes were made."); err != nil {
		return goerr.Wrap(err, "writing report")
	}
	return nil
}
