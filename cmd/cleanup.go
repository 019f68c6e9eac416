package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"
	"github.com/stuttgart-things/snyk-cleanup/internal/config"
	"github.com/stuttgart-things/snyk-cleanup/internal/logging"
	"github.com/stuttgart-things/snyk-cleanup/internal/metrics"
	"github.com/stuttgart-things/snyk-cleanup/internal/report"
	"github.com/stuttgart-things/snyk-cleanup/internal/snyk"
)

var ErrTagInvalidSelection = goerr.NewTag("invalid_selection")

const bannerWidth = 40

// targetAPI is the part of the Snyk API a cleanup run needs
type targetAPI interface {
	ListOrganizations(ctx context.Context) ([]snyk.Organization, error)
	ListTargets(ctx context.Context, orgID string) ([]snyk.Target, error)
	DeleteTarget(ctx context.Context, orgID, targetID string) error
}

// cleanup runs the list, select, confirm and delete steps in order
type cleanup struct {
	api      targetAPI
	prompter Prompter
	// out receives menus, prompts and progress; reportOut receives the
	// dry-run report. They differ when the report is machine-readable.
	out       io.Writer
	reportOut io.Writer
	dryRun    bool
	format    report.Format
	metrics   *metrics.Recorder
}

func runCleanup(cmd *cobra.Command, args []string) {
	level, err := logging.ParseLogLevel(logLevel)
	if err != nil {
		printFatal(err.Error())
	}
	logFmt, err := logging.ParseFormat(logFormat)
	if err != nil {
		printFatal(err.Error())
	}
	format, err := report.ParseFormat(cleanupOutput)
	if err != nil {
		printFatal(err.Error())
	}

	// keep stdout parseable when the report is JSON or YAML
	var console io.Writer = os.Stdout
	if format != report.FormatText {
		console = os.Stderr
	}
	fmt.Fprintln(console, logo)

	logger := logging.NewLogger(level, os.Stderr, logFmt).With("run_id", uuid.NewString())
	ctx := ctxlog.With(cmd.Context(), logger)
	if len(args) > 0 {
		logger.Debug("ignoring positional arguments", "args", args)
	}

	cfg, err := config.Load(cleanupEnvFile, cleanupDryRun)
	if err != nil {
		if goerr.HasTag(err, config.ErrTagMissingCredential) {
			printFatal(fmt.Sprintf("Error: Please set the %s environment variable.", config.TokenEnv))
		}
		printFatal(fmt.Sprintf("Error: %v", err))
	}
	logger.Debug("configuration loaded",
		"api_url", cfg.APIURL,
		"api_version", cfg.APIVersion,
		"dry_run", cfg.DryRun)

	if cfg.DryRun {
		fmt.Fprintln(console, warningStyle.Render("🛠 DRY RUN MODE ENABLED: No targets will be deleted."))
	}

	recorder := metrics.NewRecorder()
	client := newSnykClient(cfg, recorder)

	c := &cleanup{
		api:      client,
		prompter:  newPrompter(cleanupInteractive, console),
		out:       console,
		reportOut: os.Stdout,
		dryRun:    cfg.DryRun,
		format:    format,
		metrics:   recorder,
	}
	runErr := c.run(ctx)

	if cleanupMetricsTextfile != "" {
		if err := recorder.WriteTextfile(cleanupMetricsTextfile); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		}
	}

	if runErr != nil {
		printFatal(fmt.Sprintf("Error: %v", runErr))
	}
}

func newSnykClient(cfg *config.RunConfig, observer snyk.RequestObserver) *snyk.Client {
	client := snyk.NewClient(cfg.APIURL, cfg.Token)
	client.APIVersion = cfg.APIVersion
	client.HTTPClient.Timeout = cfg.Timeout
	client.UserAgent = "snyk-cleanup/" + version
	client.Observer = observer
	return client
}

// run returns an error only when the dry-run report cannot be rendered.
// Every other outcome, including failed API calls and cancelled prompts,
// ends cleanly.
func (c *cleanup) run(ctx context.Context) error {
	logger := ctxlog.From(ctx)

	orgs, err := c.api.ListOrganizations(ctx)
	if err != nil {
		logger.Warn("organization listing failed", "error", err.Error(), "status", snyk.StatusCode(err))
		fmt.Fprintln(c.out, errorStyle.Render(fmt.Sprintf("Error fetching organizations: %s", statusText(err))))
	}
	if len(orgs) == 0 {
		fmt.Fprintln(c.out, "No organizations found or failed to authenticate.")
		return nil
	}

	org, err := c.chooseOrganization(ctx, orgs)
	if err != nil {
		logger.Debug("organization selection rejected", "error", err)
		fmt.Fprintln(c.out, errorStyle.Render("Invalid selection. Exiting."))
		return nil
	}
	fmt.Fprintf(c.out, "Selected: %s\n", org.Name)
	logger.Info("organization selected", "org_id", org.ID)

	fmt.Fprintln(c.out, progressStyle.Render(fmt.Sprintf("\nFetching targets for %s...", org.Name)))
	targets, err := c.api.ListTargets(ctx, org.ID)
	if err != nil {
		logger.Warn("target listing stopped early",
			"error", err.Error(),
			"status", snyk.StatusCode(err),
			"collected", len(targets))
		fmt.Fprintln(c.out, errorStyle.Render(fmt.Sprintf("Error fetching targets: %s", statusText(err))))
	}
	c.metrics.TargetsListed(len(targets))

	if len(targets) == 0 {
		fmt.Fprintln(c.out, "No targets found in this organization.")
		return nil
	}

	fmt.Fprintln(c.out, "\n"+strings.Repeat("!", bannerWidth))
	if c.dryRun {
		return report.Render(c.reportOut, report.New(org, targets, true), c.format)
	}

	if !c.confirmDeletion(ctx, org, targets) {
		fmt.Fprintln(c.out, "Operation cancelled.")
		return nil
	}

	results := c.deleteTargets(ctx, org, targets)
	if results.Interrupted {
		fmt.Fprintln(c.out, warningStyle.Render("\nCleanup interrupted."))
	} else {
		fmt.Fprintln(c.out, "\nCleanup finished.")
	}
	fmt.Fprintf(c.out, "Deleted %d of %d targets (%d failed).\n",
		results.SuccessCount(), len(targets), results.FailedCount())
	return nil
}

// chooseOrganization prints the numbered menu and reads the operator's choice
func (c *cleanup) chooseOrganization(ctx context.Context, orgs []snyk.Organization) (snyk.Organization, error) {
	fmt.Fprintln(c.out, "\nAvailable Organizations:")
	for i, org := range orgs {
		fmt.Fprintf(c.out, "%d. %s (%s)\n", i+1, org.Name, org.ID)
	}

	line, err := c.prompter.ReadLine(ctx, fmt.Sprintf("\nSelect an organization (1-%d): ", len(orgs)))
	if err != nil {
		return snyk.Organization{}, goerr.Wrap(err, "failed to read selection", goerr.T(ErrTagInvalidSelection))
	}
	return selectOrganization(orgs, line)
}

// selectOrganization maps a 1-based menu choice to an organization
func selectOrganization(orgs []snyk.Organization, input string) (snyk.Organization, error) {
	choice, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return snyk.Organization{}, goerr.Wrap(err, "selection is not a number",
			goerr.T(ErrTagInvalidSelection),
			goerr.V("input", input))
	}
	if choice < 1 || choice > len(orgs) {
		return snyk.Organization{}, goerr.New("selection out of range",
			goerr.T(ErrTagInvalidSelection),
			goerr.V("choice", choice),
			goerr.V("max", len(orgs)))
	}
	return orgs[choice-1], nil
}

func (c *cleanup) confirmDeletion(ctx context.Context, org snyk.Organization, targets []snyk.Target) bool {
	fmt.Fprintln(c.out, warningStyle.Render(fmt.Sprintf("DANGER: You are about to DELETE ALL %d targets", len(targets))))
	fmt.Fprintln(c.out, warningStyle.Render(fmt.Sprintf("in organization: %s", org.Name)))

	line, err := c.prompter.ReadLine(ctx, "Are you sure? (type 'yes' to proceed): ")
	fmt.Fprintln(c.out, strings.Repeat("!", bannerWidth)+"\n")
	if err != nil {
		ctxlog.From(ctx).Debug("confirmation not read", "error", err)
		return false
	}
	return confirmed(line)
}

// confirmed reports whether input is the literal word yes
func confirmed(input string) bool {
	return strings.EqualFold(strings.TrimSpace(input), "yes")
}

// deleteTargets attempts every target in order. A failure never stops the
// loop. Cancelling ctx stops new deletes; the request already in flight is
// allowed to finish so its outcome is reported.
func (c *cleanup) deleteTargets(ctx context.Context, org snyk.Organization, targets []snyk.Target) *DeleteResults {
	logger := ctxlog.From(ctx)
	results := &DeleteResults{}

	for _, target := range targets {
		if ctx.Err() != nil {
			results.Interrupted = true
			break
		}

		fmt.Fprintf(c.out, "Deleting %s... ", target.Name)
		err := c.api.DeleteTarget(context.WithoutCancel(ctx), org.ID, target.ID)
		results.Results = append(results.Results, DeleteResult{Target: target, Error: err})

		if err != nil {
			c.metrics.TargetDeleteFailed()
			logger.Warn("target delete failed",
				"target_id", target.ID,
				"error", err.Error(),
				"status", snyk.StatusCode(err))
			fmt.Fprintln(c.out, errorStyle.Render(fmt.Sprintf("❌ Failed (%s)", statusText(err))))
			continue
		}

		c.metrics.TargetDeleted()
		logger.Debug("target deleted", "target_id", target.ID)
		fmt.Fprintln(c.out, successStyle.Render("✅ Success"))
	}

	return results
}

// statusText renders the HTTP status of err, falling back to the error text
// when no response was received
func statusText(err error) string {
	if code := snyk.StatusCode(err); code != 0 {
		return strconv.Itoa(code)
	}
	return err.Error()
}
