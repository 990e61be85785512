// Package reporter drives a full report run: resolve versions, fetch and parse the release
// documents, analyze, and render.
package reporter

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/analyzer"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/catalog"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/report"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/variants"
)

// ErrNoImages is returned when neither document of a release lists any image.
var ErrNoImages = errors.New("no images found in the specified version")

// Fetcher retrieves the upstream documents of a release.
type Fetcher interface {
	LatestVersions(ctx context.Context) (release, platformRelease string, err error)
	FetchCatalogDocument(ctx context.Context, release, platformRelease string) ([]byte, error)
	FetchHelperDocument(ctx context.Context, release string) (string, error)
}

type Options struct {
	Release         string
	PlatformRelease string
	CompareWith     string

	Format string
	// Output is a file path; empty writes to the reporter's stdout.
	Output string

	Granular         bool
	ShowVariants     bool
	IncludeSecurity  bool
	InspectPlatforms bool
}

type Reporter struct {
	fetcher   Fetcher
	inspector variants.Inspector
	stdout    io.Writer
}

type Option func(*Reporter)

// WithInspector sets the registry inspector used when platform inspection is requested.
func WithInspector(inspector variants.Inspector) Option {
	return func(r *Reporter) {
		r.inspector = inspector
	}
}

func WithStdout(w io.Writer) Option {
	return func(r *Reporter) {
		r.stdout = w
	}
}

func New(fetcher Fetcher, opts ...Option) *Reporter {
	r := &Reporter{fetcher: fetcher, stdout: os.Stdout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run produces one report. Failures to fetch the catalog, parse a document or render are
// fatal; a missing helper document, a failed comparison and failed platform inspections
// are logged as warnings and the report is produced without them.
func (r *Reporter) Run(ctx context.Context, opts Options) error {
	analysis, err := r.Analyze(ctx, opts)
	if err != nil {
		return err
	}
	log.Info(Summary(analysis))

	log.Info("Generating report")
	content, err := report.Generate(analysis, opts.Format, report.Options{
		IncludeSecurity: opts.IncludeSecurity,
		ShowVariants:    opts.ShowVariants,
	})
	if err != nil {
		return err
	}

	if opts.Output == "" {
		_, err := io.WriteString(r.stdout, content)
		return errors.Wrap(err, "writing report")
	}
	if err := os.WriteFile(opts.Output, []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "saving report to %s", opts.Output)
	}
	log.Infof("Report saved to %s", opts.Output)
	return nil
}

// Analyze runs every step up to, but not including, rendering.
func (r *Reporter) Analyze(ctx context.Context, opts Options) (*types.Analysis, error) {
	release, platformRelease, err := r.resolveVersions(ctx, opts.Release, opts.PlatformRelease)
	if err != nil {
		return nil, err
	}

	images, err := r.releaseImages(ctx, release, platformRelease, true)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	log.Infof("Parsed %d images", len(images))

	var warnings *multierror.Error

	req := analyzer.Request{
		Release:         release,
		PlatformRelease: platformRelease,
		Images:          images,
	}
	if opts.CompareWith != "" {
		log.Infof("Comparing with RHOAI %s", opts.CompareWith)
		previous, err := r.releaseImages(ctx, opts.CompareWith, platformRelease, false)
		if err != nil {
			warnings = multierror.Append(warnings, errors.Wrapf(err, "comparison with %s skipped", opts.CompareWith))
		} else {
			req.CompareWith = opts.CompareWith
			req.Previous = previous
		}
	}

	rules := analyzer.GranularRules
	if !opts.Granular {
		rules = analyzer.LegacyRules
	}
	log.Info("Analyzing images")
	analysis := analyzer.New(analyzer.WithRules(rules)).Analyze(req)

	if opts.ShowVariants || opts.InspectPlatforms {
		var inspector variants.Inspector
		if opts.InspectPlatforms {
			inspector = r.inspector
		}
		if err := variants.Populate(ctx, analysis.Components, inspector); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			warnings = multierror.Append(warnings, err)
		}
	}

	if err := warnings.ErrorOrNil(); err != nil {
		log.Warn(err)
	}
	return analysis, nil
}

func (r *Reporter) resolveVersions(ctx context.Context, release, platformRelease string) (string, string, error) {
	if release != "" && platformRelease != "" {
		return release, platformRelease, nil
	}

	log.Info("Determining latest versions")
	latestRelease, latestPlatform, err := r.fetcher.LatestVersions(ctx)
	if err != nil {
		return "", "", errors.Wrap(err, "determining latest versions")
	}
	if release == "" {
		release = latestRelease
	}
	if platformRelease == "" {
		platformRelease = latestPlatform
	}
	log.Infof("Using RHOAI %s / OCP %s", release, platformRelease)
	return release, platformRelease, nil
}

// releaseImages fetches and parses both documents of a release, catalog images first. A
// missing helper document only warns when warnMissingHelper is set.
func (r *Reporter) releaseImages(ctx context.Context, release, platformRelease string, warnMissingHelper bool) ([]*types.ImageReference, error) {
	log.Infof("Fetching OLM catalog for RHOAI %s / OCP %s", release, platformRelease)
	catalogDoc, err := r.fetcher.FetchCatalogDocument(ctx, release, platformRelease)
	if err != nil {
		return nil, errors.Wrap(err, "fetching OLM catalog")
	}

	log.Infof("Fetching disconnected helper for RHOAI %s", release)
	helperDoc, err := r.fetcher.FetchHelperDocument(ctx, release)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if warnMissingHelper {
			log.Warnf("Could not fetch disconnected helper data: %v", err)
		}
		helperDoc = ""
	}

	images, err := catalog.ParseCatalog(catalogDoc)
	if err != nil {
		return nil, errors.Wrap(err, "parsing OLM catalog")
	}
	if helperDoc != "" {
		helperImages, err := catalog.ParseHelperDocument(helperDoc)
		if err != nil {
			return nil, errors.Wrap(err, "parsing disconnected helper document")
		}
		images = append(images, helperImages...)
	}
	return images, nil
}

// Summary is a one-line description of an analysis for log output.
func Summary(a *types.Analysis) string {
	return fmt.Sprintf("RHOAI %s / OCP %s: %d images (%d infrastructure, %d workload) in %d components",
		a.Release, a.PlatformRelease, a.TotalImages, len(a.InfrastructureImages), len(a.WorkloadImages), len(a.Components))
}
