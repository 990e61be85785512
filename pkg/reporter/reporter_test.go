package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/fetch"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

func digestOf(c string) string {
	return "sha256:" + strings.Repeat(c, 64)
}

func catalogDoc(images ...string) string {
	var b strings.Builder
	b.WriteString("---\nschema: olm.bundle\nname: rhods-operator.2.25.0\nimage: " + images[0] + "\nrelatedImages:\n")
	for i, img := range images[1:] {
		fmt.Fprintf(&b, "  - name: image_%d\n    image: %s\n", i, img)
	}
	return b.String()
}

func helperDoc(images ...string) string {
	var b strings.Builder
	b.WriteString("# Images\n\n## Notebook Images\n\n")
	for _, img := range images {
		b.WriteString("- " + img + "\n")
	}
	return b.String()
}

type fakeFetcher struct {
	release, platform string
	latestErr         error
	catalogs          map[string]string
	helpers           map[string]string
	catalogCalls      []string
}

func (f *fakeFetcher) LatestVersions(context.Context) (string, string, error) {
	return f.release, f.platform, f.latestErr
}

func (f *fakeFetcher) FetchCatalogDocument(_ context.Context, release, platformRelease string) ([]byte, error) {
	key := release + "/" + platformRelease
	f.catalogCalls = append(f.catalogCalls, key)
	doc, ok := f.catalogs[key]
	if !ok {
		return nil, fmt.Errorf("%w: catalog %s", fetch.ErrNotFound, key)
	}
	return []byte(doc), nil
}

func (f *fakeFetcher) FetchHelperDocument(_ context.Context, release string) (string, error) {
	doc, ok := f.helpers[release]
	if !ok {
		return "", fmt.Errorf("%w: helper %s", fetch.ErrNotFound, release)
	}
	return doc, nil
}

type fakeInspector struct {
	err error
}

func (f fakeInspector) InspectPlatforms(context.Context, string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"linux/amd64"}, nil
}

var (
	bundle    = "registry.redhat.io/rhoai/odh-operator-bundle@" + digestOf("1")
	dashboard = "registry.redhat.io/rhoai/odh-dashboard-rhel9@" + digestOf("2")
	notebook  = "quay.io/modh/odh-workbench-jupyter-minimal-cpu-py311-ubi9@" + digestOf("3")
	legacyNB  = "quay.io/modh/odh-workbench-jupyter-minimal-cpu-py39-ubi9@" + digestOf("4")
)

func newFetcher() *fakeFetcher {
	return &fakeFetcher{
		release:  "2.25",
		platform: "4.20",
		catalogs: map[string]string{
			"2.25/4.20": catalogDoc(bundle, dashboard),
			"2.24/4.20": catalogDoc(bundle),
		},
		helpers: map[string]string{
			"2.25": helperDoc(notebook),
			"2.24": helperDoc(legacyNB),
		},
	}
}

func fullRefs(images []*types.ImageReference) []string {
	refs := make([]string, 0, len(images))
	for _, img := range images {
		refs = append(refs, img.FullReference())
	}
	return refs
}

func defaultOptions() Options {
	return Options{
		Format:          "markdown",
		Granular:        true,
		ShowVariants:    true,
		IncludeSecurity: true,
	}
}

func TestAnalyzeResolvesLatestVersions(t *testing.T) {
	f := newFetcher()
	analysis, err := New(f).Analyze(context.Background(), defaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "2.25", analysis.Release)
	assert.Equal(t, "4.20", analysis.PlatformRelease)
	assert.Equal(t, 3, analysis.TotalImages)
	assert.Equal(t, []string{"2.25/4.20"}, f.catalogCalls)
	assert.Nil(t, analysis.Comparison)

	for _, c := range analysis.Components {
		assert.NotEmpty(t, c.Variants, c.Category)
		assert.Equal(t, len(c.Images), c.TotalReferences)
	}
}

func TestAnalyzeExplicitVersions(t *testing.T) {
	f := newFetcher()
	f.latestErr = errors.New("must not be called")
	f.catalogs["2.24/4.19"] = catalogDoc(bundle)

	analysis, err := New(f).Analyze(context.Background(), Options{Release: "2.24", PlatformRelease: "4.19", Granular: true})
	require.NoError(t, err)
	assert.Equal(t, "2.24", analysis.Release)
	assert.Equal(t, "4.19", analysis.PlatformRelease)
	for _, c := range analysis.Components {
		assert.Empty(t, c.Variants, "variants are only populated on request")
	}
}

func TestAnalyzePartialVersion(t *testing.T) {
	f := newFetcher()
	f.catalogs["2.24/4.20"] = catalogDoc(bundle)

	analysis, err := New(f).Analyze(context.Background(), Options{Release: "2.24", Granular: true})
	require.NoError(t, err)
	assert.Equal(t, "2.24", analysis.Release)
	assert.Equal(t, "4.20", analysis.PlatformRelease)
}

func TestAnalyzeFailures(t *testing.T) {
	t.Run("latest versions", func(t *testing.T) {
		f := newFetcher()
		f.latestErr = &fetch.TransportError{Path: "org/helper/", Err: errors.New("connection refused")}

		_, err := New(f).Analyze(context.Background(), defaultOptions())
		var te *fetch.TransportError
		assert.ErrorAs(t, err, &te)
		assert.ErrorContains(t, err, "determining latest versions")
	})

	t.Run("missing catalog is fatal", func(t *testing.T) {
		f := newFetcher()
		delete(f.catalogs, "2.25/4.20")

		_, err := New(f).Analyze(context.Background(), defaultOptions())
		assert.ErrorIs(t, err, fetch.ErrNotFound)
	})

	t.Run("malformed catalog is fatal", func(t *testing.T) {
		f := newFetcher()
		f.catalogs["2.25/4.20"] = "schema: [broken"

		_, err := New(f).Analyze(context.Background(), defaultOptions())
		assert.ErrorContains(t, err, "parsing OLM catalog")
	})

	t.Run("no images", func(t *testing.T) {
		f := newFetcher()
		f.catalogs["2.25/4.20"] = "schema: olm.package\nname: rhods-operator\n"
		delete(f.helpers, "2.25")

		_, err := New(f).Analyze(context.Background(), defaultOptions())
		assert.ErrorIs(t, err, ErrNoImages)
	})
}

func TestAnalyzeMissingHelperIsWarning(t *testing.T) {
	f := newFetcher()
	delete(f.helpers, "2.25")

	analysis, err := New(f).Analyze(context.Background(), defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, analysis.TotalImages)
}

func TestAnalyzeComparison(t *testing.T) {
	f := newFetcher()
	opts := defaultOptions()
	opts.CompareWith = "2.24"

	analysis, err := New(f).Analyze(context.Background(), opts)
	require.NoError(t, err)

	require.NotNil(t, analysis.Comparison)
	assert.Equal(t, "2.24", analysis.ComparedWith)
	assert.Equal(t, []string{"2.25/4.20", "2.24/4.20"}, f.catalogCalls, "the comparison uses the current platform release")

	assert.Equal(t, []string{dashboard, notebook}, fullRefs(analysis.Comparison.Added))
	assert.Equal(t, []string{legacyNB}, fullRefs(analysis.Comparison.Removed))
	assert.Equal(t, []string{bundle}, fullRefs(analysis.Comparison.Unchanged))
}

func TestAnalyzeFailedComparisonIsWarning(t *testing.T) {
	f := newFetcher()
	opts := defaultOptions()
	opts.CompareWith = "1.0"

	analysis, err := New(f).Analyze(context.Background(), opts)
	require.NoError(t, err)
	assert.Nil(t, analysis.Comparison)
	assert.Empty(t, analysis.ComparedWith)
}

func TestAnalyzeInspectPlatforms(t *testing.T) {
	opts := defaultOptions()
	opts.InspectPlatforms = true

	t.Run("platforms recorded", func(t *testing.T) {
		analysis, err := New(newFetcher(), WithInspector(fakeInspector{})).Analyze(context.Background(), opts)
		require.NoError(t, err)
		for _, c := range analysis.Components {
			for _, v := range c.Variants {
				assert.Equal(t, []string{"linux/amd64"}, v.Platforms)
			}
		}
	})

	t.Run("inspection failures are warnings", func(t *testing.T) {
		inspector := fakeInspector{err: errors.New("unauthorized")}
		analysis, err := New(newFetcher(), WithInspector(inspector)).Analyze(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, 3, analysis.TotalImages)
	})
}

func TestAnalyzeLegacyRules(t *testing.T) {
	opts := defaultOptions()
	opts.Granular = false

	analysis, err := New(newFetcher()).Analyze(context.Background(), opts)
	require.NoError(t, err)

	var categories []string
	for _, c := range analysis.Components {
		categories = append(categories, c.Category)
	}
	assert.Contains(t, categories, "development_environments")
}

func TestRunWritesStdout(t *testing.T) {
	var out bytes.Buffer
	err := New(newFetcher(), WithStdout(&out)).Run(context.Background(), defaultOptions())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "# RHOAI 2.25 / OCP 4.20 Container Image Report")
}

func TestRunWritesFile(t *testing.T) {
	var out bytes.Buffer
	opts := defaultOptions()
	opts.Format = "json"
	opts.Output = filepath.Join(t.TempDir(), "report.json")

	require.NoError(t, New(newFetcher(), WithStdout(&out)).Run(context.Background(), opts))
	assert.Empty(t, out.String())

	content, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(content, &got))
	assert.Equal(t, "2.25", got["rhoai_version"])
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	opts := defaultOptions()
	opts.Format = "html"

	err := New(newFetcher(), WithStdout(&bytes.Buffer{})).Run(context.Background(), opts)
	assert.ErrorContains(t, err, "unsupported report format")
}
