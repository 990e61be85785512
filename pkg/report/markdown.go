package report

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/analyzer"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

const (
	infrastructureListed = 5
	workloadListed       = 3
	concernsListed       = 5
	defaultCategory      = "general"
)

// markdownContext holds everything the markdown template reads besides the analysis itself.
type markdownContext struct {
	*types.Analysis

	Registries      []count
	BaseOS          []count
	EstimatedSizeGB float64
	Overview        []*types.ComponentInfo
	Infrastructure  []section
	Workload        []section

	IncludeSecurity bool
	TrustedPct      string
	CommunityPct    string
	RegistryRows    []registryRow
	Deprecated      []string
	Unverified      []string

	Variants []*types.ComponentInfo
}

type section struct {
	Name        string
	Description string
	Count       int
	Groups      []group
}

// group is one run of listed images; Title is only set when a section has several groups.
type group struct {
	Title string
	Total int
	Lines []string
}

type registryRow struct {
	Name       string
	Count      int
	Percentage string
	Trust      string
}

const markdownTemplate = `# RHOAI {{ .Release }} / OCP {{ .PlatformRelease }} Container Image Report

## Summary
- **Total Images**: {{ .TotalImages }} ({{ len .InfrastructureImages }} infrastructure + {{ len .WorkloadImages }} workload)
- **Registries**: {{ range $i, $c := .Registries }}{{ if $i }}, {{ end }}{{ $c.Name }} ({{ $c.Count }}){{ end }}
- **Base OS**: {{ range $i, $c := .BaseOS }}{{ if $i }}, {{ end }}{{ $c.Name }} ({{ $c.Count }}){{ end }}
- **Estimated Size**: ~{{ printf "%.1f" .EstimatedSizeGB }}GB total download
- **Components**: {{ len .Components }} functional areas identified

## Component Overview

| Component | Images | Type | Description |
|-----------|--------|------|-------------|
{{- range .Overview }}
| {{ .Name }} | {{ len .Images }} | {{ .Category | replace "_" " " | title }} | {{ if gt (len .Description) 50 }}{{ trunc 50 .Description }}...{{ else }}{{ .Description }}{{ end }} |
{{- end }}

{{- with .Comparison }}

## Key Changes (vs RHOAI {{ $.ComparedWith }})
- **Added**: {{ len .Added }} new images
- **Removed**: {{ len .Removed }} deprecated images
- **Unchanged**: {{ len .Unchanged }} existing images
{{- end }}

## Detailed Component Breakdown

### Infrastructure Components ({{ len .InfrastructureImages }} images)
{{- range .Infrastructure }}{{ template "section" . }}{{ end }}

### Workload Components ({{ len .WorkloadImages }} images)
{{- range .Workload }}{{ template "section" . }}{{ end }}

{{- if .IncludeSecurity }}

## Security Analysis

### Registry Distribution
- **Trusted Red Hat**: {{ .SecurityInsights.TrustedRegistries }} images ({{ .TrustedPct }}%)
- **Community/Other**: {{ .SecurityInsights.CommunityRegistries }} images ({{ .CommunityPct }}%)

### Registry Breakdown

| Registry | Images | Percentage | Trust Level |
|----------|--------|------------|-------------|
{{- range .RegistryRows }}
| {{ .Name }} | {{ .Count }} | {{ .Percentage }}% | {{ .Trust }} |
{{- end }}

{{- if or .Deprecated .Unverified }}

### Potential Concerns
{{- if .Deprecated }}
- **Deprecated Images**: {{ len .SecurityInsights.DeprecatedImages }} images using deprecated patterns
{{- range .Deprecated }}
  - {{ . }}
{{- end }}
{{- end }}
{{- if .Unverified }}
- **Unverified Sources**: {{ len .SecurityInsights.UnverifiedSources }} images from non-standard registries
{{- range .Unverified }}
  - {{ . }}
{{- end }}
{{- end }}
{{- end }}

{{- if .SecurityInsights.Recommendations }}

### Recommendations
{{- range .SecurityInsights.Recommendations }}
- {{ . }}
{{- end }}
{{- end }}
{{- end }}

{{- if .Variants }}

## Image Variants
{{- range .Variants }}

### {{ .Name }} ({{ .UniqueDigests }} unique digests, {{ .TotalReferences }} references)

| Image | Digest | Python | GPU | Arch | Platforms | References |
|-------|--------|--------|-----|------|-----------|------------|
{{- range .Variants }}
| {{ .BaseName }} | {{ .Digest | trimPrefix "sha256:" | trunc 12 | default "-" }} | {{ .PythonVersion | default "-" }} | {{ .GPUSupport | default "-" }} | {{ .Architecture | default "-" }} | {{ .Platforms | join ", " | default "-" }} | {{ .ReferenceCount }} |
{{- end }}
{{- end }}
{{- end }}
`

const sectionTemplate = `{{ define "section" }}

#### {{ .Name }} ({{ .Count }} images)
*{{ .Description }}*
{{ range .Groups }}
{{- if .Title }}
**{{ .Title | replace "_" " " | title }}**: {{ .Total }} images
{{- end }}
{{- range .Lines }}
- {{ . }}
{{- end }}
{{- end }}
{{- end }}`

var markdownTmpl = template.Must(template.New("report").Funcs(sprig.TxtFuncMap()).Parse(sectionTemplate + markdownTemplate))

func renderMarkdown(analysis *types.Analysis, opts Options) (string, error) {
	ctx := newMarkdownContext(analysis, opts)

	var buf bytes.Buffer
	if err := markdownTmpl.Execute(&buf, ctx); err != nil {
		return "", errors.Wrap(err, "rendering markdown report")
	}
	return buf.String(), nil
}

func newMarkdownContext(analysis *types.Analysis, opts Options) *markdownContext {
	ctx := &markdownContext{
		Analysis:        analysis,
		Registries:      sortedCounts(analysis.RegistryAnalysis.RegistryCounts),
		EstimatedSizeGB: estimatedSizeGB(analysis.TotalImages),
		Overview:        componentsBySize(analysis.Components),
		IncludeSecurity: opts.IncludeSecurity,
		TrustedPct:      percentage(analysis.SecurityInsights.TrustedRegistries, analysis.TotalImages),
		CommunityPct:    percentage(analysis.SecurityInsights.CommunityRegistries, analysis.TotalImages),
		Deprecated:      head(analysis.SecurityInsights.DeprecatedImages, concernsListed),
		Unverified:      head(analysis.SecurityInsights.UnverifiedSources, concernsListed),
	}

	baseOS := make(map[string]int)
	for _, images := range [][]*types.ImageReference{analysis.InfrastructureImages, analysis.WorkloadImages} {
		for _, img := range images {
			name := string(img.BaseOS)
			if name == "" {
				name = string(types.BaseOSUnknown)
			}
			baseOS[name]++
		}
	}
	ctx.BaseOS = sortedCounts(baseOS)

	for _, c := range ctx.Registries {
		trust := "Community"
		if analyzer.IsTrustedRegistry(c.Name) {
			trust = "Trusted"
		}
		ctx.RegistryRows = append(ctx.RegistryRows, registryRow{
			Name:       c.Name,
			Count:      c.Count,
			Percentage: percentage(c.Count, analysis.TotalImages),
			Trust:      trust,
		})
	}

	for _, c := range ctx.Overview {
		if s, ok := infrastructureSection(c); ok {
			ctx.Infrastructure = append(ctx.Infrastructure, s)
		}
		if s, ok := workloadSection(c); ok {
			ctx.Workload = append(ctx.Workload, s)
		}
		if opts.ShowVariants && len(c.Variants) > 0 {
			ctx.Variants = append(ctx.Variants, c)
		}
	}

	return ctx
}

func infrastructureSection(c *types.ComponentInfo) (section, bool) {
	images := withClassification(c.Images, types.ClassificationInfrastructure)
	if len(images) == 0 {
		return section{}, false
	}

	lines := make([]string, 0, infrastructureListed+1)
	for _, img := range head(images, infrastructureListed) {
		line := img.FullReference()
		if img.SemanticName != "" {
			line += " (" + img.SemanticName + ")"
		}
		lines = append(lines, line)
	}
	if more := len(images) - infrastructureListed; more > 0 {
		lines = append(lines, fmt.Sprintf("... and %d more images", more))
	}

	return section{
		Name:        c.Name,
		Description: c.Description,
		Count:       len(images),
		Groups:      []group{{Total: len(images), Lines: lines}},
	}, true
}

func workloadSection(c *types.ComponentInfo) (section, bool) {
	images := withClassification(c.Images, types.ClassificationWorkload)
	if len(images) == 0 {
		return section{}, false
	}

	var order []string
	byCategory := make(map[string][]*types.ImageReference)
	for _, img := range images {
		category := img.Category
		if category == "" {
			category = defaultCategory
		}
		if _, ok := byCategory[category]; !ok {
			order = append(order, category)
		}
		byCategory[category] = append(byCategory[category], img)
	}

	groups := make([]group, 0, len(order))
	for _, category := range order {
		members := byCategory[category]
		g := group{Total: len(members)}
		if len(order) > 1 {
			g.Title = category
		}
		for _, img := range head(members, workloadListed) {
			g.Lines = append(g.Lines, img.FullReference())
		}
		if more := len(members) - workloadListed; more > 0 {
			g.Lines = append(g.Lines, fmt.Sprintf("... and %d more", more))
		}
		groups = append(groups, g)
	}

	return section{
		Name:        c.Name,
		Description: c.Description,
		Count:       len(images),
		Groups:      groups,
	}, true
}

func withClassification(images []*types.ImageReference, classification types.Classification) []*types.ImageReference {
	var out []*types.ImageReference
	for _, img := range images {
		if img.Classification == classification {
			out = append(out, img)
		}
	}
	return out
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
