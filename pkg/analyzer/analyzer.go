// Package analyzer classifies release images, groups them into functional components and
// derives registry, security and comparison summaries from them.
package analyzer

import (
	log "github.com/sirupsen/logrus"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

// Request describes one analysis run. Previous is only diffed when CompareWith is set.
type Request struct {
	Release         string
	PlatformRelease string
	Images          []*types.ImageReference

	CompareWith string
	Previous    []*types.ImageReference
}

// Analyzer holds the component rule table used for grouping. It keeps no other state and
// can be reused across runs.
type Analyzer struct {
	rules []ComponentRule
}

type Option func(*Analyzer)

// WithRules replaces the component rule table.
func WithRules(rules []ComponentRule) Option {
	return func(a *Analyzer) {
		a.rules = rules
	}
}

func New(opts ...Option) *Analyzer {
	a := &Analyzer{rules: GranularRules}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the classifier first, since grouping and the partitions read the
// classification it writes, then the independent grouping, registry and security passes.
func (a *Analyzer) Analyze(req Request) *types.Analysis {
	Classify(req.Images)
	DetectBaseOS(req.Images)

	analysis := &types.Analysis{
		Release:              req.Release,
		PlatformRelease:      req.PlatformRelease,
		TotalImages:          len(req.Images),
		InfrastructureImages: []*types.ImageReference{},
		WorkloadImages:       []*types.ImageReference{},
	}

	for _, img := range req.Images {
		switch img.Classification {
		case types.ClassificationInfrastructure:
			analysis.InfrastructureImages = append(analysis.InfrastructureImages, img)
		case types.ClassificationWorkload:
			analysis.WorkloadImages = append(analysis.WorkloadImages, img)
		}
	}

	analysis.Components = Group(req.Images, a.rules)
	analysis.RegistryAnalysis = AnalyzeRegistries(req.Images)
	analysis.SecurityInsights = AnalyzeSecurity(req.Images)

	if req.CompareWith != "" {
		analysis.ComparedWith = req.CompareWith
		analysis.Comparison = Compare(req.Images, req.Previous)
	}

	log.Debugf("analyzed %d images: %d infrastructure, %d workload, %d components",
		analysis.TotalImages, len(analysis.InfrastructureImages), len(analysis.WorkloadImages), len(analysis.Components))

	return analysis
}
