package report

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

type jsonReport struct {
	RHOAIVersion string          `json:"rhoai_version"`
	OCPVersion   string          `json:"ocp_version"`
	ComparedWith string          `json:"compared_with,omitempty"`
	Summary      jsonSummary     `json:"summary"`
	Components   []jsonComponent `json:"components"`
	Security     *jsonSecurity   `json:"security,omitempty"`
	Comparison   *jsonComparison `json:"comparison,omitempty"`
}

type jsonSummary struct {
	TotalImages          int            `json:"total_images"`
	InfrastructureImages int            `json:"infrastructure_images"`
	WorkloadImages       int            `json:"workload_images"`
	Registries           map[string]int `json:"registries"`
	Components           int            `json:"components"`
	EstimatedSizeGB      float64        `json:"estimated_size_gb"`
}

type jsonComponent struct {
	Name            string        `json:"name"`
	Category        string        `json:"category"`
	ImageCount      int           `json:"image_count"`
	Description     string        `json:"description"`
	Images          []string      `json:"images"`
	UniqueDigests   int           `json:"unique_digests,omitempty"`
	TotalReferences int           `json:"total_references,omitempty"`
	Variants        []jsonVariant `json:"variants,omitempty"`
}

type jsonVariant struct {
	BaseName       string   `json:"base_name"`
	Digest         string   `json:"digest,omitempty"`
	Sources        []string `json:"sources"`
	Architecture   string   `json:"architecture,omitempty"`
	PythonVersion  string   `json:"python_version,omitempty"`
	GPUSupport     string   `json:"gpu_support,omitempty"`
	BaseOS         string   `json:"base_os,omitempty"`
	VariantType    string   `json:"variant_type,omitempty"`
	Platforms      []string `json:"platforms,omitempty"`
	ReferenceCount int      `json:"reference_count"`
}

type jsonSecurity struct {
	TrustedRegistries   int      `json:"trusted_registries"`
	CommunityRegistries int      `json:"community_registries"`
	DeprecatedImages    []string `json:"deprecated_images"`
	UnverifiedSources   []string `json:"unverified_sources"`
	Recommendations     []string `json:"recommendations"`
}

type jsonComparison struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Updated   []string `json:"updated"`
	Unchanged []string `json:"unchanged"`
}

func renderJSON(analysis *types.Analysis, opts Options) (string, error) {
	registries := analysis.RegistryAnalysis.RegistryCounts
	if registries == nil {
		registries = map[string]int{}
	}

	r := jsonReport{
		RHOAIVersion: analysis.Release,
		OCPVersion:   analysis.PlatformRelease,
		ComparedWith: analysis.ComparedWith,
		Summary: jsonSummary{
			TotalImages:          analysis.TotalImages,
			InfrastructureImages: len(analysis.InfrastructureImages),
			WorkloadImages:       len(analysis.WorkloadImages),
			Registries:           registries,
			Components:           len(analysis.Components),
			EstimatedSizeGB:      estimatedSizeGB(analysis.TotalImages),
		},
		Components: make([]jsonComponent, 0, len(analysis.Components)),
	}

	for _, c := range analysis.Components {
		jc := jsonComponent{
			Name:        c.Name,
			Category:    c.Category,
			ImageCount:  len(c.Images),
			Description: c.Description,
			Images:      fullReferences(c.Images),
		}
		if opts.ShowVariants {
			jc.UniqueDigests = c.UniqueDigests
			jc.TotalReferences = c.TotalReferences
			for _, v := range c.Variants {
				jc.Variants = append(jc.Variants, toJSONVariant(v))
			}
		}
		r.Components = append(r.Components, jc)
	}

	if opts.IncludeSecurity {
		s := analysis.SecurityInsights
		r.Security = &jsonSecurity{
			TrustedRegistries:   s.TrustedRegistries,
			CommunityRegistries: s.CommunityRegistries,
			DeprecatedImages:    nonNil(s.DeprecatedImages),
			UnverifiedSources:   nonNil(s.UnverifiedSources),
			Recommendations:     nonNil(s.Recommendations),
		}
	}

	if c := analysis.Comparison; c != nil {
		r.Comparison = &jsonComparison{
			Added:     fullReferences(c.Added),
			Removed:   fullReferences(c.Removed),
			Updated:   fullReferences(c.Updated),
			Unchanged: fullReferences(c.Unchanged),
		}
	}

	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding json report")
	}
	return string(out) + "\n", nil
}

func toJSONVariant(v types.ImageVariant) jsonVariant {
	sources := make([]string, 0, len(v.Sources))
	for _, s := range v.Sources {
		sources = append(sources, string(s))
	}
	return jsonVariant{
		BaseName:       v.BaseName,
		Digest:         v.Digest,
		Sources:        sources,
		Architecture:   v.Architecture,
		PythonVersion:  v.PythonVersion,
		GPUSupport:     v.GPUSupport,
		BaseOS:         string(v.BaseOS),
		VariantType:    v.VariantType,
		Platforms:      v.Platforms,
		ReferenceCount: v.ReferenceCount,
	}
}

func fullReferences(images []*types.ImageReference) []string {
	refs := make([]string, 0, len(images))
	for _, img := range images {
		refs = append(refs, img.FullReference())
	}
	return refs
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
