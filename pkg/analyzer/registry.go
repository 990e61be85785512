package analyzer

import (
	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

// AnalyzeRegistries tallies images per registry host and per registry/namespace pair.
// Keys are taken as-is, without case normalization.
func AnalyzeRegistries(images []*types.ImageReference) types.RegistryAnalysis {
	registries := make(map[string]int)
	namespaces := make(map[string]int)

	for _, img := range images {
		registries[img.Registry]++
		namespaces[img.Registry+"/"+img.Namespace]++
	}

	return types.RegistryAnalysis{
		RegistryCounts:  registries,
		NamespaceCounts: namespaces,
		TotalImages:     len(images),
	}
}
