package analyzer

import (
	"fmt"
	"strings"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

var deprecatedMarkers = []string{"deprecated", "legacy", "old"}

// communityRegistryMarker exempts quay.io hosted images from the unverified list.
const communityRegistryMarker = "quay.io"

// AnalyzeSecurity counts trusted and community images, flags deprecated and unverified
// references and derives recommendations from those counts.
func AnalyzeSecurity(images []*types.ImageReference) types.SecurityInsights {
	insights := types.SecurityInsights{
		DeprecatedImages:  []string{},
		UnverifiedSources: []string{},
		Recommendations:   []string{},
	}

	for _, img := range images {
		trusted := IsTrustedRegistry(img.Registry)
		if trusted {
			insights.TrustedRegistries++
		} else {
			insights.CommunityRegistries++
		}

		if isDeprecated(img) {
			insights.DeprecatedImages = append(insights.DeprecatedImages, img.FullReference())
		}

		if !trusted && !strings.Contains(img.Registry, communityRegistryMarker) {
			insights.UnverifiedSources = append(insights.UnverifiedSources, img.FullReference())
		}
	}

	insights.Recommendations = recommendations(insights)
	return insights
}

func isDeprecated(img *types.ImageReference) bool {
	name := strings.ToLower(img.Repository)
	for _, marker := range deprecatedMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

func recommendations(insights types.SecurityInsights) []string {
	recs := []string{}
	if n := len(insights.DeprecatedImages); n > 0 {
		recs = append(recs, fmt.Sprintf("Migrate %d deprecated images before next release", n))
	}
	if n := len(insights.UnverifiedSources); n > 0 {
		recs = append(recs, fmt.Sprintf("Verify %d images from non-standard registries", n))
	}
	if insights.CommunityRegistries > insights.TrustedRegistries {
		recs = append(recs, "Consider migrating community images to trusted registries")
	}
	return recs
}
