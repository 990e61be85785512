package analyzer

import (
	"regexp"
	"strings"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

// Evaluated against the lower-cased repository; infrastructure markers win over workload markers.
var (
	infrastructurePatterns = compileAll(
		`-operator`,
		`-controller`,
		`-server`,
		`-proxy`,
		`-bundle`,
		`^odh-`,
		`modelmesh`,
		`kuberay`,
		`codeflare`,
		`pipelines`,
	)

	workloadPatterns = compileAll(
		`-notebook`,
		`-workbench`,
		`code-server`,
		`jupyter`,
		`tensorflow`,
		`pytorch`,
		`cuda`,
		`training`,
	)
)

// TrustedRegistries are the registries whose content is considered platform-owned.
var TrustedRegistries = []string{
	"registry.redhat.io",
	"registry.access.redhat.com",
}

// IsTrustedRegistry matches the registry host exactly; no case folding is applied.
func IsTrustedRegistry(registry string) bool {
	for _, r := range TrustedRegistries {
		if r == registry {
			return true
		}
	}
	return false
}

// ClassifyImage returns the classification and base OS for a single image without
// modifying it.
func ClassifyImage(img *types.ImageReference) (types.Classification, types.BaseOS) {
	return classification(img), DetectImageBaseOS(img)
}

func classification(img *types.ImageReference) types.Classification {
	name := strings.ToLower(img.Repository)
	switch {
	case matchesAny(infrastructurePatterns, name):
		return types.ClassificationInfrastructure
	case matchesAny(workloadPatterns, name):
		return types.ClassificationWorkload
	case IsTrustedRegistry(img.Registry):
		return types.ClassificationInfrastructure
	default:
		return types.ClassificationWorkload
	}
}

// DetectImageBaseOS infers the base OS from the repository name. The RHEL markers are
// checked before the generic UBI marker since names may carry both.
func DetectImageBaseOS(img *types.ImageReference) types.BaseOS {
	name := strings.ToLower(img.Repository)
	switch {
	case strings.Contains(name, "rhel8"):
		return types.BaseOSRHEL8
	case strings.Contains(name, "rhel9"):
		return types.BaseOSRHEL9
	case strings.Contains(name, "ubi"):
		return types.BaseOSUBI
	default:
		return types.BaseOSUnknown
	}
}

// Classify sets Classification on every image in place. It must run before any pass
// that reads the classification.
func Classify(images []*types.ImageReference) {
	for _, img := range images {
		img.Classification = classification(img)
	}
}

// DetectBaseOS sets BaseOS on every image in place.
func DetectBaseOS(images []*types.ImageReference) {
	for _, img := range images {
		img.BaseOS = DetectImageBaseOS(img)
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
