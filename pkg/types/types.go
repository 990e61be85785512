package types

import "fmt"

// ImageSource identifies which upstream document produced an image reference.
type ImageSource string

const (
	SourceOLMCatalog         ImageSource = "olm_catalog"
	SourceDisconnectedHelper ImageSource = "disconnected_helper"
)

// Classification separates platform images from images users run directly.
type Classification string

const (
	ClassificationUnknown        Classification = "unknown"
	ClassificationInfrastructure Classification = "infrastructure"
	ClassificationWorkload       Classification = "workload"
)

// BaseOS is the operating system family an image is built on, as far as its name tells.
type BaseOS string

const (
	BaseOSRHEL8   BaseOS = "RHEL8"
	BaseOSRHEL9   BaseOS = "RHEL9"
	BaseOSUBI     BaseOS = "UBI"
	BaseOSUnknown BaseOS = "Unknown"
)

// ImageReference is one concrete image pull reference plus the metadata derived for it.
// Classification and BaseOS are written by the classifier and are read-only afterwards.
type ImageReference struct {
	Image      string
	Registry   string
	Namespace  string
	Repository string
	// Digest and Tag are mutually exclusive; a digest always wins.
	Digest string
	Tag    string

	SemanticName   string
	Source         ImageSource
	Category       string
	Classification Classification
	BaseOS         BaseOS
}

// FullReference rebuilds the pull reference, preferring the digest over the tag.
func (i *ImageReference) FullReference() string {
	base := fmt.Sprintf("%s/%s/%s", i.Registry, i.Namespace, i.Repository)
	switch {
	case i.Digest != "":
		return base + "@" + i.Digest
	case i.Tag != "":
		return base + ":" + i.Tag
	default:
		return base
	}
}

// ImageVariant collapses the references to one build of an image.
type ImageVariant struct {
	BaseName       string
	Digest         string
	Sources        []ImageSource
	Architecture   string
	PythonVersion  string
	GPUSupport     string
	BaseOS         BaseOS
	VariantType    string
	Platforms      []string
	ReferenceCount int
}

// ComponentInfo is one functional grouping of images.
type ComponentInfo struct {
	Name        string
	Category    string
	Description string
	// Images keeps grouping order.
	Images []*ImageReference

	// Populated by the variants package only.
	UniqueDigests   int
	TotalReferences int
	Variants        []ImageVariant
}

type RegistryAnalysis struct {
	RegistryCounts  map[string]int
	NamespaceCounts map[string]int
	TotalImages     int
}

type SecurityInsights struct {
	TrustedRegistries   int
	CommunityRegistries int
	DeprecatedImages    []string
	UnverifiedSources   []string
	Recommendations     []string
}

// VersionComparison partitions digest-bearing images of two releases.
// Updated is never populated.
type VersionComparison struct {
	Added     []*ImageReference
	Removed   []*ImageReference
	Updated   []*ImageReference
	Unchanged []*ImageReference
}

// Analysis is everything a report is rendered from.
type Analysis struct {
	Release         string
	PlatformRelease string
	ComparedWith    string

	TotalImages          int
	InfrastructureImages []*ImageReference
	WorkloadImages       []*ImageReference
	Components           []*ComponentInfo
	RegistryAnalysis     RegistryAnalysis
	SecurityInsights     SecurityInsights
	Comparison           *VersionComparison
}

// Platform represents a specific platform (OS/architecture combination)
type Platform struct {
	OS      string
	Arch    string
	Variant string
	Digest  string
}
