// Package variants collapses the images of each component into distinct builds and derives
// what their names say about architecture, python version and accelerator support.
package variants

import (
	"context"
	"regexp"
	"strings"

	"github.com/containerd/platforms"
	"github.com/hashicorp/go-multierror"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

const (
	GPUCUDA  = "CUDA"
	GPUROCm  = "ROCm"
	GPUGaudi = "Gaudi"
	GPUNone  = "CPU"

	TypeRuntime    = "runtime"
	TypeWorkbench  = "workbench"
	TypeController = "controller"
	TypeBundle     = "bundle"
	TypeImage      = "image"
)

var (
	pythonRegex = regexp.MustCompile(`(?:^|[-_])py(?:thon)?-?(\d)\.?(\d{1,2})(?:$|[-_.])`)
	archRegex   = regexp.MustCompile(`(?:^|[-_])(amd64|x86_64|arm64|aarch64|ppc64le|s390x)(?:$|[-_])`)
	cpuRegex    = regexp.MustCompile(`(?:^|[-_])cpu(?:$|[-_])`)

	workbenchRegex  = regexp.MustCompile(`notebook|workbench|jupyter|code-server|rstudio`)
	controllerRegex = regexp.MustCompile(`operator|controller`)
)

// Inspector looks up the platforms an image reference is published for.
type Inspector interface {
	InspectPlatforms(ctx context.Context, imageRef string) ([]string, error)
}

// Populate fills the reference counts and variants of every component. When inspector is
// non-nil each variant is also resolved against its registry; inspection failures are
// collected and returned together after all components are populated.
func Populate(ctx context.Context, components []*types.ComponentInfo, inspector Inspector) error {
	var errs *multierror.Error

	for _, c := range components {
		variants, refs := Build(c.Images)
		c.Variants = variants
		c.TotalReferences = len(c.Images)
		c.UniqueDigests = uniqueDigests(c.Images)

		if inspector == nil {
			continue
		}
		for i := range c.Variants {
			if err := ctx.Err(); err != nil {
				return err
			}
			found, err := inspector.InspectPlatforms(ctx, refs[i])
			if err != nil {
				errs = multierror.Append(errs, errors.Wrapf(err, "inspecting %s", refs[i]))
				continue
			}
			c.Variants[i].Platforms = found
		}
	}

	return errs.ErrorOrNil()
}

// Build merges images with the same digest, or the same full reference when they carry
// no digest, into one variant each. Variants keep the order of their first image. The
// second return value holds the pull reference of each variant.
func Build(images []*types.ImageReference) ([]types.ImageVariant, []string) {
	index := make(map[string]int)
	variants := []types.ImageVariant{}
	var refs []string

	for _, img := range images {
		key := img.Digest
		if key == "" {
			key = img.FullReference()
		}

		if i, ok := index[key]; ok {
			v := &variants[i]
			v.ReferenceCount++
			if !containsSource(v.Sources, img.Source) {
				v.Sources = append(v.Sources, img.Source)
			}
			continue
		}

		v := Describe(img.Repository)
		v.BaseName = img.Registry + "/" + img.Namespace + "/" + img.Repository
		v.Digest = img.Digest
		v.Sources = []types.ImageSource{img.Source}
		v.BaseOS = img.BaseOS
		v.ReferenceCount = 1

		index[key] = len(variants)
		variants = append(variants, v)
		refs = append(refs, img.FullReference())
	}

	return variants, refs
}

// Describe derives the traits encoded in a repository name.
func Describe(repository string) types.ImageVariant {
	repo := strings.ToLower(repository)
	v := types.ImageVariant{
		GPUSupport:  gpuSupport(repo),
		VariantType: variantType(repo),
	}

	if m := pythonRegex.FindStringSubmatch(repo); m != nil {
		v.PythonVersion = m[1] + "." + m[2]
	}
	if m := archRegex.FindStringSubmatch(repo); m != nil {
		v.Architecture = platforms.Normalize(ocispec.Platform{OS: "linux", Architecture: m[1]}).Architecture
	}

	log.Debugf("%s: python=%q gpu=%q arch=%q type=%s", repository, v.PythonVersion, v.GPUSupport, v.Architecture, v.VariantType)
	return v
}

func gpuSupport(repo string) string {
	switch {
	case strings.Contains(repo, "cuda"):
		return GPUCUDA
	case strings.Contains(repo, "rocm"):
		return GPUROCm
	case strings.Contains(repo, "gaudi"), strings.Contains(repo, "habana"):
		return GPUGaudi
	case cpuRegex.MatchString(repo):
		return GPUNone
	}
	return ""
}

func variantType(repo string) string {
	switch {
	case strings.Contains(repo, "bundle"):
		return TypeBundle
	case strings.Contains(repo, "runtime"):
		return TypeRuntime
	case workbenchRegex.MatchString(repo):
		return TypeWorkbench
	case controllerRegex.MatchString(repo):
		return TypeController
	}
	return TypeImage
}

func uniqueDigests(images []*types.ImageReference) int {
	digests := sets.New[string]()
	for _, img := range images {
		if img.Digest != "" {
			digests.Insert(img.Digest)
		}
	}
	return digests.Len()
}

func containsSource(sources []types.ImageSource, s types.ImageSource) bool {
	for _, existing := range sources {
		if existing == s {
			return true
		}
	}
	return false
}
