package manifest

import (
	"context"
	"fmt"
	"sort"

	"github.com/containerd/platforms"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	log "github.com/sirupsen/logrus"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

// For testing.
var remoteGet = remote.Get

// Inspector resolves the platforms of image variants against their registries.
type Inspector struct{}

// InspectPlatforms returns the sorted os/arch[/variant] strings an image is published for.
func (Inspector) InspectPlatforms(ctx context.Context, imageRef string) ([]string, error) {
	found, err := DiscoverPlatforms(ctx, imageRef)
	if err != nil {
		return nil, err
	}
	return FormatPlatforms(found), nil
}

// DiscoverPlatforms inspects an image reference and returns one entry per platform
// manifest, or the single platform of a non-index image.
func DiscoverPlatforms(ctx context.Context, imageRef string) ([]types.Platform, error) {
	found, err := discoverImagePlatforms(ctx, imageRef)
	if err != nil {
		return nil, fmt.Errorf("failed to discover platforms from image: %w", err)
	}
	return found, nil
}

var discoverImagePlatforms = func(ctx context.Context, imageRef string) ([]types.Platform, error) {
	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return nil, fmt.Errorf("parsing reference %q: %w", imageRef, err)
	}

	desc, err := remoteGet(ref, remote.WithContext(ctx), remote.WithAuthFromKeychain(authn.DefaultKeychain))
	if err != nil {
		return nil, fmt.Errorf("fetching descriptor for %q: %w", imageRef, err)
	}

	if desc.MediaType.IsIndex() {
		index, err := desc.ImageIndex()
		if err != nil {
			return nil, fmt.Errorf("getting image index: %w", err)
		}
		indexManifest, err := index.IndexManifest()
		if err != nil {
			return nil, fmt.Errorf("getting index manifest: %w", err)
		}

		found := make([]types.Platform, 0, len(indexManifest.Manifests))
		for _, m := range indexManifest.Manifests {
			// attestation manifests are attached as unknown/unknown
			if m.Platform == nil || m.Platform.OS == "unknown" {
				continue
			}
			found = append(found, types.Platform{
				OS:      m.Platform.OS,
				Arch:    m.Platform.Architecture,
				Variant: m.Platform.Variant,
				Digest:  m.Digest.String(),
			})
		}
		log.Debugf("%s is an index of %d platforms", imageRef, len(found))
		return found, nil
	}

	img, err := desc.Image()
	if err != nil {
		return nil, fmt.Errorf("getting image: %w", err)
	}
	configFile, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("getting config file: %w", err)
	}

	return []types.Platform{{
		OS:      configFile.OS,
		Arch:    configFile.Architecture,
		Variant: configFile.Variant,
		Digest:  desc.Digest.String(),
	}}, nil
}

// FormatPlatforms normalizes and de-duplicates platforms into sorted os/arch[/variant] strings.
func FormatPlatforms(found []types.Platform) []string {
	seen := make(map[string]struct{}, len(found))
	out := make([]string, 0, len(found))
	for _, p := range found {
		s := platforms.Format(platforms.Normalize(ocispec.Platform{
			OS:           p.OS,
			Architecture: p.Arch,
			Variant:      p.Variant,
		}))
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
