package analyzer

import (
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

// Compare diffs two releases by content digest. Images without a digest cannot be
// compared and are left out of every partition. Unchanged images are taken from current.
//
// Updated is always empty: correlating a new digest with the build it replaced needs a
// component-level identity that digests do not provide.
func Compare(current, previous []*types.ImageReference) *types.VersionComparison {
	currentImages := uniqueByDigest(current)
	previousImages := uniqueByDigest(previous)

	currentDigests := digestSet(currentImages)
	previousDigests := digestSet(previousImages)

	comparison := &types.VersionComparison{
		Added:     []*types.ImageReference{},
		Removed:   []*types.ImageReference{},
		Updated:   []*types.ImageReference{},
		Unchanged: []*types.ImageReference{},
	}

	for _, img := range currentImages {
		if previousDigests.Has(img.Digest) {
			comparison.Unchanged = append(comparison.Unchanged, img)
		} else {
			comparison.Added = append(comparison.Added, img)
		}
	}
	for _, img := range previousImages {
		if !currentDigests.Has(img.Digest) {
			comparison.Removed = append(comparison.Removed, img)
		}
	}

	return comparison
}

// uniqueByDigest drops digest-less images. A repeated digest keeps the position of its
// first occurrence and the image of its last.
func uniqueByDigest(images []*types.ImageReference) []*types.ImageReference {
	index := make(map[string]int, len(images))
	out := make([]*types.ImageReference, 0, len(images))
	for _, img := range images {
		if img.Digest == "" {
			continue
		}
		if i, ok := index[img.Digest]; ok {
			out[i] = img
			continue
		}
		index[img.Digest] = len(out)
		out = append(out, img)
	}
	return out
}

func digestSet(images []*types.ImageReference) sets.Set[string] {
	s := sets.New[string]()
	for _, img := range images {
		s.Insert(img.Digest)
	}
	return s
}
