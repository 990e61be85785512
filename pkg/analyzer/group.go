package analyzer

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

// Group partitions images into components using rules in order; the first matching rule
// wins and unmatched images land in the other component. Components are returned in the
// order their first image was seen and empty components are omitted.
func Group(images []*types.ImageReference, rules []ComponentRule) []*types.ComponentInfo {
	byKey := make(map[string]*types.ComponentInfo)
	var components []*types.ComponentInfo

	for _, img := range images {
		key := componentKey(img, rules)

		component, ok := byKey[key]
		if !ok {
			name, description := ComponentDisplay(key)
			component = &types.ComponentInfo{
				Name:        name,
				Category:    key,
				Description: description,
			}
			byKey[key] = component
			components = append(components, component)
		}
		component.Images = append(component.Images, img)
	}

	return components
}

func componentKey(img *types.ImageReference, rules []ComponentRule) string {
	repository := strings.ToLower(img.Repository)
	full := strings.ToLower(img.FullReference())

	for _, r := range rules {
		if r.Matches(repository, full) {
			log.Debugf("%s assigned to %s", img.FullReference(), r.Key)
			return r.Key
		}
	}
	return OtherComponent
}
