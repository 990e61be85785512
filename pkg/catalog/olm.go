package catalog

import (
	"bytes"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/imageref"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

const (
	bundleSchema     = "olm.bundle"
	bundleNamePrefix = "rhods-operator."

	CategoryBundle  = "bundle"
	CategoryRelated = "related"
	CategoryGeneral = "general"
)

// ErrorUnsupported is returned when a document cannot be decoded at all.
type ErrorUnsupported struct {
	err error
}

func (e *ErrorUnsupported) Error() string {
	return "unsupported document: " + e.err.Error()
}

func (e *ErrorUnsupported) Unwrap() error {
	return e.err
}

type relatedImage struct {
	Name  string `yaml:"name"`
	Image string `yaml:"image"`
}

type catalogDocument struct {
	Schema        string         `yaml:"schema"`
	Name          string         `yaml:"name"`
	Image         string         `yaml:"image"`
	RelatedImages []relatedImage `yaml:"relatedImages"`
}

// ParseCatalog extracts the bundle image and related images of every olm.bundle
// document in a file-based catalog.
func ParseCatalog(content []byte) ([]*types.ImageReference, error) {
	var images []*types.ImageReference

	dec := yaml.NewDecoder(bytes.NewReader(content))
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ErrorUnsupported{err}
		}

		// Non-mapping documents (scalars, lists) are skipped rather than rejected.
		if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
			continue
		}

		var doc catalogDocument
		if err := node.Decode(&doc); err != nil {
			log.Debugf("skipping undecodable catalog document at line %d: %v", node.Line, err)
			continue
		}
		if doc.Schema != bundleSchema {
			continue
		}
		images = append(images, bundleImages(&doc)...)
	}

	log.Debugf("parsed %d images from OLM catalog", len(images))
	return images, nil
}

func bundleImages(doc *catalogDocument) []*types.ImageReference {
	var images []*types.ImageReference

	if doc.Image != "" {
		ref := imageref.Parse(doc.Image, types.SourceOLMCatalog)
		ref.SemanticName = strings.ReplaceAll(doc.Name, bundleNamePrefix, "")
		ref.Category = CategoryBundle
		images = append(images, ref)
	}

	for _, related := range doc.RelatedImages {
		if related.Image == "" {
			continue
		}
		ref := imageref.Parse(related.Image, types.SourceOLMCatalog)
		ref.SemanticName = related.Name
		ref.Category = CategoryRelated
		images = append(images, ref)
	}

	return images
}
