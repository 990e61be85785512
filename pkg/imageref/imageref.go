package imageref

import (
	"strings"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
	log "github.com/sirupsen/logrus"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

// Unknown is used for the registry and namespace of references too short to carry them.
const Unknown = "unknown"

// Parse splits a raw pull string into registry, namespace, repository and digest or tag.
// Parsing never fails: references the distribution grammar rejects are split loosely.
func Parse(raw string, source types.ImageSource) *types.ImageReference {
	ref := &types.ImageReference{
		Image:          raw,
		Source:         source,
		Classification: types.ClassificationUnknown,
	}

	var name string
	if parsed, err := reference.Parse(raw); err == nil {
		if named, ok := parsed.(reference.Named); ok {
			name = named.Name()
		}
		if d, ok := parsed.(reference.Digested); ok {
			ref.Digest = d.Digest().String()
		} else if t, ok := parsed.(reference.Tagged); ok {
			ref.Tag = t.Tag()
		}
	} else {
		log.Debugf("reference %q does not follow the distribution grammar: %v", raw, err)
		name, ref.Digest, ref.Tag = splitLoose(raw)
	}

	parts := strings.Split(name, "/")
	if len(parts) >= 3 {
		ref.Registry = parts[0]
		ref.Namespace = parts[1]
		ref.Repository = strings.Join(parts[2:], "/")
	} else {
		ref.Registry = Unknown
		ref.Namespace = Unknown
		ref.Repository = name
	}
	return ref
}

// splitLoose handles uppercase names and malformed digests.
// A ':' only starts a tag when it follows the last '/', so registry ports survive.
func splitLoose(raw string) (name, dgst, tag string) {
	if i := strings.LastIndex(raw, "@"); i >= 0 {
		dgst = raw[i+1:]
		if _, err := digest.Parse(dgst); err != nil {
			log.Debugf("keeping unverifiable digest %q: %v", dgst, err)
		}
		return raw[:i], dgst, ""
	}
	colon := strings.LastIndex(raw, ":")
	if colon > strings.LastIndex(raw, "/") {
		return raw[:colon], "", raw[colon+1:]
	}
	return raw, "", ""
}

// IsDigest reports whether s is a well-formed content digest.
func IsDigest(s string) bool {
	_, err := digest.Parse(s)
	return err == nil
}
