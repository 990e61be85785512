package catalog

import (
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/imageref"
	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

var (
	helperImageRegex  = regexp.MustCompile(`[a-zA-Z0-9.-]+(?::[0-9]+)?/[a-zA-Z0-9._/-]+@sha256:[a-f0-9]{64}`)
	categoryCharRegex = regexp.MustCompile(`[^a-z0-9_]`)
)

// ParseHelperDocument extracts pinned images from a disconnected install helper document.
// Second-level headings name the category of the images listed below them.
func ParseHelperDocument(content string) ([]*types.ImageReference, error) {
	source := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	// images of a repeated heading join the category where it first appeared
	var order []string
	byCategory := map[string][]*types.ImageReference{}
	category := CategoryGeneral

	collect := func(line string) {
		if !strings.Contains(line, "@sha256:") {
			return
		}
		match := helperImageRegex.FindString(line)
		if match == "" {
			return
		}
		ref := imageref.Parse(match, types.SourceDisconnectedHelper)
		ref.Category = category
		if _, ok := byCategory[category]; !ok {
			order = append(order, category)
		}
		byCategory[category] = append(byCategory[category], ref)
	}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 2 {
				category = categoryKey(string(joinLines(node, source)))
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			for _, line := range blockLines(n, source) {
				trimmed := strings.TrimSpace(line)
				if strings.HasPrefix(trimmed, "- ") || strings.Contains(trimmed, "name:") {
					collect(trimmed)
				}
			}
			return ast.WalkSkipChildren, nil

		case *ast.TextBlock, *ast.Paragraph:
			listed := inListItem(n)
			for _, line := range blockLines(n, source) {
				if listed || strings.Contains(line, "name:") {
					collect(line)
				}
			}
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, &ErrorUnsupported{err}
	}

	var images []*types.ImageReference
	for _, c := range order {
		images = append(images, byCategory[c]...)
	}
	log.Debugf("parsed %d images from disconnected helper document", len(images))
	return images, nil
}

func categoryKey(heading string) string {
	return categoryCharRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(heading)), "_")
}

func blockLines(n ast.Node, source []byte) []string {
	lines := n.Lines()
	out := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, string(seg.Value(source)))
	}
	return out
}

func joinLines(n ast.Node, source []byte) []byte {
	return []byte(strings.Join(blockLines(n, source), " "))
}

func inListItem(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == ast.KindListItem {
			return true
		}
	}
	return false
}
