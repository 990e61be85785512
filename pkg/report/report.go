package report

import (
	"fmt"
	"sort"

	"github.com/rhoai-reporter/rhoai-reporter/pkg/types"
)

const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"

	// estimatedGBPerImage is the average compressed image size assumed for download estimates.
	estimatedGBPerImage = 0.1
)

// ErrorUnsupportedFormat is returned for a format other than markdown or json.
type ErrorUnsupportedFormat struct {
	Format string
}

func (e *ErrorUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported report format %q (expected %s or %s)", e.Format, FormatMarkdown, FormatJSON)
}

type Options struct {
	IncludeSecurity bool
	ShowVariants    bool
}

func DefaultOptions() Options {
	return Options{IncludeSecurity: true, ShowVariants: true}
}

// Generate renders an analysis in the requested format.
func Generate(analysis *types.Analysis, format string, opts Options) (string, error) {
	switch format {
	case FormatMarkdown, "":
		return renderMarkdown(analysis, opts)
	case FormatJSON:
		return renderJSON(analysis, opts)
	default:
		return "", &ErrorUnsupportedFormat{Format: format}
	}
}

type count struct {
	Name  string
	Count int
}

// sortedCounts orders by descending count, then name.
func sortedCounts(m map[string]int) []count {
	counts := make([]count, 0, len(m))
	for name, n := range m {
		counts = append(counts, count{Name: name, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
	return counts
}

func percentage(n, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(n)/float64(total)*100)
}

func estimatedSizeGB(totalImages int) float64 {
	return float64(totalImages) * estimatedGBPerImage
}

// componentsBySize orders components by descending image count, keeping grouping order on ties.
func componentsBySize(components []*types.ComponentInfo) []*types.ComponentInfo {
	sorted := make([]*types.ComponentInfo, len(components))
	copy(sorted, components)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Images) > len(sorted[j].Images)
	})
	return sorted
}
