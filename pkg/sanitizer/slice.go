package sanitizer

import "slices"

// NormalizeFeatures normalizes each feature and returns them as a sorted set,
// so two resources with the same features always store the same slice.
func NormalizeFeatures(features []string) []string {
	out := make([]string, 0, len(features))
	for _, f := range features {
		if f = NormalizeFeature(f); f != "" {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
