package fetchx

import (
	"net/http"
	"strings"
)

// mergeHeaders combines base and overlay into a fresh header map. Every
// overlay key replaces the base entry for the same canonical key; neither
// input is mutated. A nil overlay yields a clone of base.
func mergeHeaders(base, overlay http.Header) http.Header {
	merged := make(http.Header, len(base)+len(overlay))
	for k, vs := range base {
		merged[k] = append([]string(nil), vs...)
	}
	for k, vs := range overlay {
		merged.Del(k)
		for _, v := range vs {
			merged.Add(k, v)
		}
	}
	return merged
}

// headerFromPairs builds a header from [key, value...] tuples. Tuples with
// multiple values are joined with ", " as a single header line; later tuples
// replace earlier ones for the same canonical key. Tuples without a value
// are skipped.
func headerFromPairs(pairs [][]string) http.Header {
	h := make(http.Header, len(pairs))
	for _, pair := range pairs {
		if len(pair) < 2 {
			continue
		}
		h.Set(pair[0], strings.Join(pair[1:], ", "))
	}
	return h
}
