package fetchx

import (
	"net/http"
	"testing"
)

func TestMergeHeadersOverlayWins(t *testing.T) {
	base := http.Header{}
	base.Set("Content-Type", "a")
	base.Set("Accept", "application/json")

	overlay := http.Header{}
	overlay.Set("content-type", "b")

	merged := mergeHeaders(base, overlay)

	if got := merged.Get("Content-Type"); got != "b" {
		t.Errorf("Expected overlay to win for content-type, got %q", got)
	}
	if got := merged.Get("accept"); got != "application/json" {
		t.Errorf("Expected base accept to survive, got %q", got)
	}
}

func TestMergeHeadersDoesNotMutateInputs(t *testing.T) {
	base := http.Header{}
	base.Set("X-One", "1")
	overlay := http.Header{}
	overlay.Set("X-One", "2")
	overlay.Set("X-Two", "2")

	merged := mergeHeaders(base, overlay)
	merged.Set("X-One", "changed")
	merged.Add("X-Three", "3")

	if got := base.Get("X-One"); got != "1" {
		t.Errorf("base mutated: X-One = %q", got)
	}
	if got := overlay.Get("X-One"); got != "2" {
		t.Errorf("overlay mutated: X-One = %q", got)
	}
	if base.Get("X-Three") != "" || overlay.Get("X-Three") != "" {
		t.Error("inputs gained keys added to the merged result")
	}
}

func TestMergeHeadersReplacesMultiValueEntries(t *testing.T) {
	base := http.Header{}
	base.Add("Set-Cookie", "a=1")
	base.Add("Set-Cookie", "b=2")

	overlay := http.Header{}
	overlay.Add("set-cookie", "c=3")

	merged := mergeHeaders(base, overlay)

	if got := merged.Values("Set-Cookie"); len(got) != 1 || got[0] != "c=3" {
		t.Errorf("Expected exact replace, got %v", got)
	}
}

func TestMergeHeadersNilBase(t *testing.T) {
	overlay := http.Header{}
	overlay.Set("X-Test", "v")

	merged := mergeHeaders(nil, overlay)
	if got := merged.Get("x-test"); got != "v" {
		t.Errorf("Expected overlay entry, got %q", got)
	}
}

func TestHeaderFromPairs(t *testing.T) {
	h := headerFromPairs([][]string{
		{"Accept", "application/json"},
		{"X-Tags", "a", "b", "c"},
		{"accept", "text/html"},
		{"Broken"},
	})

	if got := h.Get("Accept"); got != "text/html" {
		t.Errorf("Expected later pair to win, got %q", got)
	}
	if got := h.Get("X-Tags"); got != "a, b, c" {
		t.Errorf("Expected list values joined with \", \", got %q", got)
	}
	if len(h) != 2 {
		t.Errorf("Expected 2 keys, got %d", len(h))
	}
}
