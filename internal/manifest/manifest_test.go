package manifest_test

import (
	"testing"

	"depls/internal/manifest"
)

func TestSpanContainsIsHalfOpen(t *testing.T) {
	span := manifest.Span{Start: 2, End: 5}

	if !span.Contains(2) || !span.Contains(4) {
		t.Fatal("start and interior offsets are inside")
	}
	if span.Contains(5) || span.Contains(1) {
		t.Fatal("end and preceding offsets are outside")
	}
	if span.Len() != 3 {
		t.Fatalf("expected length 3, got %d", span.Len())
	}
}

func TestLatestStableSkipsYankedAndPrerelease(t *testing.T) {
	versions := []manifest.Version{
		{Value: "3.0.0-rc1", Prerelease: true},
		{Value: "2.5.0", Yanked: true},
		{Value: "2.4.0"},
		{Value: "2.3.0"},
	}

	latest, ok := manifest.LatestStable(versions)
	if !ok || latest.Value != "2.4.0" {
		t.Fatalf("expected 2.4.0, got %+v ok=%v", latest, ok)
	}

	if _, ok := manifest.LatestStable(nil); ok {
		t.Fatal("no versions, no latest")
	}
}
