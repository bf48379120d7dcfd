package updater

import (
	"strconv"
	"strings"
)

// CompareVersions orders two version strings by their numeric dot-separated
// segments. Non-numeric segments are ignored, the shorter sequence is
// zero-padded, and the first differing segment decides. Returns -1 if a < b,
// 0 if equal, 1 if a > b.
//
// This is deliberately not semantic versioning: manifests in the wild carry
// bare scalars ("3"), short forms ("2.0"), and junk segments, all of which
// must still order sensibly. Two strings with no numeric segments at all
// compare equal only when identical; otherwise a is treated as older, so an
// unparsable pair prompts rather than silently skipping an update.
func CompareVersions(a, b string) int {
	pa := numericSegments(a)
	pb := numericSegments(b)

	if len(pa) == 0 && len(pb) == 0 {
		if a == b {
			return 0
		}
		return -1
	}

	n := len(pa)
	if len(pb) > n {
		n = len(pb)
	}
	for i := 0; i < n; i++ {
		var va, vb int
		if i < len(pa) {
			va = pa[i]
		}
		if i < len(pb) {
			vb = pb[i]
		}
		if va < vb {
			return -1
		}
		if va > vb {
			return 1
		}
	}
	return 0
}

// IsUpdateAvailable returns true if latest is strictly newer than current.
func IsUpdateAvailable(current, latest string) bool {
	return CompareVersions(current, latest) < 0
}

func numericSegments(version string) []int {
	var segs []int
	for _, part := range strings.Split(version, ".") {
		n, err := strconv.Atoi(part)
		if err != nil || part == "" {
			continue
		}
		if n < 0 {
			continue
		}
		segs = append(segs, n)
	}
	return segs
}
