package cdn

import (
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Latest returns the highest stable version, or the highest prerelease when
// no stable version exists. Returns "" for an empty list.
func Latest(versions []string) string {
	var best, bestPre string
	for _, v := range versions {
		if prerelease(v) {
			if bestPre == "" || Compare(v, bestPre) > 0 {
				bestPre = v
			}
			continue
		}
		if best == "" || Compare(v, best) > 0 {
			best = v
		}
	}
	if best != "" {
		return best
	}
	return bestPre
}

// Compare orders two pod versions. Versions semver understands are compared
// by semver; anything else (four-segment adapter versions such as
// "11.3.0.0") falls back to a numeric comparison of dot-separated segments.
func Compare(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return compareSegments(a, b)
}

func prerelease(v string) bool {
	if sv, err := semver.NewVersion(v); err == nil {
		return sv.Prerelease() != ""
	}
	return strings.Contains(v, "-")
}

func compareSegments(a, b string) int {
	coreA, preA, _ := strings.Cut(a, "-")
	coreB, preB, _ := strings.Cut(b, "-")

	segA, segB := strings.Split(coreA, "."), strings.Split(coreB, ".")
	for i := range max(len(segA), len(segB)) {
		x, y := segment(segA, i), segment(segB, i)
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}

	switch {
	case preA == preB:
		return 0
	case preA == "":
		return 1
	case preB == "":
		return -1
	default:
		return strings.Compare(preA, preB)
	}
}

func segment(segs []string, i int) int {
	if i >= len(segs) {
		return 0
	}
	n, err := strconv.Atoi(segs[i])
	if err != nil {
		return 0
	}
	return n
}
