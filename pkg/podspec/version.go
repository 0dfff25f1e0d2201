package podspec

import (
	"regexp"
	"strings"
)

// exactPinRe matches "= 1.2.3", "=1.2" and bare "1.2.3" constraints, with an
// optional prerelease suffix. Mediation adapters use four numeric segments
// ("11.3.0.0"), so the segment count is not limited to semver's three.
var exactPinRe = regexp.MustCompile(`^=?\s*(\d+(?:\.\d+)*(?:-[0-9A-Za-z.-]+)?)$`)

// ExactVersion returns the pinned version when constraint is an exact pin, or
// "" for ranges, optimistic operators and compound constraints.
//
//	ExactVersion("= 11.3.0")  // "11.3.0"
//	ExactVersion("~> 11.0")   // ""
func ExactVersion(constraint string) string {
	c := strings.TrimSpace(constraint)
	if c == "" || strings.Contains(c, ",") {
		return ""
	}
	m := exactPinRe.FindStringSubmatch(c)
	if m == nil {
		return ""
	}
	return m[1]
}
