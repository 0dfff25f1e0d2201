// Package podfile reads top-level pod declarations from a CocoaPods Podfile.
//
// Only `pod` lines are interpreted. Targets, sources, platform directives and
// post-install hooks are ignored, since the installer resolves every declared
// pod into a single flat tree.
//
//	decls, err := podfile.ParseFile("Podfile", podfile.Options{
//	    Baseline: "AppLovinSDK",
//	    Prefixes: []string{"AppLovinMediation"},
//	})
package podfile

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/matzehuels/podkit/pkg/errors"
	"github.com/matzehuels/podkit/pkg/podspec"
)

// Declaration is one top-level `pod` line.
type Declaration struct {
	Name        string
	Constraints []string
}

// ExactVersion returns the pinned version when the declaration carries a
// single exact constraint, else "".
func (d Declaration) ExactVersion() string {
	if len(d.Constraints) != 1 {
		return ""
	}
	return podspec.ExactVersion(d.Constraints[0])
}

// Options filter the declarations returned by [Parse].
type Options struct {
	// Prefixes, when non-empty, keeps only pods whose name starts with one of
	// the prefixes.
	Prefixes []string
	// Baseline is dropped from the result. The baseline SDK ships with the
	// plugin itself and is never installed from the Podfile.
	Baseline string
}

func (o Options) keep(name string) bool {
	if o.Baseline != "" && name == o.Baseline {
		return false
	}
	if len(o.Prefixes) == 0 {
		return true
	}
	for _, p := range o.Prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

var (
	podPattern    = regexp.MustCompile(`^pod\s+['"]([^'"]+)['"]((?:\s*,\s*['"][^'"]*['"])*)`)
	quotedPattern = regexp.MustCompile(`['"]([^'"]*)['"]`)
)

// ParseFile opens and parses the Podfile at path. Open and read failures are
// MANIFEST_PARSE errors.
func ParseFile(path string, opts Options) ([]Declaration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "open podfile %s", path)
	}
	defer f.Close()

	decls, err := Parse(f, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeManifestParse, err, "read podfile %s", path)
	}
	return decls, nil
}

// Parse reads r line by line and returns the declared pods in file order.
// Lines that are not pod declarations are skipped, whatever their length.
// Duplicate names keep the first declaration.
func Parse(r io.Reader, opts Options) ([]Declaration, error) {
	var decls []Declaration
	seen := make(map[string]bool)

	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if d, ok := opts.declaration(line, seen); ok {
			decls = append(decls, d)
		}
		if err == io.EOF {
			return decls, nil
		}
	}
}

// declaration parses one line. It reports false for anything that is not a
// new, kept pod declaration, and records accepted names in seen.
func (o Options) declaration(line string, seen map[string]bool) (Declaration, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Declaration{}, false
	}

	match := podPattern.FindStringSubmatch(line)
	if match == nil {
		return Declaration{}, false
	}
	name := strings.TrimSpace(match[1])
	if name == "" || seen[name] || !o.keep(name) {
		return Declaration{}, false
	}
	seen[name] = true

	var constraints []string
	for _, c := range quotedPattern.FindAllStringSubmatch(match[2], -1) {
		if c := strings.TrimSpace(c[1]); c != "" {
			constraints = append(constraints, c)
		}
	}
	return Declaration{Name: name, Constraints: constraints}, true
}
