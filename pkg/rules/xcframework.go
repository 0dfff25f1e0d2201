package rules

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/matzehuels/podkit/pkg/errors"
)

// XCFramework generates rules by scanning for .xcframework and .framework
// bundles. Paths in the emitted rules are relative to Root.
type XCFramework struct {
	Root string
}

var _ Generator = XCFramework{}

// Generate scans dir in lexical order:
//
//  1. Each .xcframework whose base name is not yet emitted: the first *.a
//     outside any simulator slice becomes a library rule.
//  2. Otherwise, if the bundle wraps a .framework slice, it becomes a
//     framework rule, unless it lives under a "dynamic" directory and a
//     non-dynamic bundle of the same name exists elsewhere in dir.
//  3. If no xcframework produced a rule, every .framework bundle becomes a
//     framework rule.
//
// Framework rules pick up the first <name>*.bundle below the bundle's parent
// directory as their resources. Returns ErrNoArtifact when nothing was found.
func (g XCFramework) Generate(dir string, emitted map[string]bool) ([]Rule, error) {
	if emitted == nil {
		emitted = make(map[string]bool)
	}
	xcfs, err := findBundles(dir, ".xcframework")
	if err != nil {
		return nil, err
	}

	var out []Rule
	for _, xcf := range xcfs {
		name := stem(xcf)
		if emitted[name] {
			continue
		}

		lib, err := staticSlice(xcf)
		if err != nil {
			return nil, err
		}
		if lib != "" {
			out = append(out, Rule{Kind: KindLibrary, Name: name, Path: g.components(lib)})
			emitted[name] = true
			continue
		}

		fws, err := findBundles(xcf, ".framework")
		if err != nil {
			return nil, err
		}
		if len(fws) == 0 {
			continue
		}
		if underDynamic(dir, xcf) && hasStaticAlternative(dir, xcf, xcfs) {
			continue
		}
		rule, err := g.framework(name, xcf)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
		emitted[name] = true
	}

	if len(out) == 0 {
		frameworks, err := findBundles(dir, ".framework")
		if err != nil {
			return nil, err
		}
		for _, fw := range frameworks {
			name := stem(fw)
			if emitted[name] {
				continue
			}
			rule, err := g.framework(name, fw)
			if err != nil {
				return nil, err
			}
			out = append(out, rule)
			emitted[name] = true
		}
	}

	if len(out) == 0 {
		return nil, errors.Wrap(errors.ErrCodeNoArtifact, ErrNoArtifact, "%s", filepath.Base(dir))
	}
	return out, nil
}

func (g XCFramework) framework(name, bundle string) (Rule, error) {
	rule := Rule{Kind: KindFramework, Name: name, Path: g.components(bundle)}
	res, err := findResources(filepath.Dir(bundle), name)
	if err != nil {
		return Rule{}, err
	}
	if res != "" {
		rule.Resources = strings.Join(g.components(res), "/")
	}
	return rule, nil
}

func (g XCFramework) components(path string) []string {
	rel, err := filepath.Rel(g.Root, path)
	if err != nil {
		rel = path
	}
	return strings.Split(filepath.ToSlash(rel), "/")
}

// findBundles returns every directory under root with the given extension,
// without descending into matches.
func findBundles(root, ext string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && d.IsDir() && strings.EqualFold(filepath.Ext(path), ext) {
			out = append(out, path)
			return filepath.SkipDir
		}
		return nil
	})
	return out, err
}

// staticSlice returns the first .a file under xcf outside simulator slices.
func staticSlice(xcf string) (string, error) {
	var found string
	err := filepath.WalkDir(xcf, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.Contains(strings.ToLower(d.Name()), "simulator") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".a") && !strings.Contains(strings.ToLower(d.Name()), "simulator") {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found, err
}

// findResources returns the first <name>*.bundle below dir.
func findResources(dir, name string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		base := d.Name()
		if strings.HasPrefix(base, name) && strings.EqualFold(filepath.Ext(base), ".bundle") {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found, err
}

func underDynamic(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
		if strings.EqualFold(part, "dynamic") {
			return true
		}
	}
	return false
}

func hasStaticAlternative(root, xcf string, all []string) bool {
	name := stem(xcf)
	for _, other := range all {
		if other != xcf && stem(other) == name && !underDynamic(root, other) {
			return true
		}
	}
	return false
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
