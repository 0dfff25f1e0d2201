// Package rules turns installed pod directories into linkable build rules.
//
// A pod's podspec often under-describes what it ships, so rules are derived
// from the files on disk rather than from metadata. The [XCFramework]
// generator understands the layouts used by ad network SDKs: xcframeworks
// with a static library slice, xcframeworks wrapping framework bundles
// (sometimes in parallel static and dynamic variants), and plain frameworks.
package rules

import (
	"slices"
	"strings"

	"github.com/matzehuels/podkit/pkg/errors"
)

// Kind distinguishes how a rule is linked.
type Kind int

const (
	KindLibrary   Kind = iota // Static library (.a) linked directly
	KindFramework             // Framework or xcframework bundle
)

func (k Kind) String() string {
	if k == KindLibrary {
		return "library"
	}
	return "framework"
}

// Rule is one entry of the build descriptor.
type Rule struct {
	Kind      Kind
	Name      string   // Bundle base name without extension
	Path      []string // Path components relative to the install root
	Resources string   // Resource bundle path relative to the install root, if any
}

// Equal reports structural equality. Two rules with the same name but
// different paths are different rules.
func (r Rule) Equal(o Rule) bool {
	return r.Kind == o.Kind && r.Name == o.Name && r.Resources == o.Resources && slices.Equal(r.Path, o.Path)
}

// PathString joins the path components with "/".
func (r Rule) PathString() string {
	return strings.Join(r.Path, "/")
}

// Generator derives build rules from an installed package directory.
//
// emitted holds bundle base names already claimed by earlier packages in the
// run. Generate skips those names and adds the names it emits, so the first
// package to ship a given bundle wins.
type Generator interface {
	Generate(dir string, emitted map[string]bool) ([]Rule, error)
}

// ErrNoArtifact is returned (wrapped) when a package directory contains
// nothing linkable. It is a warning, not an install failure.
var ErrNoArtifact = errors.New(errors.ErrCodeNoArtifact, "no linkable artifact found")
