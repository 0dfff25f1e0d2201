package podspec

import (
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/matzehuels/podkit/pkg/errors"
)

// MaxSubspecDepth bounds subspec nesting. Real podspecs rarely nest more than
// two levels; anything deeper is treated as malformed.
const MaxSubspecDepth = 16

// SourceKind identifies how a pod's payload is retrieved.
type SourceKind int

const (
	SourceNone    SourceKind = iota // No downloadable payload (umbrella or subspec-only pods)
	SourceArchive                   // HTTP archive (zip or tarball)
	SourceVCS                       // Git repository
)

// String returns the podspec key for the source kind.
func (k SourceKind) String() string {
	switch k {
	case SourceArchive:
		return "http"
	case SourceVCS:
		return "git"
	default:
		return "none"
	}
}

// Source describes where a pod's payload lives.
type Source struct {
	Kind SourceKind
	URL  string
	Ref  string // git tag, commit or branch (VCS only, may be empty)
}

// Spec is an immutable view over one podspec (or subspec).
//
// Specs are built by [Parse] and must not be modified afterwards; the resolver
// shares them across recursive calls.
type Spec struct {
	Name           string              // Qualified name ("Firebase/Core" for subspecs)
	Version        string              // Declared version (may be empty)
	Source         Source              // Payload location
	Frameworks     []string            // System frameworks to link
	WeakFrameworks []string            // System frameworks to weak-link
	Libraries      []string            // System libraries to link (without "lib" prefix)
	Dependencies   map[string][]string // Dependency name -> version constraints
	Subspecs       []*Spec             // Child specs in declaration order
	VendoredPath   string              // First vendored framework path, relative to the download
	Resources      string              // First resource pattern
	ModuleName     string              // Explicit module_name, else derived
	Swift          bool                // Declares swift_version(s)
}

// IsSubspec reports whether the spec is a child of another spec.
func (s *Spec) IsSubspec() bool {
	return strings.Contains(s.Name, "/")
}

// Root returns the root pod name of a (possibly qualified) spec.
func (s *Spec) Root() string {
	root, _ := SplitName(s.Name)
	return root
}

// Walk calls fn for s and every nested subspec in pre-order.
// Walking stops at the first error.
func (s *Spec) Walk(fn func(*Spec) error) error {
	if err := fn(s); err != nil {
		return err
	}
	for _, sub := range s.Subspecs {
		if err := sub.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// DependencyNames returns the dependency names sorted lexicographically.
// The resolver walks dependencies in this order so runs are reproducible.
func (s *Spec) DependencyNames() []string {
	names := make([]string, 0, len(s.Dependencies))
	for name := range s.Dependencies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SplitName splits a qualified name into its root pod and subspec path.
// "Firebase/Core/Base" returns ("Firebase", "Core/Base").
func SplitName(name string) (root, subspec string) {
	root, subspec, _ = strings.Cut(name, "/")
	return root, subspec
}

// Parse decodes a podspec JSON document.
//
// Attributes declared under the "ios" platform key are merged into the
// top-level view, since the build descriptor only targets iOS.
// Returns an INVALID_SPEC error when the document is not valid JSON, lacks a
// name, or nests subspecs deeper than [MaxSubspecDepth].
func Parse(data []byte) (*Spec, error) {
	var raw rawSpec
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSpec, err, "decode podspec")
	}
	return build(&raw, nil, 0)
}

func build(raw *rawSpec, parent *Spec, depth int) (*Spec, error) {
	if depth > MaxSubspecDepth {
		return nil, errors.New(errors.ErrCodeInvalidSpec, "subspecs nested deeper than %d levels under %s", MaxSubspecDepth, parent.Name)
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		if parent != nil {
			return nil, errors.New(errors.ErrCodeInvalidSpec, "subspec of %s has no name", parent.Name)
		}
		return nil, errors.New(errors.ErrCodeInvalidSpec, "podspec has no name")
	}

	s := &Spec{Name: name, Version: raw.Version}
	if parent != nil {
		s.Name = parent.Name + "/" + name
		if s.Version == "" {
			s.Version = parent.Version
		}
	}
	s.Source = raw.Source.source()

	attrs := raw.rawAttrs
	if raw.IOS != nil {
		attrs = attrs.merge(*raw.IOS)
	}
	s.Frameworks = unique(attrs.Frameworks)
	s.WeakFrameworks = unique(attrs.WeakFrameworks)
	s.Libraries = unique(attrs.Libraries)
	s.Dependencies = make(map[string][]string, len(attrs.Dependencies))
	for dep, constraints := range attrs.Dependencies {
		s.Dependencies[strings.TrimSpace(dep)] = slices.Clone([]string(constraints))
	}
	if len(attrs.VendoredFrameworks) > 0 {
		s.VendoredPath = attrs.VendoredFrameworks[0]
	}
	if len(attrs.Resources) > 0 {
		s.Resources = attrs.Resources[0]
	}
	s.Swift = len(raw.SwiftVersion) > 0 || len(raw.SwiftVersions) > 0

	switch {
	case raw.ModuleName != "":
		s.ModuleName = raw.ModuleName
	case s.VendoredPath != "":
		s.ModuleName = path.Base(s.VendoredPath)
	default:
		s.ModuleName = s.Name
	}

	for i := range raw.Subspecs {
		sub, err := build(&raw.Subspecs[i], s, depth+1)
		if err != nil {
			return nil, err
		}
		s.Subspecs = append(s.Subspecs, sub)
	}
	return s, nil
}

func unique(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// StringList decodes a podspec attribute that may be a single string or an
// array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = StringList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = many
	return nil
}

type rawSpec struct {
	Name          string     `json:"name"`
	Version       string     `json:"version"`
	Source        rawSource  `json:"source"`
	ModuleName    string     `json:"module_name"`
	SwiftVersion  StringList `json:"swift_version"`
	SwiftVersions StringList `json:"swift_versions"`
	IOS           *rawAttrs  `json:"ios"`
	Subspecs      []rawSpec  `json:"subspecs"`
	rawAttrs
}

type rawAttrs struct {
	Frameworks         StringList            `json:"frameworks"`
	WeakFrameworks     StringList            `json:"weak_frameworks"`
	Libraries          StringList            `json:"libraries"`
	Dependencies       map[string]StringList `json:"dependencies"`
	VendoredFrameworks StringList            `json:"vendored_frameworks"`
	Resources          StringList            `json:"resources"`
}

// merge returns a copy of a with platform-specific attributes from p appended.
func (a rawAttrs) merge(p rawAttrs) rawAttrs {
	out := rawAttrs{
		Frameworks:         append(slices.Clone(a.Frameworks), p.Frameworks...),
		WeakFrameworks:     append(slices.Clone(a.WeakFrameworks), p.WeakFrameworks...),
		Libraries:          append(slices.Clone(a.Libraries), p.Libraries...),
		VendoredFrameworks: append(slices.Clone(a.VendoredFrameworks), p.VendoredFrameworks...),
		Resources:          append(slices.Clone(a.Resources), p.Resources...),
		Dependencies:       make(map[string]StringList, len(a.Dependencies)+len(p.Dependencies)),
	}
	for k, v := range a.Dependencies {
		out.Dependencies[k] = v
	}
	for k, v := range p.Dependencies {
		if _, ok := out.Dependencies[k]; !ok {
			out.Dependencies[k] = v
		}
	}
	return out
}

type rawSource struct {
	HTTP   string `json:"http"`
	Git    string `json:"git"`
	Tag    string `json:"tag"`
	Commit string `json:"commit"`
	Branch string `json:"branch"`
}

func (r rawSource) source() Source {
	switch {
	case r.HTTP != "":
		return Source{Kind: SourceArchive, URL: r.HTTP}
	case r.Git != "":
		ref := r.Tag
		if ref == "" {
			ref = r.Commit
		}
		if ref == "" {
			ref = r.Branch
		}
		return Source{Kind: SourceVCS, URL: r.Git, Ref: ref}
	default:
		return Source{}
	}
}
