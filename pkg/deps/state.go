package deps

import (
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/podkit/pkg/podspec"
	"github.com/matzehuels/podkit/pkg/rules"
)

// Edge is a dependency recorded during resolution, From depends on To.
type Edge struct {
	From string
	To   string
}

// ManualPackage is a pod whose payload must be placed by the operator.
type ManualPackage struct {
	Name       string // Root pod name, also its directory under the install root
	ModuleName string // Framework the operator is expected to provide
}

// State is the mutable result of one resolution run.
//
// A State is owned by a single [Resolver.Resolve] call and is not safe for
// concurrent use.
type State struct {
	Frameworks     map[string]bool
	WeakFrameworks map[string]bool
	Libraries      map[string]bool
	Seen           map[string]bool
	Swift          map[string]bool

	Rules  []rules.Rule
	Manual []ManualPackage

	edges   []Edge
	edgeSet map[Edge]bool
	emitted map[string]bool
	walking map[string]bool
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		Frameworks:     make(map[string]bool),
		WeakFrameworks: make(map[string]bool),
		Libraries:      make(map[string]bool),
		Seen:           make(map[string]bool),
		Swift:          make(map[string]bool),
		edgeSet:        make(map[Edge]bool),
		emitted:        make(map[string]bool),
		walking:        make(map[string]bool),
	}
}

// HasSeen reports whether a qualified name has been visited.
func (s *State) HasSeen(name string) bool {
	return s.Seen[name]
}

func (s *State) markSeen(name string) {
	s.Seen[name] = true
}

// AddRule appends r unless a structurally equal rule is already present.
// Reports whether the rule was added.
func (s *State) AddRule(r rules.Rule) bool {
	if slices.ContainsFunc(s.Rules, r.Equal) {
		return false
	}
	s.Rules = append(s.Rules, r)
	return true
}

func (s *State) addManual(spec *podspec.Spec) {
	if slices.ContainsFunc(s.Manual, func(m ManualPackage) bool { return m.Name == spec.Name }) {
		return
	}
	s.Manual = append(s.Manual, ManualPackage{Name: spec.Name, ModuleName: spec.ModuleName})
}

func (s *State) addEdge(from, to string) {
	e := Edge{From: from, To: to}
	if from == to || s.edgeSet[e] {
		return
	}
	s.edgeSet[e] = true
	s.edges = append(s.edges, e)
}

// merge adds the link requirements declared by spec. Excluded libraries are
// dropped.
func (s *State) merge(spec *podspec.Spec, excluded []string) {
	for _, f := range spec.Frameworks {
		s.Frameworks[f] = true
	}
	for _, f := range spec.WeakFrameworks {
		s.WeakFrameworks[f] = true
	}
	for _, l := range spec.Libraries {
		if !slices.Contains(excluded, l) {
			s.Libraries[l] = true
		}
	}
	if spec.Swift {
		s.Swift[spec.Root()] = true
	}
}

// SortedFrameworks returns the merged frameworks in lexical order.
func (s *State) SortedFrameworks() []string { return slices.Sorted(maps.Keys(s.Frameworks)) }

// SortedWeakFrameworks returns the merged weak frameworks in lexical order.
func (s *State) SortedWeakFrameworks() []string { return slices.Sorted(maps.Keys(s.WeakFrameworks)) }

// SortedLibraries returns the merged system libraries in lexical order.
func (s *State) SortedLibraries() []string { return slices.Sorted(maps.Keys(s.Libraries)) }

// SortedSeen returns every visited qualified name in lexical order.
func (s *State) SortedSeen() []string { return slices.Sorted(maps.Keys(s.Seen)) }

// SwiftPackages returns root pods that declare a Swift version. Their
// consumers need the Swift runtime linked.
func (s *State) SwiftPackages() []string { return slices.Sorted(maps.Keys(s.Swift)) }

// ManualPackages returns the pods awaiting operator placement, sorted by
// name.
func (s *State) ManualPackages() []ManualPackage {
	out := slices.Clone(s.Manual)
	slices.SortFunc(out, func(a, b ManualPackage) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Edges returns the recorded dependency edges in discovery order.
func (s *State) Edges() []Edge {
	return slices.Clone(s.edges)
}
