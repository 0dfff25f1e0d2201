package deps

import (
	"context"
	stderrors "errors"
	"os"
	"time"

	"github.com/matzehuels/podkit/pkg/errors"
	"github.com/matzehuels/podkit/pkg/fetch"
	"github.com/matzehuels/podkit/pkg/observability"
	"github.com/matzehuels/podkit/pkg/podfile"
	"github.com/matzehuels/podkit/pkg/podspec"
	"github.com/matzehuels/podkit/pkg/rules"
)

// Resolver installs Podfile declarations and their transitive dependencies.
type Resolver struct {
	src  SpecSource
	pods Fetcher
	gen  RuleGenerator
	opts Options
}

// NewResolver creates a Resolver. Zero Options fields take their defaults.
func NewResolver(src SpecSource, f Fetcher, gen RuleGenerator, opts Options) *Resolver {
	return &Resolver{src: src, pods: f, gen: gen, opts: opts.WithDefaults()}
}

// Resolve walks every declaration in order and returns the merged state and a
// run report. Per-declaration failures are recorded in the report; only
// context cancellation stops the loop early.
func (r *Resolver) Resolve(ctx context.Context, decls []podfile.Declaration) (*State, *Report) {
	st := NewState()
	report := &Report{}

	for _, d := range decls {
		if d.Name == r.opts.Baseline {
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Err = err
			break
		}
		report.Declared++

		start := time.Now()
		observability.Resolve().OnPackageStart(ctx, d.Name)
		err := r.install(ctx, st, d, 0)
		observability.Resolve().OnPackageComplete(ctx, d.Name, time.Since(start), err)

		report.Results = append(report.Results, Result{Name: d.Name, Err: err})
		if err != nil {
			r.opts.Logger.Error("install failed", "pod", d.Name, "err", errors.UserMessage(err))
			report.Failures = append(report.Failures, Failure{Name: d.Name, Err: err})
			if ctxErr := ctx.Err(); ctxErr != nil {
				report.Err = ctxErr
				break
			}
			continue
		}
		report.Installed++
	}
	return st, report
}

// CollectManual generates rules for pods that were flagged for manual
// placement, after the operator has copied their frameworks in. It returns
// the pods that still contain nothing linkable.
func (r *Resolver) CollectManual(st *State) []string {
	var missing []string
	for _, m := range st.ManualPackages() {
		if err := r.generate(st, m.Name); err != nil {
			missing = append(missing, m.Name)
		}
	}
	return missing
}

func (r *Resolver) install(ctx context.Context, st *State, d podfile.Declaration, depth int) error {
	name := d.Name
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth > r.opts.MaxDepth {
		return errors.New(errors.ErrCodeDepthExceeded, "dependency depth exceeds %d at %s", r.opts.MaxDepth, name)
	}
	if st.HasSeen(name) {
		return nil
	}

	root, sub := podspec.SplitName(name)
	if sub != "" && st.HasSeen(root) {
		// While root is still being walked its remaining subspecs are
		// marked (and merged) by that walk.
		if !st.walking[root] {
			st.markSeen(name)
		}
		return nil
	}
	st.markSeen(root)
	if root == r.opts.Baseline {
		st.markSeen(name)
		return nil
	}
	if url, ok := r.opts.Heavyweight[root]; ok {
		st.markSeen(name)
		return r.installURL(ctx, st, root, url)
	}

	spec, err := r.src.Lookup(ctx, root, d.ExactVersion())
	if err != nil {
		if !errors.Is(err, errors.ErrCodeMetadataLookup) {
			err = errors.Wrap(errors.ErrCodeMetadataLookup, err, "look up %s", root)
		}
		return err
	}
	r.opts.Logger.Debug("resolved", "pod", root, "version", spec.Version, "depth", depth)

	outcome, err := r.pods.Fetch(ctx, spec)
	if err != nil {
		return err
	}
	// The fetcher names the pod directory after the podspec, which may
	// differ from the requested name.
	switch outcome {
	case fetch.PendingManual:
		st.addManual(spec)
	default:
		if dirExists(r.pods.Dir(spec.Name)) {
			r.generate(st, spec.Name)
		}
	}

	st.merge(spec, r.opts.ExcludedLibraries)
	st.walking[root] = true
	err = r.walk(ctx, st, spec, depth)
	delete(st.walking, root)
	if err != nil {
		return err
	}

	// Every subspec of root was marked seen by walk. A qualified request for
	// a subspec the podspec does not declare still counts as visited.
	st.markSeen(name)
	return nil
}

// walk recurses into the dependencies of spec and into its subspecs.
func (r *Resolver) walk(ctx context.Context, st *State, spec *podspec.Spec, depth int) error {
	for _, dep := range spec.DependencyNames() {
		depRoot, _ := podspec.SplitName(dep)
		st.addEdge(spec.Root(), depRoot)
		next := podfile.Declaration{Name: dep, Constraints: spec.Dependencies[dep]}
		if err := r.install(ctx, st, next, depth+1); err != nil {
			return err
		}
	}

	for _, sub := range spec.Subspecs {
		if depth+1 > r.opts.MaxDepth {
			return errors.New(errors.ErrCodeDepthExceeded, "dependency depth exceeds %d at %s", r.opts.MaxDepth, sub.Name)
		}
		if st.HasSeen(sub.Name) {
			continue
		}
		st.markSeen(sub.Name)
		st.merge(sub, r.opts.ExcludedLibraries)
		if err := r.walk(ctx, st, sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// installURL installs a heavyweight pod from a fixed archive. Its
// dependencies are not walked.
func (r *Resolver) installURL(ctx context.Context, st *State, name, url string) error {
	r.opts.Logger.Info("installing from fixed archive", "pod", name)
	if _, err := r.pods.FetchURL(ctx, name, url); err != nil {
		return err
	}
	r.generate(st, name)
	return nil
}

// generate adds the build rules found in the directory of a root pod. A pod
// without a linkable artifact is logged and reported as ErrNoArtifact.
func (r *Resolver) generate(st *State, name string) error {
	found, err := r.gen.Generate(r.pods.Dir(name), st.emitted)
	if err != nil {
		if stderrors.Is(err, rules.ErrNoArtifact) {
			r.opts.Logger.Warn("no framework found", "pod", name)
		} else {
			r.opts.Logger.Warn("scan failed", "pod", name, "err", err)
		}
		return err
	}
	for _, rule := range found {
		st.AddRule(rule)
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
