// Package deps resolves Podfile declarations into an installed pod tree.
//
// The [Resolver] walks each top-level declaration depth-first. For every pod
// it looks up the podspec through a [SpecSource], materializes the payload
// through a [Fetcher], derives build rules from the installed directory with a
// [RuleGenerator], and merges the declared link requirements into a [State].
// Dependencies and nested subspecs are walked recursively.
//
// # Seen Set
//
// A qualified name is marked seen before its subtree is walked, so cycles
// terminate and no pod is looked up, fetched or merged twice. The first
// visit wins: when two pods constrain the same dependency differently, the
// constraint seen first decides which version is installed. Constraints are
// never reconciled.
//
// # Failures
//
// Failures abort only the subtree of the top-level declaration that hit them.
// They are collected in the [Report] and resolution continues with the next
// declaration. A package that yields no linkable artifact is a warning, not a
// failure.
//
//	r := deps.NewResolver(cdnClient, fetcher, rules.XCFramework{Root: "Pods"}, deps.Options{})
//	state, report := r.Resolve(ctx, decls)
package deps
