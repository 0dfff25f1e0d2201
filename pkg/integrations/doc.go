// Package integrations provides the metadata sources that turn a pod name
// into a parsed podspec.
//
// Each source lives in its own subpackage:
//
//   - [cdn]: the CocoaPods CDN (cdn.cocoapods.org), queried over HTTP
//   - [podcli]: the local `pod` command (`pod spec cat`)
//
// Both satisfy the resolver's SpecSource interface:
//
//	src := cdn.NewClient(c, 24*time.Hour)
//	spec, err := src.Lookup(ctx, "FBAudienceNetwork", "6.15.0")
//
// # Shared Infrastructure
//
// [Client] wraps net/http with the disk cache from [cache.Cache], retry with
// backoff for transient failures, and the HTTP and cache hooks from
// [observability]. Lookup failures are reported through [LookupFailed] so
// every source produces the same METADATA_LOOKUP error shape.
//
// [cdn]: github.com/matzehuels/podkit/pkg/integrations/cdn
// [podcli]: github.com/matzehuels/podkit/pkg/integrations/podcli
// [cache.Cache]: github.com/matzehuels/podkit/pkg/cache.Cache
// [observability]: github.com/matzehuels/podkit/pkg/observability
package integrations
