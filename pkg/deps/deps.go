package deps

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/podkit/pkg/fetch"
	"github.com/matzehuels/podkit/pkg/podspec"
	"github.com/matzehuels/podkit/pkg/rules"
)

const (
	DefaultMaxDepth = 50            // Default maximum recursion depth
	DefaultBaseline = "AppLovinSDK" // Shipped with the plugin, never installed
)

// GoogleMobileAdsSDK is the pod installed from a fixed archive instead of its
// podspec. Its podspec does not describe the nested layout of the SDK.
const GoogleMobileAdsSDK = "Google-Mobile-Ads-SDK"

// GoogleMobileAdsURL is the archive installed for [GoogleMobileAdsSDK].
const GoogleMobileAdsURL = "https://dl.google.com/googleadmobadssdk/googlemobileadssdkios.zip"

// DefaultExcludedLibraries are system libraries already linked by the
// baseline SDK.
var DefaultExcludedLibraries = []string{"c++", "c++abi", "z"}

// Options configures dependency resolution behavior.
type Options struct {
	MaxDepth          int               // Maximum recursion depth (default: 50)
	Baseline          string            // Pod treated as already satisfied (default: AppLovinSDK)
	Heavyweight       map[string]string // Pod name -> fixed archive URL, installed without a dependency walk
	ExcludedLibraries []string          // System libraries dropped from the merged set
	Logger            *log.Logger       // Progress and warning output (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Baseline == "" {
		opts.Baseline = DefaultBaseline
	}
	if opts.Heavyweight == nil {
		opts.Heavyweight = map[string]string{GoogleMobileAdsSDK: GoogleMobileAdsURL}
	}
	if opts.ExcludedLibraries == nil {
		opts.ExcludedLibraries = DefaultExcludedLibraries
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// SpecSource looks up podspecs. An empty version selects the latest release.
type SpecSource interface {
	Lookup(ctx context.Context, name, version string) (*podspec.Spec, error)
}

// Fetcher materializes pod payloads under the install root.
type Fetcher interface {
	// Fetch installs the payload declared by a root spec.
	Fetch(ctx context.Context, spec *podspec.Spec) (fetch.Outcome, error)
	// FetchURL installs an archive from a fixed URL as pod name.
	FetchURL(ctx context.Context, name, url string) (fetch.Outcome, error)
	// Dir returns the install directory of a root pod.
	Dir(name string) string
}

// RuleGenerator derives build rules from an installed pod directory.
// See [rules.Generator] for the meaning of emitted.
type RuleGenerator interface {
	Generate(dir string, emitted map[string]bool) ([]rules.Rule, error)
}

var (
	_ Fetcher       = (*fetch.Fetcher)(nil)
	_ RuleGenerator = rules.XCFramework{}
)

// Report summarizes a resolution run.
type Report struct {
	Declared  int       // Top-level declarations considered
	Installed int       // Top-level declarations whose subtree resolved
	Results   []Result  // Per-declaration outcome in declaration order
	Failures  []Failure // Failed declarations in declaration order
	Err       error     // Set when the run was cut short by context cancellation
}

// Result is the outcome of one top-level declaration. Err is nil on success.
type Result struct {
	Name string
	Err  error
}

// Failure records a top-level declaration whose subtree aborted.
type Failure struct {
	Name string
	Err  error
}

func (f Failure) Error() string {
	return f.Name + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error {
	return f.Err
}
