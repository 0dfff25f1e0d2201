// Package config loads podkit.toml.
//
// The file is optional. Every key has a default and command line flags
// override file values:
//
//	podfile = "Podfile"
//	install_dir = "Pods"
//	source = "cdn"              # or "pod" to use the CocoaPods CLI
//	format = "xml"
//	prefixes = ["AppLovinMediation"]
//	cache_ttl = "12h"
//
//	[heavyweight]
//	Google-Mobile-Ads-SDK = "https://dl.google.com/googleadmobadssdk/googlemobileadssdkios.zip"
package config

import (
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/podkit/pkg/cache"
	"github.com/matzehuels/podkit/pkg/deps"
	"github.com/matzehuels/podkit/pkg/descriptor"
	"github.com/matzehuels/podkit/pkg/errors"
	"github.com/matzehuels/podkit/pkg/integrations/cdn"
	"github.com/matzehuels/podkit/pkg/podfile"
)

// FileName is the config file looked up next to the Podfile.
const FileName = "podkit.toml"

// Metadata sources.
const (
	SourceCDN = "cdn"
	SourcePod = "pod"
)

// Config holds installer settings.
type Config struct {
	Podfile           string            `toml:"podfile"`
	InstallDir        string            `toml:"install_dir"`
	Source            string            `toml:"source"`
	CDNURL            string            `toml:"cdn_url"`
	Baseline          string            `toml:"baseline"`
	Prefixes          []string          `toml:"prefixes"`
	ExcludedLibraries []string          `toml:"excluded_libraries"`
	Format            string            `toml:"format"`
	MaxDepth          int               `toml:"max_depth"`
	CacheTTL          Duration          `toml:"cache_ttl"`
	Heavyweight       map[string]string `toml:"heavyweight"`
}

// Duration is a time.Duration decoded from strings such as "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Podfile:           "Podfile",
		InstallDir:        "Pods",
		Source:            SourceCDN,
		CDNURL:            cdn.DefaultBaseURL,
		Baseline:          deps.DefaultBaseline,
		ExcludedLibraries: slices.Clone(deps.DefaultExcludedLibraries),
		Format:            string(descriptor.FormatXML),
		MaxDepth:          deps.DefaultMaxDepth,
		CacheTTL:          Duration{cache.DefaultTTL},
		Heavyweight:       map[string]string{deps.GoogleMobileAdsSDK: deps.GoogleMobileAdsURL},
	}
}

// Load reads path on top of [Default]. A missing file yields the defaults.
// Malformed files, unknown keys and invalid values are INVALID_CONFIG errors.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s", path)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.Podfile == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "podfile must not be empty")
	}
	if c.InstallDir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "install_dir must not be empty")
	}
	if c.Source != SourceCDN && c.Source != SourcePod {
		return errors.New(errors.ErrCodeInvalidConfig, "source must be %q or %q, got %q", SourceCDN, SourcePod, c.Source)
	}
	if _, err := descriptor.ParseFormat(c.Format); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "format")
	}
	if c.MaxDepth < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_depth must not be negative")
	}
	if c.CacheTTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache_ttl must not be negative")
	}
	if c.Source == SourceCDN {
		if err := errors.ValidateURL(c.CDNURL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "cdn_url")
		}
	}
	if c.Baseline != "" {
		if err := errors.ValidatePodName(c.Baseline); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "baseline")
		}
	}
	for name, url := range c.Heavyweight {
		if err := errors.ValidatePodName(name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "heavyweight")
		}
		if err := errors.ValidateURL(url); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "heavyweight %s", name)
		}
	}
	return nil
}

// PodfileOptions returns the declaration filter for the Podfile reader.
func (c Config) PodfileOptions() podfile.Options {
	return podfile.Options{Prefixes: c.Prefixes, Baseline: c.Baseline}
}

// ResolveOptions returns resolver options. The logger is left to the caller.
func (c Config) ResolveOptions() deps.Options {
	return deps.Options{
		MaxDepth:          c.MaxDepth,
		Baseline:          c.Baseline,
		Heavyweight:       c.Heavyweight,
		ExcludedLibraries: c.ExcludedLibraries,
	}
}
