package config

import "time"

// SourceConfig holds per-source overrides for a single law source.
// Some codes are much larger than others; this allows tuning pacing and
// extraction per source without new CLI flags.
type SourceConfig struct {
	// Delay overrides the politeness delay between fetches for this source.
	// Zero means the global delay is used.
	Delay time.Duration `yaml:"delay,omitempty"`

	// MaxArticles overrides the per-source article cap.
	// Zero means the global cap is used.
	MaxArticles int `yaml:"maxArticles,omitempty"`

	// ReferenceScope overrides the reference extraction scope
	// ("all" or "same-source").
	ReferenceScope string `yaml:"referenceScope,omitempty"`

	// Headers are custom HTTP headers to include in requests for this source.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are link glob patterns to skip while collecting
	// article links (e.g. "*/abrogato*").
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`
}

// File represents the structure of the .lexgraph configuration file.
type File struct {
	// Sources maps law source slugs to their specific configurations.
	Sources map[string]SourceConfig `yaml:"sources,omitempty"`

	// Defaults contains the configuration applied to all sources unless
	// overridden per source.
	Defaults SourceConfig `yaml:"defaults,omitempty"`
}

// GetSourceConfig returns the configuration for a law source, merging the
// source-specific entry over the defaults.
func (cf *File) GetSourceConfig(source string) SourceConfig {
	result := cf.Defaults

	if sc, ok := cf.Sources[source]; ok {
		if sc.Delay != 0 {
			result.Delay = sc.Delay
		}
		if sc.MaxArticles != 0 {
			result.MaxArticles = sc.MaxArticles
		}
		if sc.ReferenceScope != "" {
			result.ReferenceScope = sc.ReferenceScope
		}
		if len(sc.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range sc.Headers {
				result.Headers[k] = v
			}
		}
		if len(sc.IgnorePatterns) > 0 {
			result.IgnorePatterns = sc.IgnorePatterns
		}
	}

	return result
}
