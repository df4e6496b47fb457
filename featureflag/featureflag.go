// Package featureflag toggles optional tool behaviours from the command
// line or the environment.
package featureflag

import (
	"slices"
	"strings"
)

// FeatureFlag is a set of enabled flags. A nil FeatureFlag has no flag set.
type FeatureFlag map[Flag]struct{}

// New returns the feature flags named in flags. Names are case insensitive
// and blank names are ignored.
func New(flags []string) FeatureFlag {
	featureFlag := make(FeatureFlag)
	for _, f := range flags {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		featureFlag[Flag(f)] = struct{}{}
	}
	return featureFlag
}

// Has reports whether flag is set.
func (f FeatureFlag) Has(flag Flag) bool {
	_, ok := f[flag]
	return ok
}

// IfSet runs do when flag is set.
func (f FeatureFlag) IfSet(flag Flag, do func()) {
	if f.Has(flag) {
		do()
	}
}

// IfNotSet runs do when flag is not set.
func (f FeatureFlag) IfNotSet(flag Flag, do func()) {
	if !f.Has(flag) {
		do()
	}
}

// Flags returns the set flags, sorted.
func (f FeatureFlag) Flags() []string {
	flags := make([]string, 0, len(f))
	for flag := range f {
		flags = append(flags, string(flag))
	}
	slices.Sort(flags)
	return flags
}
