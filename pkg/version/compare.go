// Package version decides whether a client's reported version is current.
//
// Versions are compared as raw strings split once at the first hyphen into
// a base and a revision ("1.2.0-5" is base "1.2.0", revision "5"). All
// ordering is byte-wise, so "9.0.0" sorts after "10.0.0".
package version

import (
	"errors"
	"fmt"
	"strings"

	"github.com/controlx2/version-api/pkg/release"
)

// ErrMalformedVersion is returned when the release to compare against has
// no usable version identifier.
var ErrMalformedVersion = errors.New("malformed release version")

// Identifier is a version string split at its first hyphen
type Identifier struct {
	Base     string
	Revision string
	// HasRevision is set when the string contained a hyphen
	HasRevision bool
}

// Parse splits a trimmed version string at its first hyphen
func Parse(v string) Identifier {
	base, rev, found := strings.Cut(v, "-")
	return Identifier{Base: base, Revision: rev, HasRevision: found}
}

// Compare reports whether current is up to date with the latest release
func Compare(current string, latest *release.Release) (bool, error) {
	if latest == nil {
		return false, fmt.Errorf("%w: no release", ErrMalformedVersion)
	}
	return CompareStrings(current, latest.Name)
}

// CompareStrings reports whether current is up to date with latest, both
// given as raw version strings.
func CompareStrings(current, latest string) (bool, error) {
	current = strings.TrimSpace(current)
	latest = strings.TrimSpace(latest)

	if latest == "" {
		return false, fmt.Errorf("%w: empty release name", ErrMalformedVersion)
	}

	if current == latest {
		return true, nil
	}

	l := Parse(latest)
	c := Parse(current)

	if c.HasRevision {
		if c.Base < l.Base {
			return false, nil
		}
		// A client revision against a release without one: the release is
		// treated as the newer build.
		if !l.HasRevision {
			return false, nil
		}
		if c.Revision < l.Revision {
			return false, nil
		}
	}

	if current < latest {
		return false, nil
	}

	return true, nil
}
