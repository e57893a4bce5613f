package registry

import (
	"github.com/Masterminds/semver/v3"
)

// Version is a semver triple with optional pre-release and build metadata,
// totally ordered by semver precedence.
type Version struct {
	raw *semver.Version
}

// ParseVersion parses a semver string into a Version.
func ParseVersion(s string) (Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, &InvalidResponseError{Reason: "invalid version " + s + ": " + err.Error()}
	}
	return Version{raw: v}, nil
}

// String renders the version in canonical semver form.
func (v Version) String() string {
	if v.raw == nil {
		return ""
	}
	return v.raw.String()
}

// Compare returns -1, 0, or 1 per semver precedence, matching semver.Version.Compare.
func (v Version) Compare(other Version) int {
	return v.raw.Compare(other.raw)
}

// LessThan reports whether v sorts before other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// SortVersionsDescending sorts versions in place from highest to lowest
// semver precedence, as required by getPackageMetadata (§4.5).
func SortVersionsDescending(versions []Version) {
	// Insertion sort: the expected input size (package release count) is
	// small and this keeps the comparison logic obviously correct.
	for i := 1; i < len(versions); i++ {
		for j := i; j > 0 && versions[j].Compare(versions[j-1]) > 0; j-- {
			versions[j], versions[j-1] = versions[j-1], versions[j]
		}
	}
}
