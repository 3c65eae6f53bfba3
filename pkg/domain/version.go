package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// VersionNumber is a major.minor concept version. Drafts advance the minor
// component in steps of one; approval jumps to the next whole major version.
// The zero value ("0.0") is never assigned to a stored concept.
type VersionNumber struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// InitialDraftVersion is the version assigned to a newly created concept.
func InitialDraftVersion() VersionNumber { return VersionNumber{Major: 0, Minor: 1} }

// ParseVersion parses a "major.minor" string.
func ParseVersion(s string) (VersionNumber, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return VersionNumber{}, fmt.Errorf("version %q: expected major.minor", s)
	}
	maj, err := strconv.Atoi(major)
	if err != nil {
		return VersionNumber{}, fmt.Errorf("version %q: %w", s, err)
	}
	min, err := strconv.Atoi(minor)
	if err != nil {
		return VersionNumber{}, fmt.Errorf("version %q: %w", s, err)
	}
	if maj < 0 || min < 0 {
		return VersionNumber{}, fmt.Errorf("version %q: components must be non-negative", s)
	}
	return VersionNumber{Major: maj, Minor: min}, nil
}

// String renders the canonical "major.minor" form, e.g. "0.1" or "2.0".
func (v VersionNumber) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// BumpMinor returns the next draft version (minor incremented by one).
func (v VersionNumber) BumpMinor() VersionNumber {
	return VersionNumber{Major: v.Major, Minor: v.Minor + 1}
}

// NextMajor returns the next whole version boundary, regardless of the
// current minor component: 0.1 -> 1.0, 1.3 -> 2.0.
func (v VersionNumber) NextMajor() VersionNumber {
	return VersionNumber{Major: v.Major + 1, Minor: 0}
}

// Less orders versions under the lifecycle ordering (0.1 < 0.2 < 1.0 < 1.1).
func (v VersionNumber) Less(other VersionNumber) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

// Approved reports whether the version has ever crossed an approval boundary.
// Concepts below 1.0 may still be soft-deleted.
func (v VersionNumber) Approved() bool { return v.Major >= 1 }
