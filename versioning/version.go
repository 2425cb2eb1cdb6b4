// Package versioning resolves the release version of a deploy run and
// computes the next version for the release-preparation workflow.
package versioning

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	schemadeploy "github.com/getpup/schemadeploy"
	goversion "github.com/hashicorp/go-version"
)

// DefaultVersion is the version baked into the build. Override it with
// -ldflags "-X github.com/getpup/schemadeploy/versioning.DefaultVersion=v1.4.0".
var DefaultVersion = "v1.0.0"

// Part names the component of a version to bump.
type Part string

const (
	PartMajor      Part = "major"
	PartMinor      Part = "minor"
	PartPatch      Part = "patch"
	PartPrerelease Part = "prerelease"
)

const prereleasePrefix = "rc."

// Sources are the candidate version values in priority order.
type Sources struct {
	// Tag is the externally injected release tag (TAG).
	Tag string

	// Override is the secondary override (SCHEMA_VERSION).
	Override string

	// Default is the persisted default; DefaultVersion is used when empty.
	Default string
}

// Resolve returns the first non-empty source: Tag, then Override, then Default.
func Resolve(src Sources) string {
	for _, v := range []string{src.Tag, src.Override, src.Default} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return DefaultVersion
}

// Version is a parsed major.minor.patch[-rc.N] version.
type Version struct {
	Major, Minor, Patch int

	// RC is the prerelease counter; it is only meaningful when Prerelease is true.
	RC         int
	Prerelease bool
}

// coreRegexp requires all three numeric components. go-version pads missing
// ones with zeros.
var coreRegexp = regexp.MustCompile(`^v?[0-9]+\.[0-9]+\.[0-9]+([-+].*)?$`)

// Parse parses a version string. A leading "v" is accepted.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if !coreRegexp.MatchString(trimmed) {
		return Version{}, fmt.Errorf("%w: %q: expected major.minor.patch", schemadeploy.ErrInvalidVersion, s)
	}

	v, err := goversion.NewVersion(trimmed)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %v", schemadeploy.ErrInvalidVersion, s, err)
	}
	if v.Metadata() != "" {
		return Version{}, fmt.Errorf("%w: %q: build metadata is not supported", schemadeploy.ErrInvalidVersion, s)
	}

	segments := v.Segments()
	out := Version{Major: segments[0], Minor: segments[1], Patch: segments[2]}

	if pre := v.Prerelease(); pre != "" {
		counter, ok := strings.CutPrefix(pre, prereleasePrefix)
		if !ok {
			return Version{}, fmt.Errorf("%w: %q: prerelease must be %sN", schemadeploy.ErrInvalidVersion, s, prereleasePrefix)
		}
		n, err := strconv.Atoi(counter)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q: prerelease counter must be a non-negative integer", schemadeploy.ErrInvalidVersion, s)
		}
		out.Prerelease = true
		out.RC = n
	}

	return out, nil
}

// String formats the version without a leading "v".
func (v Version) String() string {
	if v.Prerelease {
		return fmt.Sprintf("%d.%d.%d-%s%d", v.Major, v.Minor, v.Patch, prereleasePrefix, v.RC)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Bump returns the version that follows current for the requested part:
//
//   - major: increment major, reset minor and patch, drop prerelease
//   - minor: increment minor, reset patch, drop prerelease
//   - patch: promote a prerelease to its release, otherwise increment patch
//   - prerelease: increment the rc counter, or start patch+1 at rc.0
//
// Any other part fails with ErrInvalidVersionPart.
func Bump(current string, part Part) (string, error) {
	v, err := Parse(current)
	if err != nil {
		return "", err
	}

	switch part {
	case PartMajor:
		v = Version{Major: v.Major + 1}
	case PartMinor:
		v = Version{Major: v.Major, Minor: v.Minor + 1}
	case PartPatch:
		if v.Prerelease {
			v.Prerelease, v.RC = false, 0
		} else {
			v.Patch++
		}
	case PartPrerelease:
		if v.Prerelease {
			v.RC++
		} else {
			v.Patch++
			v.Prerelease, v.RC = true, 0
		}
	default:
		return "", fmt.Errorf("%w: %q", schemadeploy.ErrInvalidVersionPart, part)
	}

	return v.String(), nil
}

// ReadVersionFile returns the persisted default version stored at path.
func ReadVersionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read version file: %w", err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("%w: version file %s is empty", schemadeploy.ErrInvalidVersion, path)
	}
	return v, nil
}

// WriteVersionFile persists version at path.
func WriteVersionFile(path, version string) error {
	if err := os.WriteFile(path, []byte(version+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write version file: %w", err)
	}
	return nil
}
