// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version provides a single location to house the version information
// for eqminer and the other utilities provided in the same repository.
package version

import (
	"fmt"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"
)

// semanticAlphabet defines the allowed characters for the pre-release and
// build metadata portions of a semantic version string.
const semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

// semverRE is a regular expression used to parse a semantic version string into
// its constituent parts.
var semverRE = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
	`(?:-((?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*` +
	`[a-zA-Z-][0-9a-zA-Z-]*))*))?(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

var (
	// Version is the application version per the semantic versioning 2.0.0 spec
	// (https://semver.org/).
	//
	// It is defined as a variable so it can be overridden during the build
	// process with:
	// '-ldflags "-X github.com/decred/eqminer/internal/version.Version=fullsemver"'
	// if needed.
	//
	// It MUST be a full semantic version or the package will panic at runtime.
	Version = "0.1.0-pre"

	// These fields are the individual semantic version components that define
	// the application version.  They are set via init by parsing Version.
	Major         uint
	Minor         uint
	Patch         uint
	PreRelease    string
	BuildMetadata string
)

// semVer houses the components of a parsed semantic version string.
type semVer struct {
	major, minor, patch uint
	pre, build          string
}

// parseSemVer parses the components of the provided semantic version string.
func parseSemVer(s string) (semVer, error) {
	m := semverRE.FindStringSubmatch(s)
	if m == nil {
		return semVer{}, fmt.Errorf("malformed version string %q: does not "+
			"conform to semver specification", s)
	}

	var v semVer
	nums := []*uint{&v.major, &v.minor, &v.patch}
	for i, field := range []string{"major", "minor", "patch"} {
		val, err := strconv.ParseUint(m[i+1], 10, 0)
		if err != nil {
			return semVer{}, fmt.Errorf("malformed semver %s: %w", field, err)
		}
		*nums[i] = uint(val)
	}
	v.pre, v.build = m[4], m[5]
	return v, nil
}

// vcsCommitID returns the abbreviated commit the binary was built from or an
// empty string when it was not recorded.
func vcsCommitID() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var vcs, revision string
	for _, bs := range bi.Settings {
		switch bs.Key {
		case "vcs":
			vcs = bs.Value
		case "vcs.revision":
			revision = bs.Value
		}
	}
	if vcs == "git" && len(revision) > 9 {
		revision = revision[:9]
	}
	if vcs == "" {
		return ""
	}
	return revision
}

// withCommit returns the version with the provided commit appended as build
// metadata unless it already carries build metadata.
func withCommit(version, commit string) string {
	commit = NormalizeString(commit)
	if commit == "" || strings.Contains(version, "+") {
		return version
	}
	return version + "+" + commit
}

func init() {
	Version = withCommit(Version, vcsCommitID())
	v, err := parseSemVer(Version)
	if err != nil {
		panic(err)
	}
	Major, Minor, Patch = v.major, v.minor, v.patch
	PreRelease, BuildMetadata = v.pre, v.build
}

// String returns the application version as a properly formed string per the
// semantic versioning 2.0.0 spec (https://semver.org/).
func String() string {
	return Version
}

// NormalizeString returns the passed string stripped of all characters which
// are not valid according to the semantic versioning guidelines for pre-release
// and build metadata strings.
func NormalizeString(str string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(semanticAlphabet, r) {
			return r
		}
		return -1
	}, str)
}
