package vcs

import "github.com/eolab-hsrw/easypx4/internal/descriptor"

// TagState records what Prepare did to the tag namespace so Restore can undo it.
type TagState struct {
	// OriginalTag is the reference that was checked out. For a commit build it is
	// the commit itself.
	OriginalTag string
	// TargetTag is the tag the PX4 build system will report as its version.
	TargetTag  string
	CommitHash string
	// FromCommit is set when OriginalTag is a commit rather than a tag, in which case
	// there is no original tag to delete or recreate.
	FromCommit bool
}

// Renamed reports whether Prepare moved the original tag onto a new name.
func (s TagState) Renamed() bool {
	return s.OriginalTag != s.TargetTag
}

// ComposeTags derives the checkout reference and the tag the build should carry.
//
// A pre-release custom version (alpha, beta, rc) names an upstream pre-release tag
// directly, so both tags are "{px4_version}-{custom_fw_version}" and nothing is
// renamed. Otherwise the release tag px4_version is checked out and renamed to
// "{px4_version}-{custom_fw_version}".
func ComposeTags(d descriptor.Descriptor) (original, target string) {
	target = d.PX4Version + "-" + d.CustomFWVersion
	if d.IsPrerelease() {
		return target, target
	}
	return d.PX4Version, target
}
