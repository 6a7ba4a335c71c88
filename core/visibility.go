package core

// VisibilityMode selects how line-of-sight checks treat the Earth. The
// default, VisibilityOccluded, applies the WGS84 occlusion test everywhere.
// VisibilityClear bypasses ellipsoid occlusion in the scheduler's contact
// search and in channel updates, and additionally steers the source data
// processor into its degenerate single-sample mode; it exists for
// network-stress experiments where geometry should not limit contacts.
type VisibilityMode int

const (
	// VisibilityOccluded applies the ellipsoid line-of-sight test.
	VisibilityOccluded VisibilityMode = iota
	// VisibilityClear treats every node pair as mutually visible.
	VisibilityClear
)

// Clear reports whether occlusion is bypassed.
func (m VisibilityMode) Clear() bool { return m == VisibilityClear }
