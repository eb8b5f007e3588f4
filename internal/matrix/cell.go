// Package matrix drives the cross-product of build configurations through
// the configure, build, install, and downstream-consume pipeline, scoring
// each cell independently.
package matrix

import "strings"

// BuildKind is the configuration axis of the matrix.
type BuildKind string

const (
	BuildRelease BuildKind = "Release"
	BuildDebug   BuildKind = "Debug"
)

// LinkKind is the linkage axis of the matrix.
type LinkKind string

const (
	LinkStatic LinkKind = "static"
	LinkShared LinkKind = "shared"
)

// Cell is one concrete combination of build kind and linkage kind.
type Cell struct {
	Build BuildKind `json:"build"`
	Link  LinkKind  `json:"link"`
}

// Name returns the cell's stable identifier, used for directory namespacing
// and log labels.
func (c Cell) Name() string {
	return strings.ToLower(string(c.Build)) + "-" + string(c.Link)
}

// Shared reports whether the cell links the library dynamically.
func (c Cell) Shared() bool { return c.Link == LinkShared }

// ProfileName returns the configuration-profile name the cell corresponds to,
// used for compiler-injection classification.
func (c Cell) ProfileName() string { return strings.ToLower(string(c.Build)) }

// DefaultCells enumerates the full 2x2 matrix in its fixed order: the build
// kind is the outer axis, linkage the inner one, so repeated runs produce
// identically ordered reports.
func DefaultCells() []Cell {
	cells := make([]Cell, 0, 4)
	for _, build := range []BuildKind{BuildRelease, BuildDebug} {
		for _, link := range []LinkKind{LinkStatic, LinkShared} {
			cells = append(cells, Cell{Build: build, Link: link})
		}
	}
	return cells
}
