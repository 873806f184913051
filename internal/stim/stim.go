// Package stim holds the vocabulary shared by the experiment core: the fixed
// set of stimulus locations around fixation and the parameter tuple that
// describes one grating presentation.
package stim

import "fmt"

// Location is one of the four fixed stimulus positions around fixation.
type Location int

const (
	Up Location = iota
	Right
	Down
	Left
)

// NumLocations is the size of the fixed location set.
const NumLocations = 4

// Locations lists every location in index order.
var Locations = [NumLocations]Location{Up, Right, Down, Left}

var locationNames = [NumLocations]string{"up", "right", "down", "left"}

func (l Location) String() string {
	if !l.Valid() {
		return fmt.Sprintf("location(%d)", int(l))
	}
	return locationNames[l]
}

// Valid reports whether l is one of the four fixed locations.
func (l Location) Valid() bool {
	return l >= Up && l <= Left
}

// Vertical reports whether l lies on the vertical axis through fixation.
func (l Location) Vertical() bool {
	return l == Up || l == Down
}

// Offset returns the unit direction of l in screen space (y grows downward).
func (l Location) Offset() (dx, dy float64) {
	switch l {
	case Up:
		return 0, -1
	case Right:
		return 1, 0
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	}
	return 0, 0
}

// Grating orientations in degrees. Patches above and below fixation use
// OrientationVertical, patches to the sides use OrientationHorizontal.
const (
	OrientationVertical   = 0.0
	OrientationHorizontal = 90.0
)

// OrientationFor returns the grating orientation used at loc.
func OrientationFor(loc Location) float64 {
	if loc.Vertical() {
		return OrientationVertical
	}
	return OrientationHorizontal
}

// Phases is the fixed set of phase offsets (degrees) a presentation draws from.
var Phases = []float64{0, 45, 90, 135, 180, 225, 270, 315}

// Params describes one grating presentation.
type Params struct {
	// Frequency is the spatial frequency in cycles per degree.
	Frequency float64
	// Cycles is the number of grating cycles across the patch.
	Cycles float64
	// Orientation in degrees.
	Orientation float64
	// Phase in degrees.
	Phase float64
	// Contrast in [0,1].
	Contrast float64
}

// At returns a copy of p oriented for loc.
func (p Params) At(loc Location) Params {
	p.Orientation = OrientationFor(loc)
	return p
}
