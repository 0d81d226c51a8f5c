package rope

const (
	// Gravity is the gravitational acceleration in m/s², scaled per rope
	// by Config.GravityScale.
	Gravity = 9.81

	// SolverIterations is the fixed number of relaxation passes per step.
	// More passes make the rope feel stiffer at added cost; the positional
	// corrections are halved because they are reapplied this many times.
	SolverIterations = 3

	// bendThreshold is the dot product of adjacent link directions below
	// which the bending constraint activates (~25.6° of deflection).
	bendThreshold = 0.9

	// bendScale converts Config.BendStiffness into a per-pass positional
	// nudge toward the neighbor midpoint.
	bendScale = 0.01

	// grabRangeFactor scales the segment radius into the maximum pick
	// distance for GrabRope.
	grabRangeFactor = 3.0
)
