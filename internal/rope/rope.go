package rope

// Config holds the construction-time parameters of a rope. It is consumed
// once by NewRope; changing a Config afterwards has no effect on a live
// rope.
type Config struct {
	Origin        Vec3    `json:"origin"`
	SegmentCount  int     `json:"segment_count"`
	SegmentLength float64 `json:"segment_length"`
	TotalMass     float64 `json:"total_mass"`
	Radius        float64 `json:"radius"`
	Stiffness     float64 `json:"stiffness"`
	Damping       float64 `json:"damping"`
	MaxStretch    float64 `json:"max_stretch"`
	GravityScale  float64 `json:"gravity_scale"`
	AirResistance float64 `json:"air_resistance"`
	SwayInWind    bool    `json:"sway_in_wind"`
	WindStrength  float64 `json:"wind_strength"`
	BendStiffness float64 `json:"bend_stiffness"`
	Breakable     bool    `json:"breakable"`
	BreakForce    float64 `json:"break_force"`
	SelfCollide   bool    `json:"self_collide"`
	UseEuler      bool    `json:"use_euler"`
	StartAttached bool    `json:"start_attached"`
	EndAttached   bool    `json:"end_attached"`
}

// DefaultConfig returns a mid-weight rope tuning suitable for interactive
// use: ten half-meter links, light drag, moderate stiffness, unbreakable.
func DefaultConfig() Config {
	return Config{
		SegmentCount:  10,
		SegmentLength: 0.5,
		TotalMass:     2.0,
		Radius:        0.05,
		Stiffness:     10.0,
		Damping:       0.5,
		MaxStretch:    1.5,
		GravityScale:  1.0,
		AirResistance: 0.1,
		WindStrength:  1.0,
		BendStiffness: 0.5,
		BreakForce:    20.0,
		StartAttached: true,
	}
}

// Segment is one point mass in the chain. Position is the authoritative
// state; velocity is derived from the position delta each step and only
// feeds drag and reporting.
type Segment struct {
	Position     Vec3    `json:"position"`
	PrevPosition Vec3    `json:"-"`
	Velocity     Vec3    `json:"velocity"`
	Mass         float64 `json:"-"`
	Radius       float64 `json:"-"`
	Pinned       bool    `json:"pinned"`
	Force        Vec3    `json:"-"`
}

// Constraint is a distance link between adjacent segments A and B (B=A+1).
// Stiffness and Damping mirror the rope-wide values for reporting; the
// relaxation itself is a pure positional projection.
type Constraint struct {
	A          int     `json:"a"`
	B          int     `json:"b"`
	RestLength float64 `json:"rest_length"`
	Stiffness  float64 `json:"-"`
	Damping    float64 `json:"-"`
}

// Rope is a mass-spring chain simulated with position Verlet integration
// and iterative constraint projection. All methods must be called from the
// goroutine that drives Step; the rope performs no locking of its own.
type Rope struct {
	cfg Config

	segments    []Segment
	constraints []Constraint
	// linked[i] reports whether the constraint between segments i and i+1
	// is still active; breaking clears it permanently.
	linked []bool

	tension       float64
	currentLength float64
	broken        bool
	elapsed       float64

	startAnchor Anchor
	endAnchor   Anchor

	grabbed    int
	grabOffset Vec3

	external  []transientForce
	listeners []Listener
}

// NewRope builds the chain from cfg: SegmentCount+1 point masses laid out
// straight down from cfg.Origin, one distance constraint per adjacent
// pair. A non-positive SegmentCount is clamped to 1.
func NewRope(cfg Config) *Rope {
	if cfg.SegmentCount < 1 {
		cfg.SegmentCount = 1
	}

	r := &Rope{
		cfg:         cfg,
		segments:    make([]Segment, cfg.SegmentCount+1),
		constraints: make([]Constraint, 0, cfg.SegmentCount),
		linked:      make([]bool, cfg.SegmentCount),
		grabbed:     -1,
	}

	mass := cfg.TotalMass / float64(cfg.SegmentCount)
	for i := range r.segments {
		pos := cfg.Origin.Plus(Down.Times(float64(i) * cfg.SegmentLength))
		r.segments[i] = Segment{
			Position:     pos,
			PrevPosition: pos,
			Mass:         mass,
			Radius:       cfg.Radius,
		}
	}
	r.segments[0].Pinned = cfg.StartAttached
	r.segments[cfg.SegmentCount].Pinned = cfg.EndAttached

	for i := 0; i < cfg.SegmentCount; i++ {
		r.constraints = append(r.constraints, Constraint{
			A:          i,
			B:          i + 1,
			RestLength: cfg.SegmentLength,
			Stiffness:  cfg.Stiffness,
			Damping:    cfg.Damping,
		})
		r.linked[i] = true
	}

	r.updateMetrics()
	return r
}

// Step advances the simulation by dt seconds: anchor tracking, force
// accumulation, integration, constraint relaxation, breakage scan,
// self-collision, metrics. The whole step is atomic from the caller's
// perspective.
func (r *Rope) Step(dt float64) {
	if dt <= 0 {
		return
	}

	r.followAnchors()
	r.accumulateForces()
	r.integrate(dt)

	for i := 0; i < SolverIterations; i++ {
		r.relaxDistance()
		r.relaxBending()
	}

	r.checkBreakage()

	if r.cfg.SelfCollide {
		r.resolveSelfCollisions()
	}

	r.updateMetrics()
	r.expireForces(dt)
	r.elapsed += dt

	for _, l := range r.listeners {
		l.TensionChanged(r.tension)
	}
}

// followAnchors samples each anchor's transform once and drives the pinned
// endpoint to it. Anchors are never owned; a nil anchor is simply skipped.
func (r *Rope) followAnchors() {
	if r.startAnchor != nil {
		s := &r.segments[0]
		s.PrevPosition = s.Position
		s.Position = r.startAnchor.WorldPosition()
	}
	if r.endAnchor != nil {
		s := &r.segments[len(r.segments)-1]
		s.PrevPosition = s.Position
		s.Position = r.endAnchor.WorldPosition()
	}
}

func (r *Rope) updateMetrics() {
	length := 0.0
	for i := 0; i < len(r.segments)-1; i++ {
		length += r.segments[i].Position.DistanceTo(r.segments[i+1].Position)
	}
	r.currentLength = length

	if len(r.constraints) == 0 {
		r.tension = 0
		return
	}
	strain := 0.0
	for i := range r.constraints {
		c := &r.constraints[i]
		dist := r.segments[c.A].Position.DistanceTo(r.segments[c.B].Position)
		strain += abs(dist-c.RestLength) / c.RestLength
	}
	r.tension = strain / float64(len(r.constraints)) * r.cfg.Stiffness
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Config returns the construction parameters.
func (r *Rope) Config() Config { return r.cfg }

// Segments returns the live segment slice. Callers must treat it as
// read-only; renderers read positions from it after each step.
func (r *Rope) Segments() []Segment { return r.segments }

// Constraints returns the active constraint slice. Broken constraints are
// removed and never re-added.
func (r *Rope) Constraints() []Constraint { return r.constraints }

// Tension is the mean constraint strain scaled by stiffness, recomputed
// after every step.
func (r *Rope) Tension() float64 { return r.tension }

// CurrentLength is the sum of distances between consecutive segments.
func (r *Rope) CurrentLength() float64 { return r.currentLength }

// Broken reports whether any constraint has ever broken. It latches true;
// only Reset clears it (without restoring the broken constraints).
func (r *Rope) Broken() bool { return r.broken }

// GrabbedSegment returns the index of the grabbed segment, or -1.
func (r *Rope) GrabbedSegment() int { return r.grabbed }
