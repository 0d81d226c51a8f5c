package rope

import "math"

// transientForce is an externally injected force, applied every step until
// its remaining duration elapses. segment -1 targets all segments.
type transientForce struct {
	force     Vec3
	segment   int
	remaining float64
}

// ApplyForce registers a transient external force. segment is a segment
// index, or -1 for the whole rope. duration is in seconds; 0 means the
// force acts for exactly one step.
func (r *Rope) ApplyForce(force Vec3, segment int, duration float64) {
	if segment < -1 || segment >= len(r.segments) {
		return
	}
	r.external = append(r.external, transientForce{force: force, segment: segment, remaining: duration})
}

// accumulateForces overwrites every free segment's force accumulator with
// gravity, air drag and wind. Pinned segments are skipped entirely: they
// are driven exogenously and their accumulator is irrelevant.
func (r *Rope) accumulateForces() {
	for i := range r.segments {
		s := &r.segments[i]
		if s.Pinned {
			continue
		}

		force := Down.Times(Gravity * r.cfg.GravityScale * s.Mass)
		force = force.Plus(s.Velocity.Times(-r.cfg.AirResistance))

		if r.cfg.SwayInWind {
			force = force.Plus(r.windForce(i))
		}

		for _, ext := range r.external {
			if ext.segment == -1 || ext.segment == i {
				force = force.Plus(ext.force)
			}
		}

		s.Force = force
	}
}

// windForce is a deterministic, time- and index-varying flutter. Each
// segment sways out of phase with its neighbors rather than the whole
// rope leaning uniformly.
func (r *Rope) windForce(i int) Vec3 {
	t := r.elapsed
	fi := float64(i)
	return Vec3{
		X: math.Sin(t*2+fi*0.5) * r.cfg.WindStrength,
		Z: math.Cos(t*1.5+fi*0.3) * r.cfg.WindStrength * 0.5,
	}
}

// expireForces decrements remaining durations after the step's
// application and drops everything that has run out.
func (r *Rope) expireForces(dt float64) {
	active := r.external[:0]
	for _, ext := range r.external {
		ext.remaining -= dt
		if ext.remaining > 0 {
			active = append(active, ext)
		}
	}
	r.external = active
}
