package rope

// integrate advances every free segment under its accumulated force.
//
// The default scheme is position Verlet: velocity lives implicitly in the
// gap between Position and PrevPosition, which keeps the integrator
// unconditionally stable under the iterative constraint projection that
// follows (an explicit-velocity integrator would fight the solver's
// repeated positional corrections). The derived Velocity field only feeds
// drag and reporting.
func (r *Rope) integrate(dt float64) {
	if r.cfg.UseEuler {
		r.integrateEuler(dt)
		return
	}

	for i := range r.segments {
		s := &r.segments[i]
		if s.Pinned {
			continue
		}
		acc := s.Force.Times(1.0 / s.Mass)
		next := s.Position.Times(2).Minus(s.PrevPosition).Plus(acc.Times(dt * dt))
		s.PrevPosition = s.Position
		s.Position = next
		s.Velocity = s.Position.Minus(s.PrevPosition).Times(1.0 / dt)
	}
}

// integrateEuler is an explicit-Euler alternative kept for comparison
// runs. It has no special stability behavior; prefer Verlet.
func (r *Rope) integrateEuler(dt float64) {
	for i := range r.segments {
		s := &r.segments[i]
		if s.Pinned {
			continue
		}
		acc := s.Force.Times(1.0 / s.Mass)
		s.PrevPosition = s.Position
		s.Position = s.Position.Plus(s.Velocity.Times(dt))
		s.Velocity = s.Velocity.Plus(acc.Times(dt))
	}
}
