package rope

// relaxDistance runs a single projection pass over the active constraints
// in index order. Corrections are halved for free-free pairs because the
// pass is reapplied SolverIterations times per step; a full correction
// each pass would overshoot.
func (r *Rope) relaxDistance() {
	for i := range r.constraints {
		c := &r.constraints[i]
		a := &r.segments[c.A]
		b := &r.segments[c.B]

		delta := b.Position.Minus(a.Position)
		dist := delta.Magnitude()
		if dist == 0 {
			continue
		}

		// The stretch clamp only moves the current correction's target.
		// Points that keep flying apart can still exceed it between
		// passes; repeated stepping converges them back.
		target := c.RestLength
		if limit := c.RestLength * r.cfg.MaxStretch; r.cfg.MaxStretch > 0 && dist > limit {
			target = limit
		}

		offset := delta.Times((target - dist) / dist)

		switch {
		case a.Pinned && b.Pinned:
			// both ends driven externally, nothing to correct
		case a.Pinned:
			b.Position = b.Position.Plus(offset)
		case b.Pinned:
			a.Position = a.Position.Minus(offset)
		default:
			total := a.Mass + b.Mass
			ratioA := b.Mass / total
			ratioB := a.Mass / total
			a.Position = a.Position.Minus(offset.Times(0.5 * ratioA))
			b.Position = b.Position.Plus(offset.Times(0.5 * ratioB))
		}
	}
}

// relaxBending softly straightens interior joints whose links deflect past
// the activation threshold, nudging the joint toward its neighbors'
// midpoint. It is a gentle force, not a rigid angular constraint, so
// natural sag is left alone.
func (r *Rope) relaxBending() {
	if r.cfg.BendStiffness <= 0 {
		return
	}

	for i := 1; i < len(r.segments)-1; i++ {
		s := &r.segments[i]
		if s.Pinned || !r.linked[i-1] || !r.linked[i] {
			continue
		}

		dir1 := s.Position.Minus(r.segments[i-1].Position).Normalize()
		dir2 := r.segments[i+1].Position.Minus(s.Position).Normalize()
		if dir1.Dot(dir2) >= bendThreshold {
			continue
		}

		mid := r.segments[i-1].Position.Midpoint(r.segments[i+1].Position)
		s.Position = s.Position.Plus(mid.Minus(s.Position).Times(r.cfg.BendStiffness * bendScale))
	}
}

// checkBreakage finds the most strained constraint after relaxation and
// breaks it if its stiffness-scaled strain exceeds BreakForce. One
// constraint breaks per step; later steps keep scanning the open chain,
// so a rope can break in several places over time.
func (r *Rope) checkBreakage() {
	if !r.cfg.Breakable || len(r.constraints) == 0 {
		return
	}

	worst := -1
	worstForce := 0.0
	for i := range r.constraints {
		c := &r.constraints[i]
		dist := r.segments[c.A].Position.DistanceTo(r.segments[c.B].Position)
		force := abs(dist-c.RestLength) / c.RestLength * c.Stiffness
		if force > worstForce {
			worstForce = force
			worst = i
		}
	}

	if worst >= 0 && worstForce > r.cfg.BreakForce {
		r.breakConstraint(worst)
	}
}

// breakConstraint permanently removes the constraint at slice index idx
// and unpins the segment on the far side of the break, letting that part
// of the chain fall free. Broken constraints are never re-added.
func (r *Rope) breakConstraint(idx int) {
	c := r.constraints[idx]
	r.constraints = append(r.constraints[:idx], r.constraints[idx+1:]...)
	r.linked[c.A] = false
	r.segments[c.B].Pinned = false
	r.broken = true

	// Anything still holding the far-side segment would drag it back
	// every step, so the end anchor and the grab slot let go of it too.
	detachedEnd := false
	if c.B == len(r.segments)-1 && r.endAnchor != nil {
		r.endAnchor = nil
		detachedEnd = true
	}
	if r.grabbed == c.B {
		r.grabbed = -1
		r.grabOffset = Vec3{}
	}

	for _, l := range r.listeners {
		l.RopeBroken(c.A)
	}
	if detachedEnd {
		for _, l := range r.listeners {
			l.RopeDetached(EndEnd)
		}
	}
}

// resolveSelfCollisions brute-forces all non-adjacent segment pairs and
// pushes overlapping ones apart along their connecting axis. O(n²) and
// acceptable only for low segment counts; there is no spatial
// partitioning.
func (r *Rope) resolveSelfCollisions() {
	for i := 0; i < len(r.segments); i++ {
		for j := i + 2; j < len(r.segments); j++ {
			a := &r.segments[i]
			b := &r.segments[j]

			minDist := 2 * (a.Radius + b.Radius)
			delta := b.Position.Minus(a.Position)
			dist := delta.Magnitude()
			if dist == 0 || dist >= minDist {
				continue
			}

			push := delta.Times((minDist - dist) / dist * 0.5)
			if !a.Pinned {
				a.Position = a.Position.Minus(push)
			}
			if !b.Pinned {
				b.Position = b.Position.Plus(push)
			}

			for _, l := range r.listeners {
				l.SegmentsCollided(i, j)
			}
		}
	}
}
