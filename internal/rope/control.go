package rope

// AttachStart pins segment 0 to the anchor. The anchor's transform is
// sampled every step and overwrites the segment's position before
// integration. A nil anchor is ignored.
func (r *Rope) AttachStart(a Anchor) {
	if a == nil {
		return
	}
	r.startAnchor = a
	s := &r.segments[0]
	s.Pinned = true
	s.PrevPosition = s.Position
	s.Position = a.WorldPosition()

	for _, l := range r.listeners {
		l.RopeAttached(EndStart, a)
	}
}

// AttachEnd pins the last segment to the anchor.
func (r *Rope) AttachEnd(a Anchor) {
	if a == nil {
		return
	}
	r.endAnchor = a
	s := &r.segments[len(r.segments)-1]
	s.Pinned = true
	s.PrevPosition = s.Position
	s.Position = a.WorldPosition()

	for _, l := range r.listeners {
		l.RopeAttached(EndEnd, a)
	}
}

// DetachStart clears the start anchor and unpins segment 0.
func (r *Rope) DetachStart() {
	r.startAnchor = nil
	r.segments[0].Pinned = false

	for _, l := range r.listeners {
		l.RopeDetached(EndStart)
	}
}

// DetachEnd clears the end anchor and unpins the last segment.
func (r *Rope) DetachEnd() {
	r.endAnchor = nil
	r.segments[len(r.segments)-1].Pinned = false

	for _, l := range r.listeners {
		l.RopeDetached(EndEnd)
	}
}

// GrabRope pins the segment nearest to worldPos, if one lies within three
// radii of it, and returns its index; -1 means nothing was in range. A
// second grab releases the previous one first — only one grab slot
// exists.
func (r *Rope) GrabRope(worldPos Vec3) int {
	best := -1
	bestDist := r.cfg.Radius * grabRangeFactor
	for i := range r.segments {
		d := r.segments[i].Position.DistanceTo(worldPos)
		if d <= bestDist {
			best = i
			bestDist = d
		}
	}
	if best == -1 {
		return -1
	}

	if r.grabbed >= 0 && r.grabbed != best {
		r.ReleaseRope()
	}

	r.grabbed = best
	r.grabOffset = r.segments[best].Position.Minus(worldPos)
	r.segments[best].Pinned = true
	return best
}

// ReleaseRope unpins the grabbed segment. Anchored endpoints stay pinned
// to their anchors.
func (r *Rope) ReleaseRope() {
	if r.grabbed < 0 {
		return
	}
	r.segments[r.grabbed].Pinned = false
	r.grabbed = -1
	r.grabOffset = Vec3{}

	if r.startAnchor != nil {
		r.segments[0].Pinned = true
	}
	if r.endAnchor != nil {
		r.segments[len(r.segments)-1].Pinned = true
	}
}

// MoveGrabbedPoint drives the grabbed segment directly, bypassing physics
// for the frame. The position delta still lands in the Verlet history, so
// releasing a moving grab throws the rope.
func (r *Rope) MoveGrabbedPoint(worldPos Vec3) {
	if r.grabbed < 0 {
		return
	}
	s := &r.segments[r.grabbed]
	s.PrevPosition = s.Position
	s.Position = worldPos.Plus(r.grabOffset)
}

// CutRope breaks the constraint just above segmentIndex, as if it had
// snapped under load. Out-of-range indices are ignored.
func (r *Rope) CutRope(segmentIndex int) {
	if segmentIndex < 1 || segmentIndex >= len(r.segments) {
		return
	}
	for i := range r.constraints {
		if r.constraints[i].B == segmentIndex {
			r.breakConstraint(i)
			return
		}
	}
}

// Reset restores every segment to the initial rest layout and clears the
// broken flag, transient forces and elapsed time. It is a pure function
// of configuration — two consecutive resets land on identical state —
// except that constraints broken earlier stay broken: a snapped rope does
// not re-knit. Pins, anchors and the grab slot are left as they are.
func (r *Rope) Reset() {
	for i := range r.segments {
		s := &r.segments[i]
		pos := r.cfg.Origin.Plus(Down.Times(float64(i) * r.cfg.SegmentLength))
		s.Position = pos
		s.PrevPosition = pos
		s.Velocity = Vec3{}
		s.Force = Vec3{}
	}
	r.broken = false
	r.external = nil
	r.elapsed = 0
	r.updateMetrics()
}
