package rope

import (
	"math"
	"testing"
)

func TestSelfCollisionSeparation(t *testing.T) {
	cfg := quietConfig(4, 1.0, 4)
	cfg.SelfCollide = true
	r := NewRope(cfg)
	rec := &recorder{}
	r.AddListener(rec)

	// Fold the chain so two non-adjacent segments overlap, then resolve.
	r.segments[0].Position = NewVec3(0, 0, 0)
	r.segments[3].Position = NewVec3(0.01, 0, 0)
	r.resolveSelfCollisions()

	minDist := 2 * (r.segments[0].Radius + r.segments[3].Radius)
	dist := r.segments[0].Position.DistanceTo(r.segments[3].Position)
	if math.Abs(dist-minDist) > 1e-9 {
		t.Errorf("separated distance=%v, want %v", dist, minDist)
	}

	found := false
	for _, pair := range rec.collisions {
		if pair == [2]int{0, 3} {
			found = true
		}
	}
	if !found {
		t.Errorf("no collision event for pair (0,3); got %v", rec.collisions)
	}
}

func TestSelfCollisionSkipsPinned(t *testing.T) {
	cfg := quietConfig(4, 1.0, 4)
	cfg.SelfCollide = true
	cfg.StartAttached = true
	r := NewRope(cfg)

	r.segments[3].Position = NewVec3(0.01, 0, 0) // overlapping pinned segment 0
	r.resolveSelfCollisions()

	if !r.segments[0].Position.IsEqualTo(NewVec3(0, 0, 0)) {
		t.Errorf("pinned segment was pushed to %+v", r.segments[0].Position)
	}
	if r.segments[3].Position.IsEqualTo(NewVec3(0.01, 0, 0)) {
		t.Error("free segment was not pushed off the pinned one")
	}
}

func TestEulerIntegratorToggle(t *testing.T) {
	cfg := quietConfig(2, 1.0, 2)
	cfg.GravityScale = 1
	cfg.UseEuler = true
	r := NewRope(cfg)

	dt := 0.016
	start := r.Segments()[1].Position

	// Explicit Euler updates position from the *old* velocity, so the
	// first step leaves positions untouched and only builds velocity.
	r.Step(dt)
	if !r.Segments()[1].Position.IsEqualTo(start) {
		t.Errorf("first Euler step moved the segment to %+v", r.Segments()[1].Position)
	}
	if math.Abs(r.Segments()[1].Velocity.Y+Gravity*dt) > 1e-9 {
		t.Errorf("first Euler step velocity=%v, want %v", r.Segments()[1].Velocity.Y, -Gravity*dt)
	}

	r.Step(dt)
	if r.Segments()[1].Position.Y >= start.Y {
		t.Error("second Euler step did not move the segment down")
	}
}

func TestBendingStraightensKinks(t *testing.T) {
	cfg := quietConfig(2, 1.0, 2)
	cfg.BendStiffness = 5
	r := NewRope(cfg)

	// Kink the middle joint well past the activation threshold.
	r.segments[0].Position = NewVec3(0, 0, 0)
	r.segments[1].Position = NewVec3(1, 0, 0)
	r.segments[2].Position = NewVec3(0.5, 0.8, 0)

	before := r.segments[1].Position.DistanceTo(r.segments[0].Position.Midpoint(r.segments[2].Position))
	r.relaxBending()
	after := r.segments[1].Position.DistanceTo(r.segments[0].Position.Midpoint(r.segments[2].Position))

	if after >= before {
		t.Errorf("bending pass did not move the joint toward the midpoint: %v -> %v", before, after)
	}
}

func TestBendingIgnoresGentleSag(t *testing.T) {
	cfg := quietConfig(2, 1.0, 2)
	cfg.BendStiffness = 5
	r := NewRope(cfg)

	// Nearly straight: dot of the link directions stays above threshold.
	r.segments[0].Position = NewVec3(0, 0, 0)
	r.segments[1].Position = NewVec3(1, -0.05, 0)
	r.segments[2].Position = NewVec3(2, 0, 0)

	mid := r.segments[1].Position
	r.relaxBending()
	if !r.segments[1].Position.IsEqualTo(mid) {
		t.Errorf("bending acted on a gentle sag: %+v", r.segments[1].Position)
	}
}

func TestTensionTracksStretch(t *testing.T) {
	cfg := quietConfig(2, 1.0, 2)
	cfg.Stiffness = 10
	r := NewRope(cfg)

	if r.Tension() != 0 {
		t.Errorf("rest tension=%v, want 0", r.Tension())
	}

	// Stretch the last link by 10%: mean strain 0.05 over two links.
	r.segments[2].Position = NewVec3(0, -2.1, 0)
	r.updateMetrics()

	if math.Abs(r.Tension()-0.5) > 1e-9 {
		t.Errorf("tension=%v, want 0.5", r.Tension())
	}
	if math.Abs(r.CurrentLength()-2.1) > 1e-9 {
		t.Errorf("length=%v, want 2.1", r.CurrentLength())
	}
}
