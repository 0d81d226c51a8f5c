package rope

import (
	"math"
	"testing"
)

// quietConfig returns a rope with every disturbance turned off so tests
// can enable exactly what they exercise.
func quietConfig(segments int, length, mass float64) Config {
	return Config{
		SegmentCount:  segments,
		SegmentLength: length,
		TotalMass:     mass,
		Radius:        0.05,
		Stiffness:     10.0,
		MaxStretch:    1.5,
	}
}

// recorder captures rope events for assertions.
type recorder struct {
	NopListener
	broken     []int
	tensions   []float64
	attached   []End
	detached   []End
	collisions [][2]int
}

func (rec *recorder) RopeBroken(c int)             { rec.broken = append(rec.broken, c) }
func (rec *recorder) TensionChanged(t float64)     { rec.tensions = append(rec.tensions, t) }
func (rec *recorder) RopeAttached(e End, _ Anchor) { rec.attached = append(rec.attached, e) }
func (rec *recorder) RopeDetached(e End)           { rec.detached = append(rec.detached, e) }
func (rec *recorder) SegmentsCollided(a, b int) {
	rec.collisions = append(rec.collisions, [2]int{a, b})
}

func TestChainIntegrity(t *testing.T) {
	for _, count := range []int{1, 4, 50} {
		r := NewRope(quietConfig(count, 0.5, 2))
		if len(r.Segments()) != count+1 {
			t.Errorf("count=%d: got %d segments, want %d", count, len(r.Segments()), count+1)
		}
		if len(r.Constraints()) != count {
			t.Errorf("count=%d: got %d constraints, want %d", count, len(r.Constraints()), count)
		}
	}

	// Invalid counts are clamped to a single link.
	r := NewRope(quietConfig(0, 0.5, 2))
	if len(r.Segments()) != 2 || len(r.Constraints()) != 1 {
		t.Errorf("clamped rope: got %d segments / %d constraints, want 2/1",
			len(r.Segments()), len(r.Constraints()))
	}
}

func TestMassDistribution(t *testing.T) {
	r := NewRope(quietConfig(8, 0.5, 4.0))

	for i, s := range r.Segments() {
		if s.Mass != 0.5 {
			t.Errorf("segment %d: mass=%v, want 0.5", i, s.Mass)
		}
	}

	// One link's worth of mass per load-bearing segment; the anchor knot
	// at index 0 is not counted against the configured total.
	sum := 0.0
	for _, s := range r.Segments()[1:] {
		sum += s.Mass
	}
	if math.Abs(sum-4.0) > 1e-9 {
		t.Errorf("load-bearing mass=%v, want 4.0", sum)
	}
}

func TestInitialLayout(t *testing.T) {
	cfg := quietConfig(4, 0.5, 2)
	cfg.Origin = NewVec3(1, 2, 3)
	r := NewRope(cfg)

	for i, s := range r.Segments() {
		want := NewVec3(1, 2-0.5*float64(i), 3)
		if !s.Position.IsEqualTo(want) {
			t.Errorf("segment %d at %+v, want %+v", i, s.Position, want)
		}
	}
	if math.Abs(r.CurrentLength()-2.0) > 1e-9 {
		t.Errorf("initial length=%v, want 2.0", r.CurrentLength())
	}
}

func TestPinInvarianceNoForces(t *testing.T) {
	cfg := quietConfig(4, 1.0, 4)
	r := NewRope(cfg)
	top := FixedAnchor{Position: NewVec3(0, 0, 0)}
	bottom := FixedAnchor{Position: NewVec3(0, -4, 0)}
	r.AttachStart(top)
	r.AttachEnd(bottom)

	for i := 0; i < 10; i++ {
		r.Step(0.016)
		if !r.Segments()[0].Position.IsEqualTo(top.Position) {
			t.Fatalf("step %d: start segment drifted to %+v", i, r.Segments()[0].Position)
		}
		if !r.Segments()[4].Position.IsEqualTo(bottom.Position) {
			t.Fatalf("step %d: end segment drifted to %+v", i, r.Segments()[4].Position)
		}
	}
	if math.Abs(r.CurrentLength()-4.0) > 1e-9 {
		t.Errorf("length=%v, want 4.0 with no forces acting", r.CurrentLength())
	}
}

func TestStretchBoundUnderGravity(t *testing.T) {
	cfg := quietConfig(6, 0.5, 3)
	cfg.GravityScale = 1
	cfg.AirResistance = 0.5
	r := NewRope(cfg)
	r.AttachStart(FixedAnchor{Position: NewVec3(0, 0, 0)})
	r.AttachEnd(FixedAnchor{Position: NewVec3(0, -3, 0)})

	for i := 0; i < 500; i++ {
		r.Step(0.016)
	}

	// Sag stretches the chain, but repeated relaxation keeps every link
	// near the MaxStretch ceiling rather than running away.
	for i, c := range r.Constraints() {
		dist := r.Segments()[c.A].Position.DistanceTo(r.Segments()[c.B].Position)
		if dist > c.RestLength*cfg.MaxStretch*1.1 {
			t.Errorf("constraint %d: dist=%v exceeds stretch bound %v", i, dist, c.RestLength*cfg.MaxStretch)
		}
	}
	if r.Segments()[0].Position != (NewVec3(0, 0, 0)) {
		t.Errorf("anchored start moved to %+v", r.Segments()[0].Position)
	}
}

// The worked example from the tuning sessions: a four-link meter chain,
// top pinned, one 16ms step of pure gravity. The top stays put and every
// free segment sags by no more than one free-fall step before the
// relaxation passes pull the spacing back toward rest length.
func TestFirstStepFreeFall(t *testing.T) {
	cfg := quietConfig(4, 1.0, 4)
	cfg.GravityScale = 1
	cfg.StartAttached = true
	r := NewRope(cfg)

	initial := make([]Vec3, 5)
	for i, s := range r.Segments() {
		initial[i] = s.Position
	}

	dt := 0.016
	r.Step(dt)
	fall := Gravity * dt * dt

	if !r.Segments()[0].Position.IsEqualTo(initial[0]) {
		t.Errorf("pinned segment 0 moved to %+v", r.Segments()[0].Position)
	}
	for i := 1; i <= 4; i++ {
		dy := initial[i].Y - r.Segments()[i].Position.Y
		if dy <= 0 {
			t.Errorf("segment %d did not fall (Δy=%v)", i, dy)
		}
		if dy > fall*1.01 {
			t.Errorf("segment %d fell %v, more than one free-fall step %v", i, dy, fall)
		}
	}
	// The tail only gets a fraction of its fall corrected back.
	tailDy := initial[4].Y - r.Segments()[4].Position.Y
	if tailDy < fall*0.2 {
		t.Errorf("tail segment fell only %v, want at least %v", tailDy, fall*0.2)
	}
}

func TestBreakDeterminism(t *testing.T) {
	cfg := quietConfig(4, 1.0, 4)
	cfg.StartAttached = true
	cfg.Breakable = true
	cfg.BreakForce = 0.5
	cfg.MaxStretch = 10
	r := NewRope(cfg)
	rec := &recorder{}
	r.AddListener(rec)

	r.ApplyForce(NewVec3(0, -500, 0), 4, 10)

	steps := 0
	for ; steps < 200 && !r.Broken(); steps++ {
		r.Step(0.016)
	}

	if !r.Broken() {
		t.Fatal("rope never broke under a force far above BreakForce")
	}
	if len(rec.broken) != 1 {
		t.Fatalf("got %d break events, want 1", len(rec.broken))
	}
	if rec.broken[0] < 0 || rec.broken[0] > 3 {
		t.Errorf("break event reported constraint %d, out of range", rec.broken[0])
	}
	if len(r.Constraints()) != 3 {
		t.Errorf("got %d constraints after break, want 3", len(r.Constraints()))
	}

	// Broken latches: the open chain keeps simulating, flag stays set.
	for i := 0; i < 50; i++ {
		r.Step(0.016)
		if !r.Broken() {
			t.Fatal("Broken() reverted while stepping")
		}
	}
}

func TestCutRope(t *testing.T) {
	r := NewRope(quietConfig(4, 1.0, 4))
	rec := &recorder{}
	r.AddListener(rec)

	r.CutRope(2)

	if !r.Broken() {
		t.Error("cut did not mark the rope broken")
	}
	if len(r.Constraints()) != 3 {
		t.Errorf("got %d constraints after cut, want 3", len(r.Constraints()))
	}
	if len(rec.broken) != 1 || rec.broken[0] != 1 {
		t.Errorf("break events=%v, want [1]", rec.broken)
	}
	if r.Segments()[2].Pinned {
		t.Error("far side of the cut is still pinned")
	}

	// Cutting the same joint again is a no-op.
	r.CutRope(2)
	if len(r.Constraints()) != 3 || len(rec.broken) != 1 {
		t.Error("repeated cut removed another constraint")
	}

	// Out-of-range cuts are ignored.
	r.CutRope(0)
	r.CutRope(99)
	if len(r.Constraints()) != 3 {
		t.Error("invalid cut index removed a constraint")
	}
}

func TestCutAtAnchoredEndFallsFree(t *testing.T) {
	cfg := quietConfig(4, 1.0, 4)
	cfg.GravityScale = 1
	r := NewRope(cfg)
	rec := &recorder{}
	r.AddListener(rec)

	top := FixedAnchor{Position: NewVec3(0, 0, 0)}
	bottom := FixedAnchor{Position: NewVec3(0, -4, 0)}
	r.AttachStart(top)
	r.AttachEnd(bottom)

	// Sever the last link. The bottom anchor must let go, otherwise it
	// keeps snapping the freed segment back every step.
	r.CutRope(4)

	last := len(r.Segments()) - 1
	if r.Segments()[last].Pinned {
		t.Fatal("freed segment is still pinned")
	}
	if len(rec.detached) != 1 || rec.detached[0] != EndEnd {
		t.Errorf("detach events=%v, want [end]", rec.detached)
	}

	for i := 0; i < 100; i++ {
		r.Step(0.016)
	}

	tail := r.Segments()[last].Position
	if tail.IsEqualTo(bottom.Position) {
		t.Errorf("freed segment is still held at the end anchor %+v", tail)
	}
	if tail.Y >= bottom.Position.Y {
		t.Errorf("freed segment did not fall below the anchor: %+v", tail)
	}
}

func TestBreakReleasesGrabbedSegment(t *testing.T) {
	r := NewRope(quietConfig(4, 1.0, 4))

	if got := r.GrabRope(NewVec3(0, -3, 0)); got != 3 {
		t.Fatalf("grab returned %d, want 3", got)
	}

	r.CutRope(3)

	if r.GrabbedSegment() != -1 {
		t.Errorf("grab slot=%d after breaking the grabbed segment free, want -1", r.GrabbedSegment())
	}
	before := r.Segments()[3].Position
	r.MoveGrabbedPoint(NewVec3(9, 9, 9))
	if !r.Segments()[3].Position.IsEqualTo(before) {
		t.Error("stale grab still drives the freed segment")
	}
}

func TestResetIdempotence(t *testing.T) {
	cfg := quietConfig(4, 1.0, 4)
	cfg.GravityScale = 1
	cfg.StartAttached = true
	r := NewRope(cfg)

	for i := 0; i < 50; i++ {
		r.Step(0.016)
	}
	r.CutRope(3)

	r.Reset()
	first := make([]Vec3, len(r.Segments()))
	for i, s := range r.Segments() {
		first[i] = s.Position
	}

	r.Reset()
	for i, s := range r.Segments() {
		if !s.Position.IsEqualTo(first[i]) {
			t.Errorf("segment %d differs between consecutive resets: %+v vs %+v", i, first[i], s.Position)
		}
		want := cfg.Origin.Plus(Down.Times(float64(i) * cfg.SegmentLength))
		if !s.Position.IsEqualTo(want) {
			t.Errorf("segment %d reset to %+v, want rest pose %+v", i, s.Position, want)
		}
	}

	if r.Broken() {
		t.Error("reset did not clear the broken flag")
	}
	if len(r.Constraints()) != 3 {
		t.Errorf("reset restored a broken constraint: %d constraints, want 3", len(r.Constraints()))
	}
}

func TestGrabSemantics(t *testing.T) {
	r := NewRope(quietConfig(4, 1.0, 4))

	if got := r.GrabRope(NewVec3(100, 0, 0)); got != -1 {
		t.Fatalf("grab far away returned %d, want -1", got)
	}

	if got := r.GrabRope(NewVec3(0, -2, 0)); got != 2 {
		t.Fatalf("grab at segment 2 returned %d", got)
	}
	if !r.Segments()[2].Pinned {
		t.Error("grabbed segment not pinned")
	}

	// A second grab releases the first slot.
	if got := r.GrabRope(NewVec3(0, -3, 0)); got != 3 {
		t.Fatalf("second grab returned %d, want 3", got)
	}
	if r.Segments()[2].Pinned {
		t.Error("previous grab still pinned after second grab")
	}

	r.MoveGrabbedPoint(NewVec3(1, -3, 0))
	if !r.Segments()[3].Position.IsEqualTo(NewVec3(1, -3, 0)) {
		t.Errorf("moved grab landed at %+v", r.Segments()[3].Position)
	}

	r.ReleaseRope()
	if r.Segments()[3].Pinned || r.GrabbedSegment() != -1 {
		t.Error("release did not clear the grab")
	}
	r.MoveGrabbedPoint(NewVec3(9, 9, 9)) // no grab active, must be a no-op
	if r.Segments()[3].Position.IsEqualTo(NewVec3(9, 9, 9)) {
		t.Error("MoveGrabbedPoint acted without an active grab")
	}
}

func TestApplyForceExpiry(t *testing.T) {
	cfg := quietConfig(1, 1.0, 1)
	cfg.StartAttached = true
	r := NewRope(cfg)

	// duration 0 acts for exactly one step
	r.ApplyForce(NewVec3(10, 0, 0), 1, 0)
	r.Step(0.1)
	if r.Segments()[1].Position.X <= 0 {
		t.Error("one-shot force did not move the segment")
	}
	if len(r.external) != 0 {
		t.Errorf("one-shot force still registered after a step: %d", len(r.external))
	}

	// timed forces expire once their duration has elapsed
	r.ApplyForce(NewVec3(10, 0, 0), 1, 0.25)
	for step, want := range []int{1, 1, 0} {
		r.Step(0.1)
		if len(r.external) != want {
			t.Errorf("after step %d: %d forces registered, want %d", step+1, len(r.external), want)
		}
	}

	// invalid segment indices are ignored
	r.ApplyForce(NewVec3(1, 0, 0), 99, 1)
	if len(r.external) != 0 {
		t.Error("force on invalid segment index was registered")
	}
}

func TestWindIsDeterministic(t *testing.T) {
	cfg := quietConfig(6, 0.5, 2)
	cfg.GravityScale = 1
	cfg.StartAttached = true
	cfg.SwayInWind = true
	cfg.WindStrength = 2

	a := NewRope(cfg)
	b := NewRope(cfg)
	for i := 0; i < 100; i++ {
		a.Step(0.016)
		b.Step(0.016)
	}
	for i := range a.Segments() {
		if !a.Segments()[i].Position.IsEqualTo(b.Segments()[i].Position) {
			t.Fatalf("segment %d diverged between identical runs: %+v vs %+v",
				i, a.Segments()[i].Position, b.Segments()[i].Position)
		}
	}

	moved := false
	for i, s := range a.Segments() {
		if i > 0 && (s.Position.X != 0 || s.Position.Z != 0) {
			moved = true
		}
	}
	if !moved {
		t.Error("wind never deflected the rope sideways")
	}
}

func TestAnchorEventsAndTracking(t *testing.T) {
	r := NewRope(quietConfig(3, 1.0, 3))
	rec := &recorder{}
	r.AddListener(rec)

	anchor := FixedAnchor{Position: NewVec3(5, 1, 0)}
	r.AttachStart(anchor)
	if !r.Segments()[0].Position.IsEqualTo(anchor.Position) {
		t.Errorf("attach did not snap segment 0 to the anchor: %+v", r.Segments()[0].Position)
	}
	r.Step(0.016)
	if !r.Segments()[0].Position.IsEqualTo(anchor.Position) {
		t.Errorf("segment 0 left its anchor after a step: %+v", r.Segments()[0].Position)
	}

	r.DetachStart()
	if r.Segments()[0].Pinned {
		t.Error("detach left segment 0 pinned")
	}

	if len(rec.attached) != 1 || rec.attached[0] != EndStart {
		t.Errorf("attach events=%v, want [start]", rec.attached)
	}
	if len(rec.detached) != 1 || rec.detached[0] != EndStart {
		t.Errorf("detach events=%v, want [start]", rec.detached)
	}
	if len(rec.tensions) != 1 {
		t.Errorf("got %d tension events after one step, want 1", len(rec.tensions))
	}
}
