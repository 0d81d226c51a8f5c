package rope

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// trace runs steps fixed ticks and records the tail position and the rope
// metrics at every tick, formatted to full precision.
func trace(r *Rope, steps int) string {
	var b strings.Builder
	for i := 0; i < steps; i++ {
		r.Step(0.016)
		tail := r.Segments()[len(r.Segments())-1].Position
		fmt.Fprintf(&b, "step %03d: tail=(%.12f, %.12f, %.12f) len=%.12f tension=%.12f\n",
			i, tail.X, tail.Y, tail.Z, r.CurrentLength(), r.Tension())
	}
	return b.String()
}

// A reset rope must replay the exact same trajectory: the simulation is a
// pure function of configuration and step sequence.
func TestResetReplaysIdenticalTrajectory(t *testing.T) {
	cfg := quietConfig(6, 0.5, 3)
	cfg.GravityScale = 1
	cfg.AirResistance = 0.1
	cfg.BendStiffness = 0.5
	cfg.StartAttached = true
	r := NewRope(cfg)

	first := trace(r, 60)
	r.Reset()
	second := trace(r, 60)

	if first != second {
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(first),
			B:        difflib.SplitLines(second),
			FromFile: "FirstRun",
			ToFile:   "AfterReset",
			Context:  0,
		}
		text, _ := difflib.GetUnifiedDiffString(diff)
		t.Fatalf("trajectory diverged after reset:\n%s", text)
	}
}

// Two ropes built from the same configuration must agree bit-for-bit.
func TestIdenticalConfigsReplayIdentically(t *testing.T) {
	cfg := quietConfig(5, 0.4, 2)
	cfg.GravityScale = 1
	cfg.SwayInWind = true
	cfg.WindStrength = 1.5
	cfg.StartAttached = true

	first := trace(NewRope(cfg), 120)
	second := trace(NewRope(cfg), 120)

	if first != second {
		diff := difflib.UnifiedDiff{
			A:        difflib.SplitLines(first),
			B:        difflib.SplitLines(second),
			FromFile: "RopeA",
			ToFile:   "RopeB",
			Context:  0,
		}
		text, _ := difflib.GetUnifiedDiffString(diff)
		t.Fatalf("identical configs diverged:\n%s", text)
	}
}
