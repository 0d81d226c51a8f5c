package rope

// End identifies which extremity of the rope an operation targets.
type End string

const (
	EndStart End = "start"
	EndEnd   End = "end"
)

// Listener receives rope events. Callbacks fire synchronously inside the
// step (or inside the mutation that caused them), on the stepping
// goroutine. Embed NopListener to implement a subset.
type Listener interface {
	RopeBroken(constraint int)
	TensionChanged(tension float64)
	RopeAttached(end End, anchor Anchor)
	RopeDetached(end End)
	SegmentsCollided(a, b int)
}

// NopListener is a Listener that ignores everything.
type NopListener struct{}

func (NopListener) RopeBroken(int)            {}
func (NopListener) TensionChanged(float64)    {}
func (NopListener) RopeAttached(End, Anchor)  {}
func (NopListener) RopeDetached(End)          {}
func (NopListener) SegmentsCollided(int, int) {}

// AddListener registers l for all subsequent events.
func (r *Rope) AddListener(l Listener) {
	r.listeners = append(r.listeners, l)
}
