package rope

// Anchor is anything that can provide a world-space position for a pinned
// endpoint to track. The rope samples it once per step and never owns it;
// callers must detach an anchor before destroying it.
type Anchor interface {
	WorldPosition() Vec3
}

// FixedAnchor is an Anchor at a constant position.
type FixedAnchor struct {
	Position Vec3
}

func (a FixedAnchor) WorldPosition() Vec3 { return a.Position }
