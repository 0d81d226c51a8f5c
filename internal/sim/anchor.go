package sim

import "github.com/cableworks/backend/internal/rope"

// MovableAnchor is an API-driven anchor: attach it to a rope end, then
// steer it with MoveTo between steps. The manager's lock serializes moves
// against the step worker, so no locking happens here.
type MovableAnchor struct {
	pos rope.Vec3
}

func NewMovableAnchor(pos rope.Vec3) *MovableAnchor {
	return &MovableAnchor{pos: pos}
}

func (a *MovableAnchor) WorldPosition() rope.Vec3 { return a.pos }

func (a *MovableAnchor) MoveTo(pos rope.Vec3) { a.pos = pos }
