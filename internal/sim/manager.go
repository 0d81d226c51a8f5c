package sim

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cableworks/backend/internal/config"
	"github.com/cableworks/backend/internal/rope"
)

var (
	ErrRopeNotFound = errors.New("rope not found")
	ErrTooManyRopes = errors.New("rope instance limit reached")
)

// EventsChannel is the Redis pub/sub channel rope events are published to,
// so peer instances can fan them out to their own websocket viewers.
const EventsChannel = "rope_events"

// FramePublisher receives frame and event payloads for a rope. The
// websocket hub implements it; publishing must not block.
type FramePublisher interface {
	Publish(ropeID string, payload []byte)
}

// instance is one live rope plus its service-side bookkeeping.
type instance struct {
	id          string
	name        string
	rope        *rope.Rope
	startAnchor *MovableAnchor
	endAnchor   *MovableAnchor
	createdAt   time.Time
	frame       uint64
}

// Manager owns all live rope instances and drives them on a fixed
// timestep. Every operation takes the manager lock, which serializes
// mutations against the step worker: from each rope's point of view the
// world is single-threaded, exactly the contract the solver requires.
type Manager struct {
	ropes     map[string]*instance
	cfg       *config.Config
	rdb       *redis.Client // optional; nil disables mirroring and fanout
	publisher FramePublisher
	mu        sync.RWMutex
}

func NewManager(cfg *config.Config, rdb *redis.Client) *Manager {
	return &Manager{
		ropes: make(map[string]*instance),
		cfg:   cfg,
		rdb:   rdb,
	}
}

// SetPublisher wires the frame/event sink. Call before StartStepWorker.
func (m *Manager) SetPublisher(p FramePublisher) {
	m.publisher = p
}

// RopeInfo is the list/creation view of an instance.
type RopeInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SegmentCount int       `json:"segment_count"`
	Broken       bool      `json:"broken"`
	CreatedAt    time.Time `json:"created_at"`
}

// Snapshot is the full state view of an instance after its latest step.
type Snapshot struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Frame       uint64            `json:"frame"`
	Config      rope.Config       `json:"config"`
	Segments    []rope.Segment    `json:"segments"`
	Constraints []rope.Constraint `json:"constraints"`
	Tension     float64           `json:"tension"`
	Length      float64           `json:"length"`
	Broken      bool              `json:"broken"`
	Grabbed     int               `json:"grabbed"`
	CreatedAt   time.Time         `json:"created_at"`
}

// frameMessage is the per-tick payload streamed to viewers.
type frameMessage struct {
	Type     string         `json:"type"`
	RopeID   string         `json:"rope_id"`
	Frame    uint64         `json:"frame"`
	Segments []rope.Segment `json:"segments"`
	Tension  float64        `json:"tension"`
	Length   float64        `json:"length"`
	Broken   bool           `json:"broken"`
}

// CreateRope builds a new rope instance from rc. The segment count is
// capped by configuration; endpoint attachment flags from rc become
// movable anchors at the endpoints' initial positions.
func (m *Manager) CreateRope(name string, rc rope.Config) (*RopeInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.ropes) >= m.cfg.MaxRopes {
		return nil, ErrTooManyRopes
	}
	if rc.SegmentCount > m.cfg.MaxSegments {
		rc.SegmentCount = m.cfg.MaxSegments
	}

	inst := &instance{
		id:        "rope_" + generateID(),
		name:      name,
		rope:      rope.NewRope(rc),
		createdAt: time.Now(),
	}
	if rc.StartAttached {
		inst.startAnchor = NewMovableAnchor(inst.rope.Segments()[0].Position)
		inst.rope.AttachStart(inst.startAnchor)
	}
	if rc.EndAttached {
		last := len(inst.rope.Segments()) - 1
		inst.endAnchor = NewMovableAnchor(inst.rope.Segments()[last].Position)
		inst.rope.AttachEnd(inst.endAnchor)
	}
	inst.rope.AddListener(&eventRelay{m: m, inst: inst})

	m.ropes[inst.id] = inst
	log.Printf("[SIM] created rope %s (%q, %d segments)", inst.id, name, len(inst.rope.Segments()))

	info := inst.info()
	return &info, nil
}

// DeleteRope removes an instance.
func (m *Manager) DeleteRope(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ropes[id]; !ok {
		return ErrRopeNotFound
	}
	delete(m.ropes, id)
	log.Printf("[SIM] deleted rope %s", id)
	return nil
}

// List returns info for all live instances.
func (m *Manager) List() []RopeInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]RopeInfo, 0, len(m.ropes))
	for _, inst := range m.ropes {
		out = append(out, inst.info())
	}
	return out
}

// Snapshot returns the full state of one instance.
func (m *Manager) Snapshot(id string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.ropes[id]
	if !ok {
		return nil, ErrRopeNotFound
	}

	r := inst.rope
	segs := make([]rope.Segment, len(r.Segments()))
	copy(segs, r.Segments())
	cons := make([]rope.Constraint, len(r.Constraints()))
	copy(cons, r.Constraints())

	return &Snapshot{
		ID:          inst.id,
		Name:        inst.name,
		Frame:       inst.frame,
		Config:      r.Config(),
		Segments:    segs,
		Constraints: cons,
		Tension:     r.Tension(),
		Length:      r.CurrentLength(),
		Broken:      r.Broken(),
		Grabbed:     r.GrabbedSegment(),
		CreatedAt:   inst.createdAt,
	}, nil
}

func (inst *instance) info() RopeInfo {
	return RopeInfo{
		ID:           inst.id,
		Name:         inst.name,
		SegmentCount: len(inst.rope.Segments()) - 1,
		Broken:       inst.rope.Broken(),
		CreatedAt:    inst.createdAt,
	}
}

// ApplyForce registers a transient force on one segment (-1 for all).
func (m *Manager) ApplyForce(id string, force rope.Vec3, segment int, duration float64) error {
	return m.withRope(id, func(r *rope.Rope) {
		r.ApplyForce(force, segment, duration)
	})
}

// Grab pins the nearest segment to pos and returns its index, -1 if none
// was in range.
func (m *Manager) Grab(id string, pos rope.Vec3) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.ropes[id]
	if !ok {
		return -1, ErrRopeNotFound
	}
	return inst.rope.GrabRope(pos), nil
}

// MoveGrab drives the grabbed segment.
func (m *Manager) MoveGrab(id string, pos rope.Vec3) error {
	return m.withRope(id, func(r *rope.Rope) {
		r.MoveGrabbedPoint(pos)
	})
}

// Release drops the active grab.
func (m *Manager) Release(id string) error {
	return m.withRope(id, func(r *rope.Rope) {
		r.ReleaseRope()
	})
}

// Cut snaps the constraint just above the given segment.
func (m *Manager) Cut(id string, segment int) error {
	return m.withRope(id, func(r *rope.Rope) {
		r.CutRope(segment)
	})
}

// ResetRope restores the rest pose (broken constraints stay broken).
func (m *Manager) ResetRope(id string) error {
	return m.withRope(id, func(r *rope.Rope) {
		r.Reset()
	})
}

// AttachAnchor attaches the given end to a movable anchor at pos, or
// moves the existing anchor there.
func (m *Manager) AttachAnchor(id string, end rope.End, pos rope.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.ropes[id]
	if !ok {
		return ErrRopeNotFound
	}

	switch end {
	case rope.EndStart:
		if inst.startAnchor == nil {
			inst.startAnchor = NewMovableAnchor(pos)
			inst.rope.AttachStart(inst.startAnchor)
		} else {
			inst.startAnchor.MoveTo(pos)
		}
	case rope.EndEnd:
		if inst.endAnchor == nil {
			inst.endAnchor = NewMovableAnchor(pos)
			inst.rope.AttachEnd(inst.endAnchor)
		} else {
			inst.endAnchor.MoveTo(pos)
		}
	default:
		return fmt.Errorf("unknown rope end %q", end)
	}
	return nil
}

// DetachAnchor releases the given end.
func (m *Manager) DetachAnchor(id string, end rope.End) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.ropes[id]
	if !ok {
		return ErrRopeNotFound
	}

	switch end {
	case rope.EndStart:
		inst.rope.DetachStart()
		inst.startAnchor = nil
	case rope.EndEnd:
		inst.rope.DetachEnd()
		inst.endAnchor = nil
	default:
		return fmt.Errorf("unknown rope end %q", end)
	}
	return nil
}

func (m *Manager) withRope(id string, fn func(*rope.Rope)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.ropes[id]
	if !ok {
		return ErrRopeNotFound
	}
	fn(inst.rope)
	return nil
}

// StartStepWorker launches the fixed-timestep driver: every tick it steps
// all live ropes by exactly 1/TickHz seconds and streams decimated frames
// to subscribers.
func (m *Manager) StartStepWorker(ctx context.Context) {
	dt := 1.0 / float64(m.cfg.TickHz)
	log.Printf("[SIM] step worker started (%d Hz, frame every %d ticks)", m.cfg.TickHz, m.cfg.FrameEvery)

	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(m.cfg.TickHz))
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[SIM] step worker stopping")
				return
			case <-ticker.C:
				m.stepAll(dt)
			}
		}
	}()
}

// stepAll advances every instance by dt and publishes frames.
func (m *Manager) stepAll(dt float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	every := m.cfg.FrameEvery
	if every < 1 {
		every = 1
	}

	for _, inst := range m.ropes {
		inst.rope.Step(dt)
		inst.frame++
		if inst.frame%uint64(every) == 0 {
			m.publishFrame(inst)
		}
	}
}

func (m *Manager) publishFrame(inst *instance) {
	r := inst.rope
	payload, err := json.Marshal(frameMessage{
		Type:     "frame",
		RopeID:   inst.id,
		Frame:    inst.frame,
		Segments: r.Segments(),
		Tension:  r.Tension(),
		Length:   r.CurrentLength(),
		Broken:   r.Broken(),
	})
	if err != nil {
		log.Printf("[SIM] failed to marshal frame for rope %s: %v", inst.id, err)
		return
	}

	if m.publisher != nil {
		m.publisher.Publish(inst.id, payload)
	}
	if m.rdb != nil {
		// Mirror the latest frame so peers and late joiners can read it.
		if err := m.rdb.Set(context.Background(), "rope:"+inst.id+":frame", payload, time.Minute).Err(); err != nil {
			log.Printf("[SIM] failed to mirror frame for rope %s: %v", inst.id, err)
		}
	}
}

// publishEvent fans an event out to viewers. With Redis configured it goes
// through the events channel so every peer instance (including this one)
// broadcasts it; without Redis it goes straight to the local publisher.
func (m *Manager) publishEvent(ropeID string, event map[string]interface{}) {
	event["rope_id"] = ropeID
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[SIM] failed to marshal event for rope %s: %v", ropeID, err)
		return
	}

	if m.rdb != nil {
		if err := m.rdb.Publish(context.Background(), EventsChannel, payload).Err(); err != nil {
			log.Printf("[SIM] failed to publish event for rope %s: %v", ropeID, err)
		}
		return
	}
	if m.publisher != nil {
		m.publisher.Publish(ropeID, payload)
	}
}

// eventRelay forwards rope events into the manager's fanout. Tension
// changes ride on frames instead of their own events; publishing one per
// step per rope would drown every subscriber. Callbacks fire on the
// goroutine that already holds the manager lock, so touching the
// instance's fields directly is safe.
type eventRelay struct {
	rope.NopListener
	m    *Manager
	inst *instance
}

func (e *eventRelay) RopeBroken(constraint int) {
	log.Printf("[SIM] rope %s broke at constraint %d", e.inst.id, constraint)
	e.m.publishEvent(e.inst.id, map[string]interface{}{
		"type":       "rope_broken",
		"constraint": constraint,
	})
}

func (e *eventRelay) RopeAttached(end rope.End, _ rope.Anchor) {
	e.m.publishEvent(e.inst.id, map[string]interface{}{
		"type": "rope_attached",
		"end":  end,
	})
}

// RopeDetached also drops the instance's anchor handle. A break can
// detach an end from inside the rope; without this the manager would
// keep moving an anchor the rope no longer follows.
func (e *eventRelay) RopeDetached(end rope.End) {
	switch end {
	case rope.EndStart:
		e.inst.startAnchor = nil
	case rope.EndEnd:
		e.inst.endAnchor = nil
	}
	e.m.publishEvent(e.inst.id, map[string]interface{}{
		"type": "rope_detached",
		"end":  end,
	})
}

func (e *eventRelay) SegmentsCollided(a, b int) {
	e.m.publishEvent(e.inst.id, map[string]interface{}{
		"type":      "segments_collided",
		"segment_a": a,
		"segment_b": b,
	})
}

// generateID returns a random hex instance ID.
func generateID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return hex.EncodeToString(b)
}
