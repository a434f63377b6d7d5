package arena

import (
	"fmt"
	"log"
	"math"
	"slices"
)

// DefaultMaxCascade caps how many queued pairs one tick may process.
const DefaultMaxCascade = 4096

// BodyKind is either Static or Dynamic.
type BodyKind interface {
	bodyKind()
}

// Static bodies are walls. They have infinite mass, are inserted once and
// are never moved by resolution.
type Static struct{}

// Dynamic bodies move on their own and are pushed around by resolution.
type Dynamic struct {
	// Motion supplies the desired velocity each tick and receives the
	// resolved position. A nil Motion keeps whatever velocity resolution
	// leaves the body with.
	Motion Motion
}

func (Static) bodyKind()  {}
func (Dynamic) bodyKind() {}

// Motion is the externally owned motion data of a dynamic body.
type Motion interface {
	DesiredVelocity() Vector
	SetPosition(pos Vector)
}

// VelocityTracker is implemented by motion data that also wants the
// resolved velocity written back.
type VelocityTracker interface {
	SetVelocity(vel Vector)
}

type Body struct {
	ID   BodyID
	Kind BodyKind
}

func (body *Body) IsStatic() bool {
	_, ok := body.Kind.(Static)
	return ok
}

func (body *Body) motion() Motion {
	if d, ok := body.Kind.(Dynamic); ok {
		return d.Motion
	}
	return nil
}

type CollisionBeginFunc func(world *World, a, b BodyID, userData interface{})
type CollisionSeparateFunc func(world *World, a, b BodyID, userData interface{})

// CollisionHandler is notified of every contact event the index reports,
// before any resolution happens. Nil funcs are skipped.
//
// Every Begin is matched by one Separate, sent when resolution pushes the pair
// apart or when the pair later moves apart. Unregistering a body drops its
// open contacts without a Separate.
type CollisionHandler struct {
	BeginFunc    CollisionBeginFunc
	SeparateFunc CollisionSeparateFunc
	UserData     interface{}
}

type Options struct {
	// Grid cell size of the broad phase.
	CellWidth float64
	// Number of hash table slots the grid cells map onto.
	NumCells int
	// Distance a resolution moves a body off whatever it hit.
	PushOut float64
	// Queued pairs a single tick may process before the rest are dropped.
	MaxCascade int
	Logger     *log.Logger
}

func DefaultOptions() Options {
	return Options{
		CellWidth:  35,
		NumCells:   1000,
		PushOut:    DefaultPushOut,
		MaxCascade: DefaultMaxCascade,
		Logger:     log.Default(),
	}
}

type pairKey struct {
	a, b BodyID
}

func newPairKey(a, b BodyID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// World owns the spatial index and the tick counter, and is the only thing
// that moves bodies. It is not safe for concurrent use; read positions only
// between calls to Step.
type World struct {
	Handler CollisionHandler

	opts  Options
	index *Index
	ticks uint64

	bodies map[BodyID]*Body
	// every registered id, sorted, so ticks visit bodies in a fixed order
	ids []BodyID

	queue      []pairKey
	queued     map[pairKey]struct{}
	iterations int
	overflowed bool
}

// NewWorld fills any zero option with its default.
func NewWorld(opts Options) *World {
	defaults := DefaultOptions()
	if opts.CellWidth <= 0 {
		opts.CellWidth = defaults.CellWidth
	}
	if opts.NumCells <= 0 {
		opts.NumCells = defaults.NumCells
	}
	if opts.PushOut <= 0 {
		opts.PushOut = defaults.PushOut
	}
	if opts.MaxCascade <= 0 {
		opts.MaxCascade = defaults.MaxCascade
	}
	if opts.Logger == nil {
		opts.Logger = defaults.Logger
	}

	world := &World{
		opts:   opts,
		index:  NewIndex(opts.CellWidth, opts.NumCells),
		bodies: map[BodyID]*Body{},
		queued: map[pairKey]struct{}{},
	}
	// static geometry never collides with itself
	world.index.SetFilter(func(a, b BodyID) bool {
		return !(world.bodies[a].IsStatic() && world.bodies[b].IsStatic())
	})
	return world
}

func (world *World) Time() float64 {
	return world.index.Time()
}

func (world *World) Ticks() uint64 {
	return world.ticks
}

// Register starts tracking a body. Dynamic bodies start out moving at their
// desired velocity.
func (world *World) Register(id BodyID, placed PlacedShape, kind BodyKind) error {
	switch kind.(type) {
	case Static, Dynamic:
	case nil:
		return fmt.Errorf("register body %d: missing body kind", id)
	default:
		return fmt.Errorf("register body %d: unsupported body kind %T", id, kind)
	}
	if _, ok := world.bodies[id]; ok {
		return fmt.Errorf("register body %d: %w", id, ErrDuplicateBody)
	}

	body := &Body{ID: id, Kind: kind}
	hb := placed.Still()
	if motion := body.motion(); motion != nil {
		hb = placed.Moving(motion.DesiredVelocity())
	}

	// the filter looks the body up, so it has to be known before insertion
	world.bodies[id] = body
	if err := world.index.AddHitbox(id, hb); err != nil {
		delete(world.bodies, id)
		return err
	}

	i, _ := slices.BinarySearch(world.ids, id)
	world.ids = slices.Insert(world.ids, i, id)
	return nil
}

// Unregister stops tracking a body and returns the bodies it was overlapping.
func (world *World) Unregister(id BodyID) ([]BodyID, error) {
	if _, ok := world.bodies[id]; !ok {
		return nil, fmt.Errorf("unregister body %d: %w", id, ErrUnknownBody)
	}

	overlaps, err := world.index.RemoveHitbox(id)
	if err != nil {
		return nil, err
	}
	delete(world.bodies, id)
	if i, found := slices.BinarySearch(world.ids, id); found {
		world.ids = slices.Delete(world.ids, i, i+1)
	}
	return overlaps, nil
}

func (world *World) Body(id BodyID) (*Body, bool) {
	body, ok := world.bodies[id]
	return body, ok
}

// Hitbox is the body's hitbox as of the last completed tick.
func (world *World) Hitbox(id BodyID) (Hitbox, error) {
	return world.index.GetHitbox(id)
}

// Overlaps lists the bodies currently overlapping id.
func (world *World) Overlaps(id BodyID) ([]BodyID, error) {
	return world.index.GetOverlaps(id)
}

// Each visits every body in id order.
func (world *World) Each(f func(body *Body, hb Hitbox)) {
	for _, id := range world.ids {
		f(world.bodies[id], world.mustHitbox(id))
	}
}

// Step advances the simulation by exactly one tick of length dt.
// dt must be the same on every call.
func (world *World) Step(dt float64) {
	if dt <= 0 {
		return
	}

	world.syncVelocities()

	world.ticks++
	end := float64(world.ticks) * dt

	world.iterations = 0
	world.overflowed = false

	index := world.index
	for index.Time() < end {
		index.SetTime(math.Min(index.NextTime(), end))

		for _, event := range index.Next() {
			world.dispatch(event)
		}
		world.resolveCascade()
	}

	world.writeBack()
}

func (world *World) syncVelocities() {
	for _, id := range world.ids {
		motion := world.bodies[id].motion()
		if motion == nil {
			continue
		}
		if err := world.index.SetHitboxVel(id, motion.DesiredVelocity()); err != nil {
			panic(fmt.Sprint("Internal Error: ", err))
		}
	}
}

func (world *World) writeBack() {
	for _, id := range world.ids {
		motion := world.bodies[id].motion()
		if motion == nil {
			continue
		}

		hb := world.mustHitbox(id)
		motion.SetPosition(hb.Pos)
		if tracker, ok := motion.(VelocityTracker); ok {
			tracker.SetVelocity(hb.Vel)
		}
	}
}

func (world *World) dispatch(event Event) {
	handler := world.Handler

	switch event.Kind {
	case Begin:
		if handler.BeginFunc != nil {
			handler.BeginFunc(world, event.A, event.B, handler.UserData)
		}
		if world.overflowed {
			return
		}
		world.enqueue(event.A, event.B)
	case End:
		if handler.SeparateFunc != nil {
			handler.SeparateFunc(world, event.A, event.B, handler.UserData)
		}
	}
}

func (world *World) enqueue(a, b BodyID) {
	// a handler may have unregistered either body
	bodyA, okA := world.bodies[a]
	bodyB, okB := world.bodies[b]
	if !okA || !okB || bodyA.IsStatic() && bodyB.IsStatic() {
		return
	}

	key := newPairKey(a, b)
	if _, ok := world.queued[key]; ok {
		return
	}
	world.queued[key] = struct{}{}
	world.queue = append(world.queue, key)
}

// resolveCascade drains the pair FIFO. Every resolution re-queues whatever
// the moved bodies now overlap, so one contact can ripple through a pile.
func (world *World) resolveCascade() {
	for len(world.queue) > 0 {
		if world.iterations >= world.opts.MaxCascade {
			world.opts.Logger.Printf("arena: cascade overflow at time %f, dropping %d queued pairs", world.index.Time(), len(world.queue))
			world.overflowed = true
			world.queue = world.queue[:0]
			clear(world.queued)
			return
		}
		world.iterations++

		pair := world.queue[0]
		world.queue = world.queue[1:]
		delete(world.queued, pair)

		// an earlier resolution may already have separated this pair
		if !world.index.IsOverlapping(pair.a, pair.b) {
			continue
		}

		a, b := world.bodies[pair.a], world.bodies[pair.b]
		switch {
		case a.IsStatic() && b.IsStatic():
		case a.IsStatic():
			world.resolveWall(b, a)
		case b.IsStatic():
			world.resolveWall(a, b)
		default:
			world.resolveBodies(a, b)
		}
	}
}

func (world *World) resolveWall(body, wall *Body) {
	resolved, err := ResolveWallCollision(world.mustHitbox(body.ID), world.mustHitbox(wall.ID), world.opts.PushOut)
	if err != nil {
		world.opts.Logger.Printf("arena: skipping %d against wall %d: %v", body.ID, wall.ID, err)
		return
	}

	events := world.mustMove(body.ID, resolved)
	world.enqueueOverlaps(body.ID)
	world.dispatchAll(events)
}

func (world *World) resolveBodies(a, b *Body) {
	hbA, hbB := world.mustHitbox(a.ID), world.mustHitbox(b.ID)
	resolvedA, resolvedB, err := ResolveBodyCollision(hbA, hbB, world.opts.PushOut)
	if err != nil {
		world.opts.Logger.Printf("arena: skipping %d against %d: %v", a.ID, b.ID, err)
		return
	}

	events := world.mustMove(a.ID, resolvedA)
	events = append(events, world.mustMove(b.ID, resolvedB)...)
	world.enqueueOverlaps(a.ID)
	world.enqueueOverlaps(b.ID)
	world.dispatchAll(events)
}

// dispatchAll must come after the moves and re-queueing, handlers may
// unregister bodies.
func (world *World) dispatchAll(events []Event) {
	for _, event := range events {
		world.dispatch(event)
	}
}

func (world *World) enqueueOverlaps(id BodyID) {
	overlaps, err := world.index.GetOverlaps(id)
	if err != nil {
		panic(fmt.Sprint("Internal Error: ", err))
	}
	for _, other := range overlaps {
		world.enqueue(id, other)
	}
}

// The index and the body registry change together, so a miss here is a bug.

func (world *World) mustHitbox(id BodyID) Hitbox {
	hb, err := world.index.GetHitbox(id)
	if err != nil {
		panic(fmt.Sprint("Internal Error: ", err))
	}
	return hb
}

func (world *World) mustMove(id BodyID, hb Hitbox) []Event {
	events, err := world.index.MoveHitbox(id, hb)
	if err != nil {
		panic(fmt.Sprint("Internal Error: ", err))
	}
	return events
}
