package arena

import (
	"container/heap"
	"fmt"
	"math"
	"slices"
)

type BodyID int

type entry struct {
	id BodyID
	// placement at the index time
	hb Hitbox

	version uint
	// end of the sweep the entry is bucketed for, +Inf when it is not moving
	windowEnd float64
	bins      []int
	stamp     uint

	touching map[BodyID]struct{}
}

// Index is the broad phase. It tracks hitboxes against its own clock and
// predicts when pairs sharing a grid bucket will begin or stop touching.
type Index struct {
	time float64

	hash    *SpaceHash
	entries map[BodyID]*entry
	queue   eventQueue
	filter  func(a, b BodyID) bool

	versions uint
	stamp    uint
	scratch  []*entry
}

func NewIndex(cellWidth float64, numCells int) *Index {
	return &Index{
		hash:    NewSpaceHash(cellWidth, numCells),
		entries: map[BodyID]*entry{},
	}
}

// SetFilter restricts which pairs may interact. Rejected pairs never produce
// events and are never reported as overlapping. Set it before adding hitboxes.
func (index *Index) SetFilter(f func(a, b BodyID) bool) {
	index.filter = f
}

func (index *Index) Count() int {
	return len(index.entries)
}

func (index *Index) Time() float64 {
	return index.time
}

// SetTime advances the clock and extrapolates every hitbox to t.
// Moving the clock backwards, or to infinity, does nothing.
func (index *Index) SetTime(t float64) {
	if !(t > index.time) || math.IsInf(t, 1) {
		return
	}

	dt := t - index.time
	for _, e := range index.entries {
		if e.hb.Vel.X != 0 || e.hb.Vel.Y != 0 {
			e.hb = e.hb.At(dt)
		}
	}
	index.time = t
}

// NextTime is the earliest time anything scheduled happens, never earlier
// than Time. Internal re-bucketing counts, so draining at NextTime may yield
// no events. Returns +Inf when nothing is scheduled.
func (index *Index) NextTime() float64 {
	for len(index.queue) > 0 {
		p := index.queue[0]
		if index.valid(p) {
			return math.Max(p.time, index.time)
		}
		heap.Pop(&index.queue)
	}
	return math.Inf(1)
}

// Next drains every event scheduled at or before Time. Events are ordered by
// time, then by body ids.
func (index *Index) Next() []Event {
	var events []Event
	for len(index.queue) > 0 && index.queue[0].time <= index.time {
		p := heap.Pop(&index.queue).(pending)
		if !index.valid(p) {
			continue
		}

		a := index.entries[p.a]
		if p.kind == rebucket {
			index.reindex(a)
			continue
		}

		b := index.entries[p.b]
		if p.kind == Begin {
			a.touching[b.id] = struct{}{}
			b.touching[a.id] = struct{}{}
		} else {
			delete(a.touching, b.id)
			delete(b.touching, a.id)
		}
		events = append(events, Event{Kind: p.kind, A: a.id, B: b.id, Time: index.time})

		index.schedule(a, b)
	}
	return events
}

func (index *Index) AddHitbox(id BodyID, hb Hitbox) error {
	if _, ok := index.entries[id]; ok {
		return fmt.Errorf("add hitbox %d: %w", id, ErrDuplicateBody)
	}

	e := &entry{
		id:       id,
		hb:       hb,
		touching: map[BodyID]struct{}{},
	}
	index.entries[id] = e
	index.reindex(e)
	return nil
}

// RemoveHitbox stops tracking id and returns the bodies it was overlapping.
// Its open contacts are dropped without End events.
func (index *Index) RemoveHitbox(id BodyID) ([]BodyID, error) {
	e, ok := index.entries[id]
	if !ok {
		return nil, fmt.Errorf("remove hitbox %d: %w", id, ErrUnknownBody)
	}

	overlaps := index.overlaps(e)

	index.hash.Remove(id, e.bins)
	for other := range e.touching {
		delete(index.entries[other].touching, id)
	}
	delete(index.entries, id)

	return overlaps, nil
}

// MoveHitbox replaces the hitbox of id at Time and keeps its contacts.
// Partners the new placement no longer touches are returned as End events,
// ordered by id.
func (index *Index) MoveHitbox(id BodyID, hb Hitbox) ([]Event, error) {
	e, ok := index.entries[id]
	if !ok {
		return nil, fmt.Errorf("move hitbox %d: %w", id, ErrUnknownBody)
	}
	e.hb = hb

	partners := make([]BodyID, 0, len(e.touching))
	for other := range e.touching {
		partners = append(partners, other)
	}
	slices.Sort(partners)

	var events []Event
	for _, partner := range partners {
		other := index.entries[partner]
		if e.hb.Overlaps(other.hb.PlacedShape) {
			continue
		}
		delete(e.touching, other.id)
		delete(other.touching, e.id)
		events = append(events, Event{Kind: End, A: min(e.id, other.id), B: max(e.id, other.id), Time: index.time})
	}

	index.reindex(e)
	return events, nil
}

func (index *Index) SetHitboxVel(id BodyID, vel Vector) error {
	e, ok := index.entries[id]
	if !ok {
		return fmt.Errorf("set velocity of hitbox %d: %w", id, ErrUnknownBody)
	}

	if e.hb.Vel.Equal(vel) {
		return nil
	}
	e.hb.Vel = vel
	index.reindex(e)
	return nil
}

// GetHitbox returns the hitbox as placed at Time.
func (index *Index) GetHitbox(id BodyID) (Hitbox, error) {
	e, ok := index.entries[id]
	if !ok {
		return Hitbox{}, fmt.Errorf("get hitbox %d: %w", id, ErrUnknownBody)
	}
	return e.hb, nil
}

func (index *Index) IsOverlapping(a, b BodyID) bool {
	ea, ok := index.entries[a]
	if !ok {
		return false
	}
	eb, ok := index.entries[b]
	if !ok || a == b {
		return false
	}
	if index.filter != nil && !index.filter(a, b) {
		return false
	}
	return ea.hb.Overlaps(eb.hb.PlacedShape)
}

// GetOverlaps lists the bodies overlapping id right now, sorted by id.
func (index *Index) GetOverlaps(id BodyID) ([]BodyID, error) {
	e, ok := index.entries[id]
	if !ok {
		return nil, fmt.Errorf("get overlaps of %d: %w", id, ErrUnknownBody)
	}
	return index.overlaps(e), nil
}

func (index *Index) overlaps(e *entry) []BodyID {
	var ids []BodyID
	for _, other := range index.candidates(e) {
		if e.hb.Overlaps(other.hb.PlacedShape) {
			ids = append(ids, other.id)
		}
	}
	slices.Sort(ids)
	return ids
}

func (index *Index) valid(p pending) bool {
	a, ok := index.entries[p.a]
	if !ok || a.version != p.va {
		return false
	}
	if p.kind == rebucket {
		return true
	}
	b, ok := index.entries[p.b]
	return ok && b.version == p.vb
}

// reindex re-buckets e for a fresh sweep starting now and replaces every
// prediction involving it.
func (index *Index) reindex(e *entry) {
	index.versions++
	e.version = index.versions

	if e.bins != nil {
		index.hash.Remove(e.id, e.bins)
	}

	bb := e.hb.BB()
	speed := e.hb.Vel.MaxAbs()
	if speed == 0 {
		e.windowEnd = math.Inf(1)
	} else {
		span := index.hash.celldim / speed
		e.windowEnd = index.time + span
		if e.windowEnd <= index.time {
			e.windowEnd = math.Nextafter(index.time, math.Inf(1))
		}
		bb = bb.Merge(e.hb.At(span).BB())
		heap.Push(&index.queue, pending{time: e.windowEnd, kind: rebucket, a: e.id, va: e.version})
	}
	e.bins = index.hash.Insert(e.id, bb.Grow(touchSlop))

	for _, other := range index.candidates(e) {
		index.schedule(e, other)
	}
}

// candidates returns the distinct entries sharing a bin with e. The result
// is only valid until the next call.
func (index *Index) candidates(e *entry) []*entry {
	index.stamp++
	stamp := index.stamp
	e.stamp = stamp

	out := index.scratch[:0]
	index.hash.Query(e.bins, func(id BodyID) {
		other := index.entries[id]
		if other.stamp == stamp {
			return
		}
		other.stamp = stamp
		if index.filter != nil && !index.filter(e.id, other.id) {
			return
		}
		out = append(out, other)
	})
	index.scratch = out
	return out
}

// schedule predicts the next contact change of a pair. Begin uses the exact
// shapes and End the shapes grown by touchSlop, so an event never
// immediately re-triggers its opposite.
func (index *Index) schedule(a, b *entry) {
	if b.id < a.id {
		a, b = b, a
	}

	var kind EventKind
	var t float64
	if _, touching := a.touching[b.id]; !touching {
		lo, hi := contactInterval(a.hb, b.hb, 0)
		if lo > hi || hi < 0 {
			return
		}
		kind, t = Begin, math.Max(lo, 0)
	} else {
		lo, hi := contactInterval(a.hb, b.hb, touchSlop)
		kind = End
		switch {
		case lo > hi || hi < 0 || lo > 0:
			// already apart
			t = 0
		case math.IsInf(hi, 1):
			return
		default:
			t = hi
		}
	}

	at := index.time + t
	if at > math.Min(a.windowEnd, b.windowEnd) {
		return
	}
	heap.Push(&index.queue, pending{time: at, kind: kind, a: a.id, b: b.id, va: a.version, vb: b.version})
}
