package arena

import "fmt"

type EventKind int

// Contact event kinds
const (
	// Two hitboxes started touching.
	Begin EventKind = iota
	// Two hitboxes that were touching moved apart.
	End
)

func (k EventKind) String() string {
	switch k {
	case Begin:
		return "Begin"
	case End:
		return "End"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a contact change between two tracked bodies. A < B always.
type Event struct {
	Kind EventKind
	A, B BodyID
	Time float64
}

func (e Event) String() string {
	return fmt.Sprintf("%v between %d and %d at time %f", e.Kind, e.A, e.B, e.Time)
}

// rebucket is an internal event: a moving entry reached the end of the sweep
// it was bucketed for.
const rebucket EventKind = -1

// pending is a prediction made against specific versions of its entries.
// It is stale as soon as either entry changes.
type pending struct {
	time   float64
	kind   EventKind
	a, b   BodyID
	va, vb uint
}

func (p pending) less(o pending) bool {
	if p.time != o.time {
		return p.time < o.time
	}
	// contact events drain before re-bucketing at the same instant
	if (p.kind == rebucket) != (o.kind == rebucket) {
		return o.kind == rebucket
	}
	if p.a != o.a {
		return p.a < o.a
	}
	if p.b != o.b {
		return p.b < o.b
	}
	return p.kind < o.kind
}

// eventQueue implements heap.Interface ordered by (time, kind, a, b).
type eventQueue []pending

func (q eventQueue) Len() int           { return len(q) }
func (q eventQueue) Less(i, j int) bool { return q[i].less(q[j]) }
func (q eventQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) {
	*q = append(*q, x.(pending))
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	p := old[n-1]
	*q = old[:n-1]
	return p
}
