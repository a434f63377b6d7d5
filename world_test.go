package arena

import (
	"bytes"
	"errors"
	"log"
	"math"
	"strings"
	"testing"
)

const tick = 1.0 / 60.0

type unit struct {
	desired  Vector
	pos, vel Vector
}

func (u *unit) DesiredVelocity() Vector { return u.desired }
func (u *unit) SetPosition(pos Vector)  { u.pos = pos }
func (u *unit) SetVelocity(vel Vector)  { u.vel = vel }

func quietWorld(buf *bytes.Buffer) *World {
	opts := DefaultOptions()
	opts.Logger = log.New(buf, "", 0)
	return NewWorld(opts)
}

func TestWorld_StopsAtWall(t *testing.T) {
	var buf bytes.Buffer
	world := quietWorld(&buf)

	var begins []Event
	world.Handler.BeginFunc = func(world *World, a, b BodyID, userData interface{}) {
		begins = append(begins, Event{Kind: Begin, A: a, B: b, Time: world.Time()})
	}

	if err := world.Register(1, NewSquare(32).Place(Vector{0, 0}), Static{}); err != nil {
		t.Fatal(err)
	}
	u := &unit{desired: Vector{-600, 0}}
	if err := world.Register(2, NewSquare(2).Place(Vector{20, 0}), Dynamic{Motion: u}); err != nil {
		t.Fatal(err)
	}

	world.Step(tick)

	if len(begins) != 1 || begins[0].A != 1 || begins[0].B != 2 {
		t.Fatalf("Expected one Begin between 1 and 2, got %v", begins)
	}
	if math.Abs(begins[0].Time-0.005) > 1e-9 {
		t.Errorf("Expected contact at 0.005, got %v", begins[0].Time)
	}
	if !u.pos.Near(Vector{17.01, 0}, 1e-9) {
		t.Errorf("Expected body pushed out to 17.01,0 got %v", u.pos)
	}
	if u.vel.X != 0 {
		t.Errorf("Expected velocity into the wall removed, got %v", u.vel)
	}
	if world.index.IsOverlapping(1, 2) {
		t.Error("Body still overlaps the wall")
	}
	if buf.Len() != 0 {
		t.Errorf("Unexpected log output: %v", buf.String())
	}
}

func TestWorld_AdjacentWall(t *testing.T) {
	var buf bytes.Buffer
	world := quietWorld(&buf)
	u := &unit{desired: Vector{1, 0}}
	world.Register(1, NewSquare(32).Place(Vector{0, 0}), Dynamic{Motion: u})
	world.Register(2, NewSquare(32).Place(Vector{32, 0}), Static{})

	world.Step(tick)

	if u.vel.X != 0 {
		t.Errorf("Expected velocity into the wall removed, got %v", u.vel)
	}
	if u.pos.X >= 0 {
		t.Errorf("Expected body pushed away from the wall, got %v", u.pos)
	}
	if overlaps, _ := world.Overlaps(1); len(overlaps) != 0 {
		t.Errorf("Body still overlaps %v", overlaps)
	}
}

func TestWorld_ApproachWall(t *testing.T) {
	var buf bytes.Buffer
	world := quietWorld(&buf)
	world.Register(1, NewSquare(32).Place(Vector{0, 0}), Static{})
	u := &unit{desired: Vector{-600, 0}}
	world.Register(2, NewSquare(2).Place(Vector{100, 0}), Dynamic{Motion: u})

	for i := 0; i < 20; i++ {
		world.Step(tick)
		if u.pos.X < 17 {
			t.Fatalf("Tick %v: body tunneled into the wall at %v", i, u.pos)
		}
	}
	if !u.pos.Near(Vector{17.01, 0}, 1e-9) {
		t.Errorf("Expected body resting at 17.01,0 got %v", u.pos)
	}
	if world.Ticks() != 20 {
		t.Errorf("Expected 20 ticks, got %v", world.Ticks())
	}
	if math.Abs(world.Time()-20*tick) > 1e-12 {
		t.Errorf("Expected time %v, got %v", 20*tick, world.Time())
	}
}

func TestWorld_HeadOn(t *testing.T) {
	var buf bytes.Buffer
	world := quietWorld(&buf)
	left := &unit{desired: Vector{10, 0}}
	right := &unit{desired: Vector{-10, 0}}
	world.Register(1, NewSquare(2).Place(Vector{-20, 0}), Dynamic{Motion: left})
	world.Register(2, NewSquare(2).Place(Vector{20, 0}), Dynamic{Motion: right})

	for i := 0; i < 200; i++ {
		world.Step(tick)
		if left.pos.X >= right.pos.X {
			t.Fatalf("Tick %v: bodies passed through each other", i)
		}
	}

	if world.index.IsOverlapping(1, 2) {
		t.Error("Bodies still overlap")
	}
	if math.Abs(left.pos.X+right.pos.X) > 1e-6 {
		t.Errorf("Expected symmetric resolution, got %v and %v", left.pos, right.pos)
	}
	if math.Abs(right.pos.X-1.01) > 1e-6 {
		t.Errorf("Expected bodies held apart at 1.01, got %v", right.pos)
	}
	if !left.vel.Equal(Vector{}) || !right.vel.Equal(Vector{}) {
		t.Errorf("Expected both bodies stopped, got %v and %v", left.vel, right.vel)
	}
}

func TestWorld_SlideAlongFloor(t *testing.T) {
	var buf bytes.Buffer
	world := quietWorld(&buf)

	id := BodyID(100)
	for x := -64.0; x <= 96; x += 32 {
		if err := world.Register(id, NewSquare(32).Place(Vector{x, 19}), Static{}); err != nil {
			t.Fatal(err)
		}
		id++
	}
	u := &unit{desired: Vector{100, 100}}
	world.Register(1, NewSquare(2).Place(Vector{0, 0}), Dynamic{Motion: u})

	for i := 0; i < 10; i++ {
		world.Step(tick)
	}

	if !u.vel.Equal(Vector{100, 0}) {
		t.Errorf("Expected body sliding at 100,0 got %v", u.vel)
	}
	if math.Abs(u.pos.Y-1.99) > 1e-6 {
		t.Errorf("Expected body resting on the floor at y 1.99, got %v", u.pos)
	}
	if math.Abs(u.pos.X-10*100*tick) > 1e-6 {
		t.Errorf("Expected full horizontal travel, got %v", u.pos)
	}
	if overlaps, _ := world.Overlaps(1); len(overlaps) != 0 {
		t.Errorf("Body overlaps %v", overlaps)
	}
	if buf.Len() != 0 {
		t.Errorf("Unexpected log output: %v", buf.String())
	}
}

func TestWorld_RegisterDuplicate(t *testing.T) {
	world := NewWorld(Options{})
	if err := world.Register(1, NewSquare(2).Place(Vector{0, 0}), Static{}); err != nil {
		t.Fatal(err)
	}

	err := world.Register(1, NewSquare(4).Place(Vector{50, 50}), Dynamic{})
	if !errors.Is(err, ErrDuplicateBody) {
		t.Fatalf("Expected ErrDuplicateBody, got %v", err)
	}

	hb, _ := world.Hitbox(1)
	if !hb.Pos.Equal(Vector{0, 0}) || hb.W != 2 {
		t.Errorf("Original body was modified: %v", hb)
	}
	body, _ := world.Body(1)
	if !body.IsStatic() {
		t.Error("Original body kind was replaced")
	}

	if err := world.Register(2, NewSquare(2).Place(Vector{}), nil); err == nil {
		t.Error("Expected an error registering without a kind")
	}
	if _, ok := world.Body(2); ok {
		t.Error("Failed registration left a body behind")
	}
}

func TestWorld_RegisterPointerKind(t *testing.T) {
	world := NewWorld(Options{})
	if err := world.Register(1, NewSquare(2).Place(Vector{}), &Static{}); err == nil {
		t.Error("Expected an error registering a *Static")
	}
	if err := world.Register(2, NewSquare(2).Place(Vector{}), &Dynamic{}); err == nil {
		t.Error("Expected an error registering a *Dynamic")
	}
	if world.index.Count() != 0 || len(world.bodies) != 0 {
		t.Error("Failed registration left a body behind")
	}
}

func TestWorld_SeparateAfterResolution(t *testing.T) {
	var buf bytes.Buffer
	world := quietWorld(&buf)

	var events []Event
	world.Handler.BeginFunc = func(world *World, a, b BodyID, userData interface{}) {
		events = append(events, Event{Kind: Begin, A: a, B: b, Time: world.Time()})
	}
	world.Handler.SeparateFunc = func(world *World, a, b BodyID, userData interface{}) {
		events = append(events, Event{Kind: End, A: a, B: b, Time: world.Time()})
	}

	world.Register(1, NewSquare(32).Place(Vector{0, 0}), Static{})
	world.Register(2, NewSquare(2).Place(Vector{20, 0}), Dynamic{Motion: &unit{desired: Vector{-600, 0}}})

	world.Step(tick)

	if len(events) != 2 {
		t.Fatalf("Expected Begin then Separate, got %v", events)
	}
	for i, kind := range []EventKind{Begin, End} {
		e := events[i]
		if e.Kind != kind || e.A != 1 || e.B != 2 || math.Abs(e.Time-0.005) > 1e-9 {
			t.Errorf("Expected %v between 1 and 2 at 0.005, got %v", kind, e)
		}
	}
}

func TestWorld_ContactsBalanced(t *testing.T) {
	var buf bytes.Buffer
	world := quietWorld(&buf)

	open := map[pairKey]bool{}
	begins, separates := 0, 0
	world.Handler.BeginFunc = func(world *World, a, b BodyID, userData interface{}) {
		key := newPairKey(a, b)
		if open[key] {
			t.Errorf("Begin between %d and %d while already touching", a, b)
		}
		open[key] = true
		begins++
	}
	world.Handler.SeparateFunc = func(world *World, a, b BodyID, userData interface{}) {
		key := newPairKey(a, b)
		if !open[key] {
			t.Errorf("Separate between %d and %d without a Begin", a, b)
		}
		delete(open, key)
		separates++
	}

	id := BodyID(100)
	for x := -96.0; x <= 96; x += 32 {
		world.Register(id, NewSquare(32).Place(Vector{x, 40}), Static{})
		world.Register(id+1, NewSquare(32).Place(Vector{x, -40}), Static{})
		id += 2
	}
	for i := 0; i < 8; i++ {
		u := &unit{desired: Vector{float64(i%3-1) * 120, float64(i%4-2) * 90}}
		world.Register(BodyID(i+1), NewSquare(4).Place(Vector{float64(i*7 - 28), float64(i%2) * 3}), Dynamic{Motion: u})
	}

	for i := 0; i < 120; i++ {
		world.Step(tick)
	}

	if begins == 0 || separates == 0 {
		t.Fatalf("Expected contacts to begin and separate, got %d and %d", begins, separates)
	}
}

func TestWorld_Unregister(t *testing.T) {
	world := NewWorld(Options{})
	world.Register(1, NewSquare(2).Place(Vector{0, 0}), Dynamic{})
	world.Register(3, NewSquare(2).Place(Vector{0, 1}), Dynamic{})
	world.Register(2, NewSquare(2).Place(Vector{1, 0}), Dynamic{})

	overlaps, err := world.Unregister(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(overlaps) != 2 || overlaps[0] != 2 || overlaps[1] != 3 {
		t.Errorf("Expected overlaps [2 3], got %v", overlaps)
	}
	if _, ok := world.Body(1); ok {
		t.Error("Unregistered body is still known")
	}
	if _, err := world.Unregister(1); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("Expected ErrUnknownBody, got %v", err)
	}

	var ids []BodyID
	world.Each(func(body *Body, hb Hitbox) {
		ids = append(ids, body.ID)
	})
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Errorf("Expected remaining bodies [2 3], got %v", ids)
	}
}

func TestWorld_DegenerateLogged(t *testing.T) {
	var buf bytes.Buffer
	world := quietWorld(&buf)
	world.Register(1, NewSquare(2).Place(Vector{5, 5}), Dynamic{})
	world.Register(2, NewSquare(2).Place(Vector{5, 5}), Dynamic{})

	world.Step(tick)

	if !strings.Contains(buf.String(), "skipping 1 against 2") {
		t.Errorf("Expected the degenerate pair to be logged, got %q", buf.String())
	}
	a, _ := world.Hitbox(1)
	b, _ := world.Hitbox(2)
	if !a.Pos.Equal(Vector{5, 5}) || !b.Pos.Equal(Vector{5, 5}) {
		t.Error("Degenerate pair was moved")
	}
}

func TestWorld_CascadeOverflow(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Logger = log.New(&buf, "", 0)
	opts.MaxCascade = 1
	world := NewWorld(opts)

	world.Register(1, NewSquare(2).Place(Vector{0, 0}), Dynamic{})
	world.Register(2, NewSquare(2).Place(Vector{1, 0}), Dynamic{})
	world.Register(3, NewSquare(2).Place(Vector{0.5, 1.5}), Dynamic{})

	world.Step(tick)

	if !strings.Contains(buf.String(), "cascade overflow") {
		t.Errorf("Expected overflow to be logged, got %q", buf.String())
	}
	if world.Ticks() != 1 || world.Time() != tick {
		t.Error("Step did not complete after overflow")
	}
	// one push-out of 0.01 cannot separate pairs this deep
	if !world.index.IsOverlapping(1, 2) || !world.index.IsOverlapping(1, 3) {
		t.Error("Expected the dropped pairs to be left overlapping")
	}

	buf.Reset()
	world.Step(tick)
	if strings.Contains(buf.String(), "cascade overflow") {
		t.Error("Overflow state leaked into the next tick")
	}
}

func TestWorld_HandlerUnregisters(t *testing.T) {
	var buf bytes.Buffer
	world := quietWorld(&buf)
	world.Handler.BeginFunc = func(world *World, a, b BodyID, userData interface{}) {
		if _, err := world.Unregister(b); err != nil {
			t.Error(err)
		}
	}
	world.Register(1, NewSquare(32).Place(Vector{0, 0}), Static{})
	world.Register(2, NewSquare(2).Place(Vector{20, 0}), Dynamic{Motion: &unit{desired: Vector{-600, 0}}})

	world.Step(tick)

	if _, ok := world.Body(2); ok {
		t.Error("Expected body removed by the handler")
	}
	if world.index.Count() != 1 {
		t.Errorf("Expected only the wall left, got %d hitboxes", world.index.Count())
	}
}

func TestWorld_StepIgnoresNonPositive(t *testing.T) {
	world := NewWorld(Options{})
	world.Step(0)
	world.Step(-1)
	if world.Ticks() != 0 || world.Time() != 0 {
		t.Errorf("Expected no progress, got %v ticks at %v", world.Ticks(), world.Time())
	}
}

func TestWorld_Deterministic(t *testing.T) {
	run := func() []Vector {
		var buf bytes.Buffer
		world := quietWorld(&buf)
		id := BodyID(100)
		for x := -96.0; x <= 96; x += 32 {
			world.Register(id, NewSquare(32).Place(Vector{x, 40}), Static{})
			world.Register(id+1, NewSquare(32).Place(Vector{x, -40}), Static{})
			id += 2
		}

		var units []*unit
		for i := 0; i < 8; i++ {
			u := &unit{desired: Vector{float64(i%3-1) * 120, float64(i%4-2) * 90}}
			units = append(units, u)
			world.Register(BodyID(i+1), NewSquare(4).Place(Vector{float64(i*7 - 28), float64(i%2) * 3}), Dynamic{Motion: u})
		}

		for i := 0; i < 120; i++ {
			world.Step(tick)
		}

		var out []Vector
		for _, u := range units {
			out = append(out, u.pos)
		}
		return out
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Body %v diverged: %v vs %v", i+1, first[i], second[i])
		}
	}
}
