package arena

// FixedStep turns variable frame times into whole ticks of a fixed length.
// A slow frame runs several ticks back to back; they never overlap.
type FixedStep struct {
	Tick float64
	// MaxFrame clamps the time one frame may contribute, so a long stall
	// does not turn into a burst of catch-up ticks. Zero means no clamp.
	MaxFrame float64

	accumulator float64
}

func NewFixedStep(tick float64) *FixedStep {
	return &FixedStep{Tick: tick, MaxFrame: 0.2}
}

// Advance adds elapsed seconds and calls update once per whole tick.
// Returns the number of ticks run.
func (fs *FixedStep) Advance(elapsed float64, update func(dt float64)) int {
	if fs.Tick <= 0 || elapsed <= 0 {
		return 0
	}
	if fs.MaxFrame > 0 && elapsed > fs.MaxFrame {
		elapsed = fs.MaxFrame
	}

	ticks := 0
	for fs.accumulator += elapsed; fs.accumulator >= fs.Tick; fs.accumulator -= fs.Tick {
		update(fs.Tick)
		ticks++
	}
	return ticks
}

// Alpha is how far the clock is into the next tick, in [0, 1).
func (fs *FixedStep) Alpha() float64 {
	if fs.Tick <= 0 {
		return 0
	}
	return fs.accumulator / fs.Tick
}
