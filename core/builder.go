package core

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/sim86/timing"
)

// Builder can create new cores.
type Builder struct {
	engine sim.Engine
	freq   sim.Freq
	timing bool
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the core.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithTiming turns clock estimation on or off.
func (b Builder) WithTiming(enabled bool) Builder {
	b.timing = enabled
	return b
}

// NewBuilder returns a builder for a 5 MHz core with timing enabled.
func NewBuilder() Builder {
	return Builder{
		freq:   5 * sim.MHz,
		timing: true,
	}
}

// Build creates a core.
func (b Builder) Build(name string) *Core {
	c := &Core{}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.state = coreState{
		Memory: NewMemory(),
	}

	if b.timing {
		c.estimator = timing.NewEstimator()
	}

	return c
}
