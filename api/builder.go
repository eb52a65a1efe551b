package api

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/sim86/core"
)

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	engine   sim.Engine
	freq     sim.Freq
	timing   bool
	onRetire func(core.Retired)
}

// WithEngine sets the engine. A serial engine is created when none is set.
func (b DriverBuilder) WithEngine(engine sim.Engine) DriverBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the simulated processor.
func (b DriverBuilder) WithFreq(freq sim.Freq) DriverBuilder {
	b.freq = freq
	return b
}

// WithTiming turns clock estimation on or off.
func (b DriverBuilder) WithTiming(enabled bool) DriverBuilder {
	b.timing = enabled
	return b
}

// WithRetireHandler sets a callback invoked for every retired instruction.
func (b DriverBuilder) WithRetireHandler(f func(core.Retired)) DriverBuilder {
	b.onRetire = f
	return b
}

// Build create a driver.
func (b DriverBuilder) Build(name string) Driver {
	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	freq := b.freq
	if freq == 0 {
		freq = 5 * sim.MHz
	}

	d := &driverImpl{
		engine:    engine,
		collector: &retireCollector{onRetire: b.onRetire},
		timed:     b.timing,
	}

	d.core = core.NewBuilder().
		WithEngine(engine).
		WithFreq(freq).
		WithTiming(b.timing).
		Build(name + ".CPU")
	d.core.AcceptHook(d.collector)

	return d
}
