package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/sim86/api"
	"github.com/sarchlab/sim86/config"
	"github.com/sarchlab/sim86/core"
	"github.com/sarchlab/sim86/report"
	"github.com/tebeka/atexit"
)

//go:embed session.yaml
var sessionYAML []byte

// Stores CX, CX-1, ..., 1 as words starting at DI.
var program = []byte{
	0x89, 0x0D, // mov [di], cx
	0x83, 0xC7, 0x02, // add di, 2
	0xE2, 0xF9, // loop $-5
	0xF4, // hlt
}

func main() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})
	slog.SetDefault(slog.New(handler))

	session, err := config.Parse(sessionYAML)
	if err != nil {
		panic(err)
	}

	engine := sim.NewSerialEngine()
	opts := report.Options{Exec: true, Cycles: true}

	var traceErr error

	driver := api.DriverBuilder{}.
		WithEngine(engine).
		WithFreq(sim.Freq(session.FreqMHz) * sim.MHz).
		WithTiming(true).
		WithRetireHandler(func(rec core.Retired) {
			if err := report.WriteTrace(os.Stdout, rec, opts); err != nil && traceErr == nil {
				traceErr = err
			}
		}).
		Build("Driver")

	driver.LoadProgram(program)

	regs, err := session.InitialRegisters()
	if err != nil {
		panic(err)
	}

	for _, r := range regs {
		driver.SetRegister(r.Register, r.Value)
	}

	result, err := driver.Run()
	if err != nil {
		panic(err)
	}

	if traceErr != nil {
		panic(traceErr)
	}

	err = report.WriteFinalState(os.Stdout, driver.Core().Registers(), driver.Core().Flags())
	if err != nil {
		panic(err)
	}

	mem := driver.Core().Memory()
	for addr := uint16(0x200); addr < 0x20A; addr += 2 {
		fmt.Printf("[0x%04x] = %d\n", addr, mem.Read16(addr))
	}

	fmt.Printf("%d clocks, %.2f us simulated\n",
		result.TotalCycles, float64(result.Elapsed)*1e6)

	atexit.Exit(0)
}
