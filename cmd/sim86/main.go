// Command sim86 disassembles, executes or times 8086 machine code.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/sim86/api"
	"github.com/sarchlab/sim86/config"
	"github.com/sarchlab/sim86/core"
	"github.com/sarchlab/sim86/report"
)

var (
	modeFlag    = flag.String("mode", "exec", "disasm, exec or cycles")
	configFlag  = flag.String("config", "", "session file in YAML")
	dumpFlag    = flag.String("dump", "", "write the memory image to this path after the run")
	freqFlag    = flag.Float64("freq", config.DefaultFreqMHz, "processor clock in MHz")
	verboseFlag = flag.Bool("v", false, "log every retired instruction")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"usage: %s [flags] [8086 machine code file]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelWarn
	if *verboseFlag {
		level = core.LevelTrace
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	session, err := loadSession()
	if err != nil {
		fail(err)
	}

	if session.Program == "" {
		flag.Usage()
		atexit.Exit(2)
	}

	code, err := os.ReadFile(session.Program)
	if err != nil {
		fail(err)
	}

	out := bufio.NewWriter(os.Stdout)
	atexit.Register(func() {
		if err := out.Flush(); err != nil {
			slog.Error("Flushing output", "Error", err)
		}
	})

	if err := run(out, session, code); err != nil {
		fail(err)
	}

	atexit.Exit(0)
}

// loadSession merges the session file with the flags the user set
// explicitly.
func loadSession() (config.Session, error) {
	session := config.Default()

	if *configFlag != "" {
		s, err := config.Load(*configFlag)
		if err != nil {
			return config.Session{}, err
		}

		session = s
	}

	var err error

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			session.Mode, err = config.ParseMode(*modeFlag)
		case "dump":
			session.Dump = *dumpFlag
		case "freq":
			session.FreqMHz = *freqFlag
		}
	})

	if err != nil {
		return config.Session{}, err
	}

	if flag.NArg() > 0 {
		session.Program = flag.Arg(0)
	}

	return session, session.Validate()
}

func run(out *bufio.Writer, session config.Session, code []byte) error {
	opts := report.Options{
		Exec:   true,
		Cycles: session.Mode == config.ModeCycles,
	}

	var traceErr error

	driver := api.DriverBuilder{}.
		WithEngine(sim.NewSerialEngine()).
		WithFreq(sim.Freq(session.FreqMHz) * sim.MHz).
		WithTiming(opts.Cycles).
		WithRetireHandler(func(rec core.Retired) {
			if err := report.WriteTrace(out, rec, opts); err != nil && traceErr == nil {
				traceErr = err
			}
		}).
		Build("Sim86")

	fmt.Fprintf(out, "; %s\n", session.Program)

	if session.Mode == config.ModeDisasm {
		listing, err := driver.Disassemble(code)
		if werr := report.WriteDisassembly(out, listing); werr != nil {
			return werr
		}

		if err != nil {
			slog.Warn("Disassembly stopped", "Error", err)
		}

		return nil
	}

	driver.LoadProgram(code)

	if err := seed(driver, session); err != nil {
		return err
	}

	result, err := driver.Run()
	if err != nil {
		return err
	}

	if traceErr != nil {
		return traceErr
	}

	fmt.Fprintln(out)

	if err := report.WriteFinalState(out, driver.Core().Registers(), driver.Core().Flags()); err != nil {
		return err
	}

	if err := report.WriteSummary(out, report.Summary{
		Retired:     len(result.Retired),
		Halt:        result.Halt,
		Err:         result.DecodeErr,
		TotalCycles: result.TotalCycles,
		Timed:       result.Timed,
	}); err != nil {
		return err
	}

	if session.Dump != "" {
		return dump(driver, session.Dump)
	}

	return nil
}

func seed(driver api.Driver, session config.Session) error {
	regs, err := session.InitialRegisters()
	if err != nil {
		return err
	}

	for _, r := range regs {
		driver.SetRegister(r.Register, r.Value)
	}

	for _, p := range session.Memory {
		data, err := p.Data()
		if err != nil {
			return err
		}

		driver.PreloadMemory(p.Address, data)
	}

	return nil
}

func dump(driver api.Driver, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating memory dump: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := driver.DumpMemory(w); err != nil {
		f.Close()
		return err
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing memory dump: %w", err)
	}

	return f.Close()
}

func fail(err error) {
	slog.Error("sim86", "Error", err)
	atexit.Exit(1)
}
