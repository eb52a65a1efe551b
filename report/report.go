// Package report prints listings, execution traces and final machine state.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sarchlab/sim86/asm"
	"github.com/sarchlab/sim86/core"
	"github.com/sarchlab/sim86/instr"
)

// Options selects which columns appear in a trace line.
type Options struct {
	Exec   bool
	Cycles bool
}

// WriteDisassembly writes a NASM listing that reassembles to the input.
func WriteDisassembly(w io.Writer, listing []instr.Instruction) error {
	if _, err := fmt.Fprintln(w, "bits 16"); err != nil {
		return err
	}

	for _, inst := range listing {
		if _, err := fmt.Fprintln(w, asm.Format(inst)); err != nil {
			return err
		}
	}

	return nil
}

// WriteTrace writes one line for a retired instruction.
func WriteTrace(w io.Writer, rec core.Retired, opts Options) error {
	var b strings.Builder

	b.WriteString(asm.Format(rec.Inst))

	var notes []string
	if opts.Cycles && rec.Timed {
		notes = append(notes, clocks(rec))
	}

	if opts.Exec {
		if s := changes(rec.Change); s != "" {
			notes = append(notes, s)
		}
	}

	if len(notes) > 0 {
		b.WriteString(" ; ")
		b.WriteString(strings.Join(notes, " | "))
	}

	_, err := fmt.Fprintln(w, b.String())

	return err
}

func clocks(rec core.Retired) string {
	s := fmt.Sprintf("Clocks: +%d = %d", rec.Cycles, rec.TotalCycles)

	c := rec.Cost
	if c.EA == 0 && c.Penalty == 0 && !(rec.Change.Taken && c.Taken > 0) {
		return s
	}

	parts := []string{fmt.Sprintf("%d", c.Base)}
	if rec.Change.Taken && c.Taken > 0 {
		parts = append(parts, fmt.Sprintf("%dj", c.Taken))
	}

	if c.EA > 0 {
		parts = append(parts, fmt.Sprintf("%dea", c.EA))
	}

	if c.Penalty > 0 {
		parts = append(parts, fmt.Sprintf("%dp", c.Penalty))
	}

	return s + " (" + strings.Join(parts, " + ") + ")"
}

func changes(ch core.Change) string {
	var parts []string

	if ch.RegisterWritten() && ch.RegisterBefore != ch.RegisterAfter {
		parts = append(parts, fmt.Sprintf("%s:0x%x->0x%x",
			ch.Register.Name(), ch.RegisterBefore, ch.RegisterAfter))
	}

	if ch.MemoryWritten && ch.MemoryBefore != ch.MemoryAfter {
		parts = append(parts, fmt.Sprintf("[0x%x]:0x%x->0x%x",
			ch.MemoryAddress, ch.MemoryBefore, ch.MemoryAfter))
	}

	if ch.IPBefore != ch.IPAfter {
		parts = append(parts, fmt.Sprintf("ip:0x%x->0x%x", ch.IPBefore, ch.IPAfter))
	}

	if ch.FlagsChanged() {
		parts = append(parts, fmt.Sprintf("flags:%s->%s", ch.FlagsBefore, ch.FlagsAfter))
	}

	if ch.Diagnostic != "" {
		parts = append(parts, "skipped: "+ch.Diagnostic)
	}

	return strings.Join(parts, " ")
}

// WriteFinalState renders every register that changed during the run plus
// the active flags.
func WriteFinalState(w io.Writer, regs *core.RegisterFile, flags core.Flags) error {
	t := table.NewWriter()
	t.SetTitle("Final Registers")
	t.AppendHeader(table.Row{"Register", "Hex", "Dec"})

	for _, r := range regs.Changed() {
		v := regs.Read(r)
		t.AppendRow(table.Row{r.Name(), fmt.Sprintf("0x%04x", v), v})
	}

	t.AppendFooter(table.Row{"flags", flags.String(), ""})

	_, err := fmt.Fprintln(w, t.Render())

	return err
}

// Summary describes a finished session.
type Summary struct {
	Retired     int
	Halt        core.HaltReason
	Err         error
	TotalCycles int
	Timed       bool
}

// WriteSummary writes the closing lines of a run.
func WriteSummary(w io.Writer, s Summary) error {
	if _, err := fmt.Fprintf(w, "\nRetired %d instructions, halted on %s\n",
		s.Retired, s.Halt); err != nil {
		return err
	}

	if s.Err != nil {
		if _, err := fmt.Fprintf(w, "Decode error: %v\n", s.Err); err != nil {
			return err
		}
	}

	if s.Timed {
		if _, err := fmt.Fprintf(w, "Total clocks: %d\n", s.TotalCycles); err != nil {
			return err
		}
	}

	return nil
}
