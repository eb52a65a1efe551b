package report_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim86/core"
	"github.com/sarchlab/sim86/decoder"
	"github.com/sarchlab/sim86/instr"
	"github.com/sarchlab/sim86/report"
	"github.com/sarchlab/sim86/timing"
)

var errClosed = errors.New("writer closed")

type failingWriter struct {
	calls int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, errClosed
}

var _ = Describe("Report", func() {
	var buf bytes.Buffer

	BeforeEach(func() {
		buf.Reset()
	})

	decode := func(code ...byte) instr.Instruction {
		inst, err := decoder.Decode(code, 0)
		Expect(err).NotTo(HaveOccurred())

		return inst
	}

	It("should write a listing with a bits header", func() {
		listing := []instr.Instruction{
			decode(0xB8, 0x05, 0x00),
			decode(0xC3),
		}

		Expect(report.WriteDisassembly(&buf, listing)).To(Succeed())
		Expect(buf.String()).To(Equal("bits 16\nmov ax, 5\nret\n"))
	})

	It("should trace register, ip and flag changes", func() {
		rec := core.Retired{
			Inst: decode(0x2D, 0x01, 0x00),
			Change: core.Change{
				Register:       instr.AX,
				RegisterBefore: 0,
				RegisterAfter:  0xFFFF,
				FlagsBefore:    core.FlagZF,
				FlagsAfter:     core.FlagCF | core.FlagSF,
				IPBefore:       0,
				IPAfter:        3,
			},
		}

		Expect(report.WriteTrace(&buf, rec, report.Options{Exec: true})).To(Succeed())
		Expect(buf.String()).To(Equal(
			"sub ax, 1 ; ax:0x0->0xffff ip:0x0->0x3 flags:Z->CS\n"))
	})

	It("should print clocks with the breakdown", func() {
		rec := core.Retired{
			Inst:        decode(0x8B, 0x00),
			Timed:       true,
			Cost:        timing.Cost{Base: 8, EA: 7, Penalty: 4},
			Cycles:      19,
			TotalCycles: 23,
		}

		Expect(report.WriteTrace(&buf, rec, report.Options{Cycles: true})).To(Succeed())
		Expect(buf.String()).To(Equal(
			"mov ax, [bx+si] ; Clocks: +19 = 23 (8 + 7ea + 4p)\n"))
	})

	It("should omit the breakdown for plain forms", func() {
		rec := core.Retired{
			Inst:        decode(0xB8, 0x05, 0x00),
			Timed:       true,
			Cost:        timing.Cost{Base: 4},
			Cycles:      4,
			TotalCycles: 4,
		}

		Expect(report.WriteTrace(&buf, rec, report.Options{Cycles: true})).To(Succeed())
		Expect(buf.String()).To(Equal("mov ax, 5 ; Clocks: +4 = 4\n"))
	})

	It("should render the final registers as a table", func() {
		var regs core.RegisterFile
		regs.Write(instr.AX, 5)
		regs.Write(instr.DH, 0x12)

		Expect(report.WriteFinalState(&buf, &regs, core.FlagPF|core.FlagZF)).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring("0x0005"))
		Expect(out).To(ContainSubstring("0x1200"))
		Expect(out).To(ContainSubstring("PZ"))
		Expect(out).NotTo(ContainSubstring("bx"))
	})

	It("should summarize a run", func() {
		Expect(report.WriteSummary(&buf, report.Summary{
			Retired:     3,
			Halt:        core.HaltUnrecognized,
			Err:         errors.New("bad opcode"),
			TotalCycles: 12,
			Timed:       true,
		})).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("Retired 3 instructions"))
		Expect(buf.String()).To(ContainSubstring("bad opcode"))
		Expect(buf.String()).To(ContainSubstring("Total clocks: 12"))
	})

	It("should stop at the first failed write of the summary", func() {
		w := &failingWriter{}

		err := report.WriteSummary(w, report.Summary{
			Retired: 1,
			Halt:    core.HaltTerminal,
			Err:     errors.New("bad opcode"),
		})

		Expect(err).To(MatchError(errClosed))
		Expect(w.calls).To(Equal(1))
	})
})
