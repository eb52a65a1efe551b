package api

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/sim86/core"
	"github.com/sarchlab/sim86/decoder"
	"github.com/sarchlab/sim86/instr"
)

var _ = Describe("Driver", func() {
	var (
		driver Driver
		traced []core.Retired
	)

	BeforeEach(func() {
		traced = nil
		driver = DriverBuilder{}.
			WithEngine(sim.NewSerialEngine()).
			WithFreq(5 * sim.MHz).
			WithTiming(true).
			WithRetireHandler(func(rec core.Retired) {
				traced = append(traced, rec)
			}).
			Build("Driver")
	})

	It("should run a counting loop", func() {
		driver.SetRegister(instr.CX, 3)
		driver.LoadProgram([]byte{
			0x83, 0xC3, 0x02, // add bx, 2
			0xE2, 0xFB, // loop $-3
			0xF4, // hlt
		})

		result, err := driver.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Halt).To(Equal(core.HaltTerminal))
		Expect(result.Retired).To(HaveLen(7))
		Expect(traced).To(HaveLen(7))
		Expect(driver.Core().Register(instr.BX)).To(Equal(uint16(6)))
		Expect(result.Timed).To(BeTrue())
		Expect(result.TotalCycles).To(Equal(3*4 + 2*17 + 5 + 2))
		Expect(result.Elapsed).To(BeNumerically(">", 0))
	})

	It("should write through preloaded memory", func() {
		driver.PreloadMemory(0x10, []byte{0x34, 0x12})
		driver.SetRegister(instr.BX, 0x10)
		driver.LoadProgram([]byte{
			0x8B, 0x07, // mov ax, [bx]
			0x89, 0x47, 0x02, // mov [bx+2], ax
		})

		result, err := driver.Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Halt).To(Equal(core.HaltEndOfStream))

		var buf bytes.Buffer
		Expect(driver.DumpMemory(&buf)).To(Succeed())
		Expect(buf.Len()).To(Equal(core.MemorySize))
		Expect(buf.Bytes()[0x12:0x14]).To(Equal([]byte{0x34, 0x12}))
	})

	It("should report the decode error that stopped the run", func() {
		driver.LoadProgram([]byte{0x40, 0x0F})

		result, err := driver.Run()

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Halt).To(Equal(core.HaltUnrecognized))
		Expect(result.DecodeErr).To(MatchError(decoder.ErrUnrecognized))
		Expect(result.Retired).To(HaveLen(1))
	})

	It("should disassemble without executing", func() {
		listing, err := driver.Disassemble([]byte{0xB8, 0x05, 0x00, 0x0F})

		Expect(listing).To(HaveLen(1))
		Expect(listing[0].Op).To(Equal(instr.OpMov))
		Expect(err).To(MatchError(decoder.ErrUnrecognized))
		Expect(driver.Core().Register(instr.AX)).To(Equal(uint16(0)))
	})

	It("should ignore hooks from other positions", func() {
		c := &retireCollector{}
		c.Func(sim.HookCtx{Pos: &sim.HookPos{Name: "Other"}, Item: core.Retired{}})

		Expect(c.records).To(BeEmpty())
	})
})
